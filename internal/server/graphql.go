package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"

	"github.com/aleics/gql-dyn/internal/schema"
	"github.com/aleics/gql-dyn/internal/store"
)

// maxQueryBody bounds a POSTed GraphQL request.
const maxQueryBody = 1 << 20

// graphqlHandler serves GraphQL over HTTP. Query and variables come from
// the URL on GET and from a JSON (or application/graphql) body on POST.
// Execution errors are part of a 200 response; only malformed requests and
// schema build failures change the status.
type graphqlHandler struct {
	source SchemaSource
	store  *store.RecordStore
	logger *slog.Logger
}

func (h *graphqlHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(w, r)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, errorResult(err.Error()))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, errorResult("query is required"))
		return
	}

	sch, err := h.source.Schema(r.Context())
	if err != nil {
		h.logger.Error("schema unavailable", "request_id", RequestID(r.Context()), "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResult("schema unavailable: "+err.Error()))
		return
	}

	ctx := schema.WithRecords(r.Context(), h.store)
	result := sch.Execute(ctx, req)
	if result.HasErrors() {
		h.logger.Debug("graphql errors",
			"request_id", RequestID(r.Context()),
			"errors", len(result.Errors),
			"first", result.Errors[0].Message,
		)
	}
	writeJSON(w, http.StatusOK, result)
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (schema.Request, error) {
	var req schema.Request
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.Query = q.Get("query")
		req.OperationName = q.Get("operationName")
		if raw := q.Get("variables"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &req.Variables); err != nil {
				return req, errInvalidVariables
			}
		}
		return req, nil
	default:
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxQueryBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return req, errBodyTooLarge
			}
			return req, err
		}
		if strings.HasPrefix(r.Header.Get("Content-Type"), "application/graphql") {
			req.Query = string(body)
			return req, nil
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return req, errInvalidBody
		}
		return req, nil
	}
}

type requestError string

func (e requestError) Error() string { return string(e) }

const (
	errInvalidVariables = requestError("variables must be a JSON object")
	errInvalidBody      = requestError("body must be a JSON object with a query")
	errBodyTooLarge     = requestError("request body exceeds 1 MiB")
)

func errorResult(msg string) *graphql.Result {
	return &graphql.Result{Errors: []gqlerrors.FormattedError{{Message: msg}}}
}

func serveGraphiQL(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, graphiqlHTML)
}

const graphiqlHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>gql-dyn</title>
  <link rel="stylesheet" href="https://unpkg.com/graphiql/graphiql.min.css">
</head>
<body style="margin:0">
  <div id="graphiql" style="height:100vh"></div>
  <script crossorigin src="https://unpkg.com/react/umd/react.production.min.js"></script>
  <script crossorigin src="https://unpkg.com/react-dom/umd/react-dom.production.min.js"></script>
  <script crossorigin src="https://unpkg.com/graphiql/graphiql.min.js"></script>
  <script>
    const fetcher = GraphiQL.createFetcher({ url: '/graphql' });
    ReactDOM.render(
      React.createElement(GraphiQL, { fetcher, defaultQuery: '{ animals { name } }' }),
      document.getElementById('graphiql'),
    );
  </script>
</body>
</html>
`
