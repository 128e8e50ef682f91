package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/graphql-go/graphql"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/aleics/gql-dyn/internal/fixtures"
	"github.com/aleics/gql-dyn/internal/idgen"
	"github.com/aleics/gql-dyn/internal/schema"
	"github.com/aleics/gql-dyn/internal/server"
	"github.com/aleics/gql-dyn/internal/store"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	File      string
	Variables string
	Operation string
	Records   string
	Fixtures  int
	Server    string
	Timeout   time.Duration
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [document]",
		Short: "Execute a GraphQL query",
		Long: `Execute a GraphQL query and print the response.

Locally, the schema is generated from the catalog and the store is seeded
from --records or --fixtures. With --server the query is sent to a running
gqldyn over gRPC instead. The document comes from the argument, --file, or
stdin when neither is given.`,
		Example: `  gqldyn query --fixtures 3 '{ animals { name ... on Cat { fur } } }'
  gqldyn query --server 127.0.0.1:9090 --file query.graphql`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, rootOpts, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read the document from a file")
	cmd.Flags().StringVar(&opts.Variables, "vars", "", "variables as a JSON object")
	cmd.Flags().StringVar(&opts.Operation, "operation", "", "operation name")
	cmd.Flags().StringVar(&opts.Records, "records", "", "seed records from this source")
	cmd.Flags().IntVar(&opts.Fixtures, "fixtures", 0, "seed this many generated records")
	cmd.Flags().StringVar(&opts.Server, "server", "", "gRPC address of a running server")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "remote call timeout")
	return cmd
}

func runQuery(cmd *cobra.Command, rootOpts *RootOptions, opts *QueryOptions, args []string) error {
	f := rootOpts.formatter(cmd)
	ctx := cmd.Context()

	req, err := readRequest(cmd.InOrStdin(), opts, args)
	if err != nil {
		return fail(f, err)
	}

	var result any
	var hasErrors bool
	if opts.Server != "" {
		resp, err := executeRemote(ctx, opts, req)
		if err != nil {
			return fail(f, WrapExitError(ExitCommandError, "remote query", err))
		}
		errs, _ := resp["errors"].([]any)
		result, hasErrors = resp, len(errs) > 0
	} else {
		res, err := executeLocal(ctx, rootOpts, opts, req)
		if err != nil {
			return fail(f, err)
		}
		result, hasErrors = res, res.HasErrors()
	}

	if f.Format == "json" {
		if err := f.Success(result); err != nil {
			return err
		}
	} else {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return WrapExitError(ExitCommandError, "write result", err)
		}
	}
	if hasErrors {
		return NewExitError(ExitFailure, "query returned errors")
	}
	return nil
}

func readRequest(stdin io.Reader, opts *QueryOptions, args []string) (schema.Request, error) {
	var doc string
	switch {
	case len(args) == 1 && opts.File != "":
		return schema.Request{}, NewExitError(ExitCommandError, "pass the document as an argument or with --file, not both")
	case len(args) == 1:
		doc = args[0]
	case opts.File != "":
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return schema.Request{}, WrapExitError(ExitCommandError, "read query file", err)
		}
		doc = string(data)
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return schema.Request{}, WrapExitError(ExitCommandError, "read query from stdin", err)
		}
		doc = string(data)
	}
	if strings.TrimSpace(doc) == "" {
		return schema.Request{}, NewExitError(ExitCommandError, "empty query document")
	}

	req := schema.Request{Query: doc, OperationName: opts.Operation}
	if opts.Variables != "" {
		if err := json.Unmarshal([]byte(opts.Variables), &req.Variables); err != nil {
			return schema.Request{}, WrapExitError(ExitCommandError, "parse --vars", err)
		}
	}
	return req, nil
}

func executeLocal(ctx context.Context, rootOpts *RootOptions, opts *QueryOptions, req schema.Request) (*graphql.Result, error) {
	s, err := rootOpts.buildSchema(ctx)
	if err != nil {
		return nil, err
	}
	cfg := s.Context().Configuration()

	st := store.New()
	defer st.Close()

	if _, err := rootOpts.seed(ctx, opts.Records, cfg, st); err != nil {
		return nil, err
	}
	if opts.Fixtures > 0 {
		recs, err := fixtures.Generate(cfg, opts.Fixtures, idgen.Default())
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "generate fixtures", err)
		}
		if err := st.Append(recs...); err != nil {
			return nil, WrapExitError(ExitFailure, "seed fixtures", err)
		}
	}

	return s.Execute(schema.WithRecords(ctx, st), req), nil
}

func executeRemote(ctx context.Context, opts *QueryOptions, req schema.Request) (map[string]any, error) {
	conn, err := grpc.NewClient(opts.Server, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", opts.Server, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	return server.NewQueryClient(conn).Execute(ctx, req)
}
