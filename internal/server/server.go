// Package server exposes generated schemas over HTTP (GraphQL, GraphiQL and
// a small REST API) and gRPC.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/aleics/gql-dyn/internal/ingest"
	"github.com/aleics/gql-dyn/internal/store"
)

// Version is reported in the OpenAPI document.
const Version = "0.1.0"

// RequestIDHeader carries the per-request id.
const RequestIDHeader = "X-Request-ID"

// Config for the HTTP handler.
type Config struct {
	Source   SchemaSource
	Store    *store.RecordStore
	Ingest   *ingest.Service // nil disables POST /v1/records
	BasePath string
	Logger   *slog.Logger
}

// New returns an HTTP handler serving GraphQL at /graphql, GraphiQL at /
// and the REST API under BasePath (default /v1).
func New(cfg Config) (http.Handler, error) {
	if cfg.Source == nil {
		return nil, errors.New("server: schema source is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("server: record store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	installErrorEnvelope()

	router := chi.NewRouter()
	router.Use(requestLogger(cfg.Logger))
	router.Use(middleware.Recoverer)

	gql := &graphqlHandler{source: cfg.Source, store: cfg.Store, logger: cfg.Logger}
	router.Get("/", serveGraphiQL)
	router.Get("/graphql", gql.ServeHTTP)
	router.Post("/graphql", gql.ServeHTTP)

	hcfg := huma.DefaultConfig("gql-dyn API", Version)
	hcfg.OpenAPIPath = ""
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group, cfg.Store)
	registerKinds(group, cfg.Source)
	registerListRecords(group, cfg.Store)
	if cfg.Ingest != nil {
		registerAppendRecords(group, cfg.Ingest)
	}
	registerOpenAPI(router, api, basePath)

	return router, nil
}

type requestIDKey struct{}

// RequestID returns the id assigned to the request carrying ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestLogger assigns a UUIDv7 request id (or keeps the caller's) and
// logs one line per request.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				if v7, err := uuid.NewV7(); err == nil {
					id = v7.String()
				} else {
					id = uuid.NewString()
				}
			}
			w.Header().Set(RequestIDHeader, id)

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))

			logger.Info("http request",
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var (
		once sync.Once
		doc  []byte
	)
	r.Get(path.Join(basePath, "openapi.json"), func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { doc, _ = json.Marshal(api.OpenAPI()) })
		w.Header().Set("Content-Type", "application/json")
		w.Write(doc)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
