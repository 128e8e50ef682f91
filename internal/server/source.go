package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aleics/gql-dyn/internal/compiler"
	"github.com/aleics/gql-dyn/internal/ir"
	"github.com/aleics/gql-dyn/internal/schema"
)

// SchemaSource hands out the schema a request executes against.
type SchemaSource interface {
	Schema(ctx context.Context) (*schema.Schema, error)
}

// SchemaCatalog provides the configuration of the schema a SchemaSource
// currently serves. Writes validated against it only admit kinds the
// dispatcher can resolve, even when the catalog file has changed since a
// static schema was built.
type SchemaCatalog struct {
	Source SchemaSource
}

var _ compiler.Provider = SchemaCatalog{}

// Provide implements compiler.Provider.
func (c SchemaCatalog) Provide(ctx context.Context) (ir.Configuration, error) {
	sch, err := c.Source.Schema(ctx)
	if err != nil {
		return nil, err
	}
	return sch.Context().Configuration(), nil
}

// StaticSource generates the schema once, on first use, and reuses it.
type StaticSource struct {
	provider  compiler.Provider
	generator *schema.Generator

	once   sync.Once
	schema *schema.Schema
	err    error
}

// NewStaticSource returns a source that generates from provider once.
func NewStaticSource(provider compiler.Provider, generator *schema.Generator) *StaticSource {
	return &StaticSource{provider: provider, generator: generator}
}

// Schema implements SchemaSource. A failed first build is returned for
// every later call as well.
func (s *StaticSource) Schema(ctx context.Context) (*schema.Schema, error) {
	s.once.Do(func() {
		cfg, err := s.provider.Provide(ctx)
		if err != nil {
			s.err = fmt.Errorf("load catalog: %w", err)
			return
		}
		s.schema, s.err = s.generator.Generate(cfg)
	})
	return s.schema, s.err
}

// PerRequestSource re-reads the catalog and generates a fresh schema on
// every call, each with its own registry. Useful while editing a catalog.
type PerRequestSource struct {
	provider  compiler.Provider
	generator *schema.Generator
	logger    *slog.Logger

	mu   sync.Mutex
	last string
}

// NewPerRequestSource returns a source that regenerates on every call.
func NewPerRequestSource(provider compiler.Provider, generator *schema.Generator, logger *slog.Logger) *PerRequestSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &PerRequestSource{provider: provider, generator: generator, logger: logger}
}

// Schema implements SchemaSource.
func (s *PerRequestSource) Schema(ctx context.Context) (*schema.Schema, error) {
	cfg, err := s.provider.Provide(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	sch, err := s.generator.Generate(cfg)
	if err != nil {
		return nil, err
	}

	fp := sch.Context().Fingerprint()
	s.mu.Lock()
	changed := s.last != "" && s.last != fp
	s.last = fp
	s.mu.Unlock()
	if changed {
		s.logger.Info("catalog changed", "fingerprint", fp, "kinds", len(sch.Context().Kinds()))
	}
	return sch, nil
}
