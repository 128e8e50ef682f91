package schema

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/graphql-go/graphql"

	"github.com/aleics/gql-dyn/internal/ir"
)

const (
	// DefaultInterfaceName is the shared interface every kind implements.
	DefaultInterfaceName = "Animal"

	// DefaultListField is the query field listing all records.
	DefaultListField = "animals"
)

// Generator turns a Configuration into an executable schema. A Generator
// holds no state between calls; every Generate builds a fresh registry.
type Generator struct {
	interfaceName string
	listField     string
	logger        *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithInterfaceName overrides the name of the shared interface.
func WithInterfaceName(name string) Option {
	return func(g *Generator) { g.interfaceName = name }
}

// WithListField overrides the name of the query list field.
func WithListField(name string) Option {
	return func(g *Generator) { g.listField = name }
}

// WithLogger sets the logger used for build diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) { g.logger = logger }
}

// NewGenerator creates a generator with the default Animal/animals naming.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		interfaceName: DefaultInterfaceName,
		listField:     DefaultListField,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate builds a schema from cfg: the shared interface, one object type
// per kind registered exactly once, and the query root. The configuration is
// copied, so later changes to cfg never affect the returned schema.
func (g *Generator) Generate(cfg ir.Configuration) (*Schema, error) {
	if err := ir.ValidateName(g.interfaceName); err != nil {
		return nil, &ir.ConfigError{Message: fmt.Sprintf("interface name: %v", err)}
	}
	if err := ir.ValidateName(g.listField); err != nil {
		return nil, &ir.ConfigError{Message: fmt.Sprintf("list field: %v", err)}
	}
	if g.interfaceName == QueryTypeName {
		return nil, &ir.ConfigError{Message: "interface name collides with the query type"}
	}
	if err := ir.ValidateConfiguration(cfg, g.interfaceName, QueryTypeName); err != nil {
		return nil, err
	}

	sc, err := newSchemaContext(cfg)
	if err != nil {
		return nil, err
	}

	dispatcher := newDispatcher(g.interfaceName, sc)
	reg := newRegistry(dispatcher.Interface())
	dispatcher.bind(reg)

	kinds := sc.Kinds()
	for _, kind := range kinds {
		tc, _ := sc.TypeContext(kind)
		reg.getOrRegister(tc)
	}

	query := newQueryRoot(g.listField, dispatcher.Interface())
	gql, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: query,
		Types: reg.types(kinds),
	})
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}

	g.logger.Debug("schema generated",
		"kinds", len(kinds),
		"interface", g.interfaceName,
		"fingerprint", sc.Fingerprint(),
	)

	return &Schema{
		context:    sc,
		gql:        gql,
		dispatcher: dispatcher,
		registry:   reg,
		query:      query,
		listField:  g.listField,
	}, nil
}

// Schema is one generated schema together with the snapshot it was built
// from. It is safe for concurrent use.
type Schema struct {
	context    *SchemaContext
	gql        graphql.Schema
	dispatcher *Dispatcher
	registry   *registry
	query      *graphql.Object
	listField  string
}

// Request is a single GraphQL operation.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// Execute runs req against the schema. Records are read from the source
// bound to ctx with WithRecords.
func (s *Schema) Execute(ctx context.Context, req Request) *graphql.Result {
	return graphql.Do(graphql.Params{
		Schema:         s.gql,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	})
}

// Context returns the configuration snapshot of the schema.
func (s *Schema) Context() *SchemaContext { return s.context }

// GraphQL returns the underlying graphql-go schema.
func (s *Schema) GraphQL() graphql.Schema { return s.gql }

// Dispatcher returns the interface dispatcher of the schema.
func (s *Schema) Dispatcher() *Dispatcher { return s.dispatcher }

// Object returns the concrete type registered for kind.
func (s *Schema) Object(kind ir.KindID) (*graphql.Object, bool) {
	return s.registry.lookup(kind)
}

// InterfaceName returns the name of the shared interface.
func (s *Schema) InterfaceName() string { return s.dispatcher.Interface().Name() }

// ListField returns the name of the query list field.
func (s *Schema) ListField() string { return s.listField }
