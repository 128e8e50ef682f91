package cli

import (
	"github.com/spf13/cobra"

	"github.com/aleics/gql-dyn/internal/schema"
)

// SchemaResult is the JSON payload of the schema command.
type SchemaResult struct {
	Fingerprint string       `json:"fingerprint"`
	SDL         string       `json:"sdl"`
	Shape       schema.Shape `json:"shape"`
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the generated schema in SDL",
		Long: `Compile the catalog, generate the schema and print it in GraphQL schema
definition language. With --format json the type shape and catalog
fingerprint are included.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			s, err := rootOpts.buildSchema(cmd.Context())
			if err != nil {
				return fail(f, err)
			}
			f.VerboseLog("generated %d kind types", len(s.Context().Kinds()))

			sdl := s.SDL()
			return f.SuccessText(sdl, SchemaResult{
				Fingerprint: s.Context().Fingerprint(),
				SDL:         sdl,
				Shape:       s.Shape(),
			})
		},
	}
}
