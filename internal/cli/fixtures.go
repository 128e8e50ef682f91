package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aleics/gql-dyn/internal/fixtures"
	"github.com/aleics/gql-dyn/internal/idgen"
	"github.com/aleics/gql-dyn/internal/ir"
	"github.com/aleics/gql-dyn/internal/store"
)

// FixturesResult is the JSON payload of the fixtures command.
type FixturesResult struct {
	Written int               `json:"written"`
	Out     string            `json:"out"`
	PerKind map[ir.KindID]int `json:"per_kind"`
}

// NewFixturesCommand creates the fixtures command.
func NewFixturesCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		amount int
		out    string
		prefix string
	)

	cmd := &cobra.Command{
		Use:   "fixtures",
		Short: "Generate sample records for the catalog",
		Long: `Generate sample records, split evenly over the kinds of the catalog, and
write them to a record source. Each record carries a value for every
declared field. With --out - (the default) records are printed as JSONL.`,
		Example: `  gqldyn fixtures --amount 9 --out zoo.jsonl
  gqldyn fixtures --amount 300 --out sqlite://zoo.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			ctx := cmd.Context()

			cfg, err := rootOpts.loadCatalog(ctx)
			if err != nil {
				return fail(f, err)
			}
			recs, err := fixtures.Generate(cfg, amount, idgen.Nanoid{Prefix: prefix})
			if err != nil {
				return fail(f, WrapExitError(ExitCommandError, "generate fixtures", err))
			}

			if out == "-" {
				if err := store.WriteJSONL(cmd.OutOrStdout(), recs); err != nil {
					return fail(f, WrapExitError(ExitCommandError, "write records", err))
				}
				return nil
			}

			be, err := openBackend(ctx, out, rootOpts.cfg)
			if err != nil {
				return fail(f, WrapExitError(ExitCommandError, "open records", err))
			}
			defer be.Close()
			if err := be.write(ctx, recs); err != nil {
				_ = f.Error(ErrCodeWriteFailed, fmt.Sprintf("write %s: %v", out, err), nil)
				return WrapExitError(ExitCommandError, "write records", err)
			}

			perKind := make(map[ir.KindID]int)
			for _, rec := range recs {
				perKind[rec.Kind]++
			}
			result := FixturesResult{Written: len(recs), Out: out, PerKind: perKind}
			if f.Format == "json" {
				return f.Success(result)
			}
			return f.Success(fmt.Sprintf("Wrote %d records to %s", len(recs), out))
		},
	}

	cmd.Flags().IntVarP(&amount, "amount", "n", 3, "number of records to generate")
	cmd.Flags().StringVarP(&out, "out", "o", "-", "destination (JSONL path, sqlite://, postgres://, s3://, or - for stdout)")
	cmd.Flags().StringVar(&prefix, "id-prefix", idgen.DefaultPrefix, "prefix of generated record ids")
	return cmd
}
