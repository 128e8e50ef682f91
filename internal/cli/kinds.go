package cli

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/aleics/gql-dyn/internal/ir"
)

// KindRow is one entry of the kinds command output.
type KindRow struct {
	Kind   ir.KindID               `json:"kind"`
	Fields map[string]ir.FieldType `json:"fields"`
	Count  *int                    `json:"count,omitempty"`
}

// NewKindsCommand creates the kinds command.
func NewKindsCommand(rootOpts *RootOptions) *cobra.Command {
	var records string

	cmd := &cobra.Command{
		Use:           "kinds",
		Short:         "List the kinds of the catalog",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKinds(cmd, rootOpts, records)
		},
	}
	cmd.Flags().StringVar(&records, "records", "", "also count records per kind from this source")
	return cmd
}

func runKinds(cmd *cobra.Command, opts *RootOptions, records string) error {
	f := opts.formatter(cmd)
	ctx := cmd.Context()

	cfg, err := opts.loadCatalog(ctx)
	if err != nil {
		return fail(f, err)
	}

	var counts map[ir.KindID]int
	if records != "" {
		counts, err = countRecords(cmd, opts, records)
		if err != nil {
			return fail(f, err)
		}
	}

	header := table.Row{"Kind", "Fields"}
	if counts != nil {
		header = append(header, "Records")
	}
	rows := make([]table.Row, 0, len(cfg))
	data := make([]KindRow, 0, len(cfg))
	for _, kind := range cfg.Kinds() {
		ks := cfg[kind]
		fields := make([]string, 0, len(ks.Fields))
		for _, name := range ks.FieldNames() {
			fields = append(fields, fmt.Sprintf("%s: %s", name, ks.Fields[name]))
		}
		row := table.Row{kind, strings.Join(fields, ", ")}
		entry := KindRow{Kind: kind, Fields: ks.Fields}
		if counts != nil {
			n := counts[kind]
			row = append(row, n)
			entry.Count = &n
		}
		rows = append(rows, row)
		data = append(data, entry)
	}
	return f.Table(header, rows, data)
}

func countRecords(cmd *cobra.Command, opts *RootOptions, uri string) (map[ir.KindID]int, error) {
	be, err := openBackend(cmd.Context(), uri, opts.cfg)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open records", err)
	}
	defer be.Close()

	recs, err := be.Load(cmd.Context())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load records", err)
	}
	counts := make(map[ir.KindID]int)
	for _, rec := range recs {
		counts[rec.Kind]++
	}
	return counts, nil
}
