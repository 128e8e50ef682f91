package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aleics/gql-dyn/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string

	v   *viper.Viper
	cfg config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the gqldyn CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&ServeOptions{})
}

func newRootCommand(serveOpts *ServeOptions) *cobra.Command {
	opts := &RootOptions{v: config.New()}

	cmd := &cobra.Command{
		Use:   "gqldyn",
		Short: "gqldyn - runtime GraphQL schemas from a kind catalog",
		Long: `Generate a GraphQL schema at runtime from a catalog of record kinds.

Every kind becomes an object type implementing a shared interface, and a
single list field returns stored records of every kind. The catalog can be
CUE, YAML, TOML or JSON; without one the built-in Cat/Dog/Elephant catalog
is used.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.resolve(cmd); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
				return err
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (yaml, toml or json)")
	cmd.PersistentFlags().String(config.KeyCatalog, "", "catalog file or CUE directory (default: built-in zoo)")
	cmd.PersistentFlags().String(config.KeyInterface, "Animal", "name of the shared interface")
	cmd.PersistentFlags().String(config.KeyListField, "animals", "name of the query list field")
	cmd.PersistentFlags().String(config.KeyLogLevel, "info", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().String(config.KeyLogFormat, "text", "log format (text|json)")

	cmd.AddCommand(newServeCommand(opts, serveOpts))
	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewKindsCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewFixturesCommand(opts))

	return cmd
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// resolve validates global flags, loads the configuration and installs the
// default logger.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	if !slices.Contains(ValidFormats, o.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}
	if err := config.BindFlags(o.v, cmd.Flags()); err != nil {
		return WrapExitError(ExitCommandError, "bind flags", err)
	}
	cfg, err := config.Load(o.v, o.ConfigFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
	}
	o.cfg = cfg
	slog.SetDefault(cfg.NewLogger(cmd.ErrOrStderr()))
	return nil
}
