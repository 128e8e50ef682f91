package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/aleics/gql-dyn/internal/compiler"
	"github.com/aleics/gql-dyn/internal/ir"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool              `json:"valid"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	Kinds       int               `json:"kinds"`
	Records     int               `json:"records"`
	Errors      []ValidationIssue `json:"errors,omitempty"`
}

// ValidationIssue is one catalog or record problem.
type ValidationIssue struct {
	Code     string    `json:"code"`
	Message  string    `json:"message"`
	Field    string    `json:"field,omitempty"`
	RecordID string    `json:"record_id,omitempty"`
	Kind     ir.KindID `json:"kind,omitempty"`
	Line     int       `json:"line,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var records string

	cmd := &cobra.Command{
		Use:   "validate [catalog]",
		Short: "Validate a catalog and optionally a record snapshot",
		Long: `Compile the catalog and check that it generates a schema. With --records
every record is also checked against the catalog: the kind must exist,
every field must be declared and every value must match its type.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				rootOpts.cfg.Catalog = args[0]
			}
			return runValidate(cmd, rootOpts, records)
		},
	}
	cmd.Flags().StringVar(&records, "records", "", "record source to validate (JSONL path, sqlite://, postgres://, s3://)")
	return cmd
}

func runValidate(cmd *cobra.Command, opts *RootOptions, records string) error {
	f := opts.formatter(cmd)
	ctx := cmd.Context()

	s, err := opts.buildSchema(ctx)
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) && exitErr.Code == ExitCommandError {
			return fail(f, err)
		}
		return reportInvalid(f, ValidationResult{Errors: []ValidationIssue{issueFor(err)}}, err)
	}
	cfg := s.Context().Configuration()
	result := ValidationResult{
		Valid:       true,
		Fingerprint: s.Context().Fingerprint(),
		Kinds:       len(cfg),
	}

	if records != "" {
		recs, err := loadAll(cmd, opts, records)
		if err != nil {
			return fail(f, err)
		}
		result.Records = len(recs)
		var first error
		for _, rec := range recs {
			if verr := ir.ValidateRecord(cfg, rec); verr != nil {
				result.Errors = append(result.Errors, issueFor(verr))
				if first == nil {
					first = verr
				}
			}
		}
		if first == nil {
			first = ir.ValidateRecords(cfg, recs)
			if first != nil {
				result.Errors = append(result.Errors, issueFor(first))
			}
		}
		if first != nil {
			return reportInvalid(f, result, WrapExitError(ExitFailure, "records are invalid", first))
		}
	}

	f.VerboseLog("catalog fingerprint %s", result.Fingerprint)
	if f.Format == "json" {
		return f.Success(result)
	}
	msg := "Catalog valid"
	if records != "" {
		return f.Success(msg + ", records valid")
	}
	return f.Success(msg)
}

func loadAll(cmd *cobra.Command, opts *RootOptions, uri string) ([]ir.Record, error) {
	be, err := openBackend(cmd.Context(), uri, opts.cfg)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open records", err)
	}
	defer be.Close()

	recs, err := be.Load(cmd.Context())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load records", err)
	}
	return recs, nil
}

func reportInvalid(f *OutputFormatter, result ValidationResult, err error) error {
	result.Valid = false
	if f.Format == "json" {
		_ = f.Error(errorCode(err), "validation failed", result)
	} else {
		for _, issue := range result.Errors {
			_ = f.Error(issue.Code, issue.Message, nil)
		}
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	return WrapExitError(ExitFailure, "validation failed", err)
}

func issueFor(err error) ValidationIssue {
	var ve *ir.ValidationError
	if errors.As(err, &ve) {
		return ValidationIssue{
			Code:     string(ve.Code),
			Message:  ve.Error(),
			Field:    ve.Field,
			RecordID: ve.RecordID,
			Kind:     ve.Kind,
		}
	}
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		issue := ValidationIssue{Code: ErrCodeCatalogInvalid, Message: ce.Error(), Field: ce.Field}
		if ce.Pos.IsValid() {
			issue.Line = ce.Pos.Line()
		}
		return issue
	}
	return ValidationIssue{Code: errorCode(err), Message: err.Error()}
}
