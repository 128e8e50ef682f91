package compiler

import (
	"errors"
	"fmt"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/aleics/gql-dyn/internal/ir"
)

// CompileError represents a catalog error with source position.
// Pos is only valid for CUE catalogs; other formats report the dotted
// path of the offending entry in Field.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsCompileError reports whether err wraps a CompileError.
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &CompileError{Field: "cue", Message: err.Error()}
	}

	first := errs[0]
	positions := cueerrors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return &CompileError{Field: "cue", Message: first.Error()}
}

// fromConfigError converts a configuration validation failure into a
// CompileError addressed by kinds.<Kind>[.<field>].
func fromConfigError(err error, pos token.Pos) error {
	var ce *ir.ConfigError
	if !errors.As(err, &ce) {
		return err
	}
	field := "kinds"
	if ce.Kind != "" {
		field += "." + string(ce.Kind)
	}
	if ce.Field != "" {
		field += "." + ce.Field
	}
	return &CompileError{Field: field, Message: ce.Message, Pos: pos}
}
