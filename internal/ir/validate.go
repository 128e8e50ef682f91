package ir

import (
	"errors"
	"fmt"
)

// ValidationCode categorizes record validation failures.
type ValidationCode string

const (
	// ValidationUnknownKind means the record's kind is not configured.
	ValidationUnknownKind ValidationCode = "UNKNOWN_KIND"

	// ValidationUnknownField means the record carries an undeclared field.
	ValidationUnknownField ValidationCode = "UNKNOWN_FIELD"

	// ValidationTypeMismatch means a value's tag differs from the declared type.
	ValidationTypeMismatch ValidationCode = "TYPE_MISMATCH"

	// ValidationMissingID means the record has no id.
	ValidationMissingID ValidationCode = "MISSING_ID"

	// ValidationDuplicateID means two records in one batch share an id.
	ValidationDuplicateID ValidationCode = "DUPLICATE_ID"
)

// ValidationError reports a record that does not conform to a Configuration.
type ValidationError struct {
	Code     ValidationCode
	RecordID string
	Kind     KindID
	Field    string
	Message  string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: record %q (%s) field %s: %s", e.Code, e.RecordID, e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: record %q (%s): %s", e.Code, e.RecordID, e.Kind, e.Message)
}

// IsValidationError reports whether err wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ValidateRecord checks r against cfg: the kind must be configured, every
// carried field must be declared, and every value must match its declared
// type. Declared fields may be absent. Fields are checked in name order, so
// a record with several bad fields always reports the same one.
func ValidateRecord(cfg Configuration, r Record) error {
	if r.ID == "" {
		return &ValidationError{Code: ValidationMissingID, Kind: r.Kind, Message: "record id is required"}
	}
	ks, ok := cfg.Lookup(r.Kind)
	if !ok {
		return &ValidationError{
			Code:     ValidationUnknownKind,
			RecordID: r.ID,
			Kind:     r.Kind,
			Message:  "kind is not configured",
		}
	}
	for _, field := range r.FieldNames() {
		v := r.Fields[field]
		want, declared := ks.Lookup(field)
		if !declared {
			return &ValidationError{
				Code:     ValidationUnknownField,
				RecordID: r.ID,
				Kind:     r.Kind,
				Field:    field,
				Message:  "field is not declared for this kind",
			}
		}
		if v == nil || v.Type() != want {
			got := "null"
			if v != nil {
				got = string(v.Type())
			}
			return &ValidationError{
				Code:     ValidationTypeMismatch,
				RecordID: r.ID,
				Kind:     r.Kind,
				Field:    field,
				Message:  fmt.Sprintf("expected %s, got %s", want, got),
			}
		}
	}
	return nil
}

// ValidateRecords validates every record and rejects duplicate ids within
// the batch. It returns the first failure.
func ValidateRecords(cfg Configuration, records []Record) error {
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		if err := ValidateRecord(cfg, r); err != nil {
			return err
		}
		if seen[r.ID] {
			return &ValidationError{
				Code:     ValidationDuplicateID,
				RecordID: r.ID,
				Kind:     r.Kind,
				Message:  "record id appears more than once",
			}
		}
		seen[r.ID] = true
	}
	return nil
}
