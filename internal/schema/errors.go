package schema

import (
	"errors"
	"fmt"

	"github.com/aleics/gql-dyn/internal/ir"
)

// ResolveErrorCode categorizes query-time failures.
type ResolveErrorCode string

const (
	// ErrCodeUnknownKind indicates a record whose kind has no registered type.
	ErrCodeUnknownKind ResolveErrorCode = "UNKNOWN_KIND"

	// ErrCodeUnknownField indicates a field that is not declared on the type.
	ErrCodeUnknownField ResolveErrorCode = "UNKNOWN_FIELD"

	// ErrCodeTypeMismatch indicates a stored value whose tag differs from the
	// declared field type.
	ErrCodeTypeMismatch ResolveErrorCode = "TYPE_MISMATCH"

	// ErrCodeStoreUnavailable indicates the record store could not be read.
	ErrCodeStoreUnavailable ResolveErrorCode = "STORE_UNAVAILABLE"
)

// ResolveError is reported for a single field or list item. Sibling fields
// and items of the same query still resolve.
type ResolveError struct {
	Code     ResolveErrorCode
	Message  string
	Kind     ir.KindID
	Field    string
	RecordID string
	Err      error
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch {
	case e.Kind != "" && e.Field != "":
		msg = fmt.Sprintf("%s (kind=%s, field=%s)", msg, e.Kind, e.Field)
	case e.Kind != "":
		msg = fmt.Sprintf("%s (kind=%s)", msg, e.Kind)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *ResolveError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ResolveErrorCode) bool {
	var re *ResolveError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsUnknownKind returns true if err is a dispatch failure.
func IsUnknownKind(err error) bool { return hasCode(err, ErrCodeUnknownKind) }

// IsUnknownField returns true if err reports an undeclared field.
func IsUnknownField(err error) bool { return hasCode(err, ErrCodeUnknownField) }

// IsTypeMismatch returns true if err reports a stored value of the wrong type.
func IsTypeMismatch(err error) bool { return hasCode(err, ErrCodeTypeMismatch) }

// IsStoreUnavailable returns true if err reports an unreadable record store.
func IsStoreUnavailable(err error) bool { return hasCode(err, ErrCodeStoreUnavailable) }
