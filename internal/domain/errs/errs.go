// Package errs holds the error kinds shared by generation, training and
// prediction. Callers match kinds with errors.Is.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel error kinds.
var (
	ErrNotFound         = errors.New("not found")
	ErrCorruptArtifact  = errors.New("corrupt artifact")
	ErrValidation       = errors.New("validation error")
	ErrMissingField     = errors.New("missing field")
	ErrInsufficientData = errors.New("insufficient data")
)

// KindError attaches an operation name and a kind to an underlying error.
type KindError struct {
	Op   string
	Kind error
	Err  error
}

func (e *KindError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *KindError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewKind returns an error of the given kind for op.
func NewKind(op string, kind error) error {
	return &KindError{Op: op, Kind: kind}
}

// WrapKind wraps err with op and kind. A nil err yields nil.
func WrapKind(op string, kind error, err error) error {
	if err == nil {
		return nil
	}
	return &KindError{Op: op, Kind: kind, Err: err}
}

// FieldError reports a problem with one named input field.
type FieldError struct {
	Kind  error
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	switch {
	case errors.Is(e.Kind, ErrMissingField):
		return fmt.Sprintf("missing field %q", e.Field)
	case e.Err != nil:
		return fmt.Sprintf("invalid value %q for field %q: %v", e.Value, e.Field, e.Err)
	default:
		return fmt.Sprintf("invalid value %q for field %q", e.Value, e.Field)
	}
}

// Unwrap exposes the kind and the parse cause.
func (e *FieldError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Invalid builds a validation FieldError.
func Invalid(field, value string, cause error) error {
	return &FieldError{Kind: ErrValidation, Field: field, Value: value, Err: cause}
}

// Missing builds a missing-field FieldError.
func Missing(field string) error {
	return &FieldError{Kind: ErrMissingField, Field: field}
}

// FieldOf returns the offending field name carried by err, if any.
func FieldOf(err error) (string, bool) {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe.Field, true
	}
	return "", false
}

// KindName maps err to a short label for metrics and API error codes.
func KindName(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrCorruptArtifact):
		return "corrupt_artifact"
	case errors.Is(err, ErrMissingField):
		return "missing_field"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrInsufficientData):
		return "insufficient_data"
	default:
		return "internal"
	}
}
