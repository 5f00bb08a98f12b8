package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the lookup taxonomy.
var (
	ErrInvalidMarca = errors.New("invalid marca")
	ErrMarcaEmpty   = errors.New("marca is required")
	ErrNotFound     = errors.New("aircraft not found")
	ErrUpstream     = errors.New("upstream failure")
)

// ValidationError wraps a sentinel with context.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// Is reports every ValidationError as ErrInvalidMarca so callers can
// branch on a single sentinel for client input errors.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidMarca }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}

// NotFoundError reports that the registry has no record for Marca.
type NotFoundError struct {
	Marca string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s", ErrNotFound, e.Marca)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// UpstreamError wraps a fetch or parse failure. Its message carries the
// underlying cause so it can be surfaced to API callers.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// Upstream wraps err as an UpstreamError unless it already is one.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return err
	}
	return &UpstreamError{Op: op, Err: err}
}
