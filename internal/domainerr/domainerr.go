// Package domainerr holds the error vocabulary shared by services and transport.
// Stores and services return these (optionally wrapped); handlers map them to status codes.
package domainerr

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrConsentRequired = errors.New("donor has not consented to share contact")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrValidation      = errors.New("validation failed")

	ErrInvalidFormat = errors.New("invalid sms reply format")
	// ErrInvalidToken is also an ErrInvalidFormat.
	ErrInvalidToken = &tokenError{}
	ErrUnknownPhone = errors.New("unknown sender phone")
	ErrNotADonor    = errors.New("sender is not a donor")
)

type tokenError struct{}

func (*tokenError) Error() string { return "unknown sms reply token" }

func (*tokenError) Is(target error) bool { return target == ErrInvalidFormat }

// ValidationError carries field-level messages. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func NewValidation() *ValidationError {
	return &ValidationError{Fields: map[string]string{}}
}

// Field records a problem for name and returns the receiver for chaining.
func (e *ValidationError) Field(name, msg string) *ValidationError {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	e.Fields[name] = msg
	return e
}

// OrNil returns nil when no field was recorded.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, k := range names {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid is shorthand for a single-field validation error.
func Invalid(field, msg string) error {
	return NewValidation().Field(field, msg)
}

// AsValidation extracts the field map from err, if any.
func AsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
