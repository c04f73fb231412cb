package service

import "errors"

// ErrNotFound is returned when the requested resource does not exist.
var ErrNotFound = errors.New("service: not found")

// ErrConflict is returned when the transactional booking check finds the
// interval already occupied. The client must re-resolve slots; the request
// is never retried automatically.
var ErrConflict = errors.New("service: slot no longer available")

// ValidationError carries field-level issues that callers surface to users.
// Validation failures are rejected before any side effect.
type ValidationError struct {
	FieldErrors map[string]string
}

func (v *ValidationError) Error() string {
	return "validation failed"
}

// NewValidationError creates a single-field validation error.
func NewValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, message)
	return v
}

// Add records a field-level validation error.
func (v *ValidationError) Add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// HasErrors reports whether any field-level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// AsValidation unwraps err into a *ValidationError if it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
