package settings

import "errors"

var (
	ErrNotFound   = errors.New("record not found")
	ErrValidation = errors.New("validation error")
)

// ValidationError carries per-field messages for the modal form.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func fieldError(field, msg string) error {
	return &ValidationError{Message: msg, Fields: map[string]string{field: msg}}
}
