package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInactive           = errors.New("this account is disabled")
	ErrNotFound           = errors.New("user not found")
	ErrSelfDelete         = errors.New("you cannot delete your own account")
	ErrValidation         = errors.New("validation error")
)

// ValidationError carries per-field messages for the form.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func fieldError(field, msg string) error {
	return &ValidationError{Message: msg, Fields: map[string]string{field: msg}}
}
