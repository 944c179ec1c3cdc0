package company

import "errors"

var (
	ErrNotFound        = errors.New("company not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrValidation      = errors.New("validation error")
	ErrNoPhones        = errors.New("a company must have at least one phone")
	ErrCityOutOfScope  = errors.New("the selected city is outside your country")
	ErrEmptyComment    = errors.New("comment cannot be empty")
	ErrCommentTooLong  = errors.New("short comment cannot exceed 500 characters")
	ErrBadDate         = errors.New("invalid date format, expected YYYY-MM-DD")
)

// ValidationError carries per-field messages for the form.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
