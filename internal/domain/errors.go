package domain

import "errors"

// Sentinel errors surfaced by the services. Handlers translate these to
// HTTP statuses; repositories wrap their driver errors into them.
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrTaskNotFound         = errors.New("task not found")
	ErrTaskAlreadyCompleted = errors.New("task already completed")
)

// ValidationError carries field-scoped validation messages. It is rendered
// as a 422 with a field -> messages mapping.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	return "invalid data"
}

// NewValidationError builds a ValidationError for a single field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string][]string{field: {message}}}
}

// ErrInvalidCredentials is the login failure. It is a validation error on
// the password field regardless of whether the email exists, so login
// responses never reveal which accounts are registered.
func ErrInvalidCredentials() *ValidationError {
	return NewValidationError("password", "Invalid password.")
}
