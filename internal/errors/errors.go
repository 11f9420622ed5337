package errors

import (
	"errors"
	"fmt"
)

// UserError represents an error with both technical and user-friendly messages
type UserError struct {
	Err       error
	UserMsg   string
	Retryable bool
}

func (e *UserError) Error() string {
	return e.Err.Error()
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// Predefined errors
var (
	ErrUnauthorized = &UserError{
		Err:       errors.New("unauthorized user"),
		UserMsg:   "No estás autorizado para usar este bot.",
		Retryable: false,
	}

	ErrInsufficientCredits = &UserError{
		Err:       errors.New("insufficient credits"),
		UserMsg:   "No tienes créditos suficientes para esta consulta.",
		Retryable: false,
	}

	ErrAdminOnly = &UserError{
		Err:       errors.New("admin-only command"),
		UserMsg:   "Este comando solo está disponible para el administrador.",
		Retryable: false,
	}

	ErrLookupTimeout = &UserError{
		Err:       errors.New("lookup timed out awaiting provider callback"),
		UserMsg:   "La consulta expiró sin respuesta del proveedor. Intenta de nuevo.",
		Retryable: true,
	}
)

// ProviderError carries the provider's raw response so a failed submission
// can echo it back to the user.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider returned %d: %s", e.StatusCode, e.Body)
}

// Wrap wraps a technical error with a user message
func Wrap(err error, userMsg string, retryable bool) *UserError {
	return &UserError{
		Err:       err,
		UserMsg:   userMsg,
		Retryable: retryable,
	}
}

// GetUserMessage extracts user-friendly message from error
func GetUserMessage(err error) string {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.UserMsg
	}
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return fmt.Sprintf("El proveedor rechazó la consulta (%d):\n%s", provErr.StatusCode, provErr.Body)
	}
	// Default message for unexpected errors
	return "Ocurrió un error inesperado. Intenta de nuevo más tarde."
}

// IsRetryable checks if an error can be retried
func IsRetryable(err error) bool {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.Retryable
	}
	return false
}
