package utils

import (
	"errors"
	"net/http"
)

// Common application errors used across services. Services wrap them with
// detail via fmt.Errorf("%w: ...") and callers classify with errors.Is.
var (
	ErrValidation         = errors.New("VALIDATION_ERROR")
	ErrNotFound           = errors.New("NOT_FOUND")
	ErrInvalidState       = errors.New("INVALID_STATE")
	ErrConflict           = errors.New("CONFLICT")
	ErrConfiguration      = errors.New("CONFIGURATION_ERROR")
	ErrForbidden          = errors.New("FORBIDDEN")
	ErrInvalidCredentials = errors.New("INVALID_CREDENTIALS")
	ErrInvalidToken       = errors.New("INVALID_TOKEN")
)

var errorStatus = []struct {
	err    error
	status int
}{
	{ErrValidation, http.StatusBadRequest},
	{ErrNotFound, http.StatusNotFound},
	{ErrInvalidState, http.StatusConflict},
	{ErrConflict, http.StatusConflict},
	{ErrConfiguration, http.StatusInternalServerError},
	{ErrForbidden, http.StatusForbidden},
	{ErrInvalidCredentials, http.StatusUnauthorized},
	{ErrInvalidToken, http.StatusUnauthorized},
}

// Classify maps an error onto an HTTP status and API error code. Unknown
// errors are reported as INTERNAL_ERROR.
func Classify(err error) (int, string) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status, e.err.Error()
		}
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}
