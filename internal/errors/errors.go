package apierrors

import (
	"net/http"
)

// APIError is a failure that maps to an HTTP status and a stable error code.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Code + ": " + e.Message
	}
	return e.Code
}

func NewAPIError(status int, code string) *APIError {
	return &APIError{Status: status, Code: code, Message: defaultMessages[code]}
}

// WithMessage returns a copy carrying a human readable message.
func (e *APIError) WithMessage(message string) *APIError {
	return &APIError{Status: e.Status, Code: e.Code, Message: message}
}

var (
	ErrInvalidCredentials  = NewAPIError(http.StatusUnauthorized, CodeInvalidCredentials)
	ErrGenerateTokenFailed = NewAPIError(http.StatusInternalServerError, "GENERATE_TOKEN_FAILED")
	ErrInternal            = NewAPIError(http.StatusInternalServerError, CodeInternal)
)
