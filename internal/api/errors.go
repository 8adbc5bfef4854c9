package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnavailable means no authenticated client could be produced. The
	// stored session may still be valid.
	ErrUnavailable = errors.New("authenticated client unavailable")
	// ErrSessionInvalid means the session is gone: the refresh token was
	// missing or rejected, and persisted session data has been cleared.
	ErrSessionInvalid = errors.New("session invalid")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
	Method  string
	Path    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

// HasMessage reports whether the server sent a structured message.
func (e *APIError) HasMessage() bool {
	return e.Message != ""
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
