package galaxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error types for common failure scenarios.
var (
	// ErrNotAuthenticated indicates no API key is configured.
	ErrNotAuthenticated = errors.New("not authenticated: no API key configured")

	// ErrNoCredentials indicates no API key could be found in env or files.
	ErrNoCredentials = errors.New("no Galaxy API key found (set GALAXY_API_KEY or run galahad login)")

	// ErrNoHistory indicates the user has no history to run tools in.
	ErrNoHistory = errors.New("no Galaxy history available")
)

// HTTPError represents a non-2xx response from the Galaxy API.
type HTTPError struct {
	StatusCode int
	Body       string

	// Message is err_msg from a Galaxy error body, if present.
	Message string

	// Code is err_code from a Galaxy error body, if present.
	Code int
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	case e.Body != "":
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
}

// IsRetryable returns true for server-side failures and rate limiting.
func (e *HTTPError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// newHTTPError builds an HTTPError, extracting Galaxy's err_msg/err_code.
func newHTTPError(status int, body []byte) *HTTPError {
	e := &HTTPError{StatusCode: status, Body: string(body)}
	var galaxyErr struct {
		Message string `json:"err_msg"`
		Code    int    `json:"err_code"`
	}
	if json.Unmarshal(body, &galaxyErr) == nil {
		e.Message = galaxyErr.Message
		e.Code = galaxyErr.Code
	}
	return e
}

// Error wraps a Galaxy API error with the operation that failed.
type Error struct {
	// Op is the operation that failed.
	Op string

	// Message is the error message.
	Message string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error with the given operation and message.
func NewError(op, message string) *Error {
	return &Error{Op: op, Message: message}
}

// WrapError wraps an error with operation context.
func WrapError(op string, err error) *Error {
	return &Error{Op: op, Err: err, Message: err.Error()}
}

// UserMessage returns the most useful human-readable text for err, preferring
// Galaxy's own err_msg.
func UserMessage(err error) string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.Message != "" {
		return httpErr.Message
	}
	return err.Error()
}

// IsAuthError returns true if the error is an authentication/authorization error.
func IsAuthError(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusUnauthorized || httpErr.StatusCode == http.StatusForbidden
	}
	return errors.Is(err, ErrNotAuthenticated)
}

// IsNotFoundError returns true if the error indicates a resource was not found.
func IsNotFoundError(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound
}

// IsRetryable returns true if the error is likely transient and the request
// should be retried.
func IsRetryable(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.IsRetryable()
	}
	return false
}
