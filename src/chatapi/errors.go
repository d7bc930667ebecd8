package chatapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Common error variables
var (
	// ErrConversationNotFound indicates the conversation doesn't exist on the server
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrUnauthorized indicates the session or visitor credential was rejected
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNoIdentity indicates neither a session token nor a visitor id is available
	ErrNoIdentity = errors.New("no session or visitor identity available")

	// ErrEmptyResponse indicates the API returned an empty response
	ErrEmptyResponse = errors.New("empty response from API")
)

// ErrorResponse represents a standard error response from the API.
// Matches the service error format: {"error":{"message":"...","code":"..."}}
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// APIError represents an error response from the conversation service.
type APIError struct {
	StatusCode int
	Message    string `json:"message"`
	Code       string `json:"code"`
	RequestID  string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// IsTransient returns true if the error is a transient delivery error:
// a server-side failure or throttling that a later retry may clear.
func (e *APIError) IsTransient() bool {
	if e.StatusCode >= 500 && e.StatusCode < 600 {
		return true
	}
	if e.StatusCode == http.StatusTooManyRequests {
		return true
	}
	switch e.Code {
	case "timeout", "connection_error", "server_error":
		return true
	}
	return false
}

// IsAuthError returns true if this is an authentication error.
func (e *APIError) IsAuthError() bool {
	return e.StatusCode == http.StatusUnauthorized || e.Code == "invalid_credentials"
}

// Is implements error matching against the sentinel errors.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrConversationNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}

// IsTransient classifies an error as a transient delivery error: network
// failures, timeouts and server 5xx responses. The sync queue reschedules
// these; everything it delivers is retried until the attempt ceiling, so the
// classification only affects logging detail.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsTransient()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// url.Error and friends wrap transport failures
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
