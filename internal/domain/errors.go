package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingInput means origin or destination was absent; the attempt is skipped.
	ErrMissingInput = errors.New("origin and destination are required")

	// ErrServiceError means the service answered with a status other than OK.
	ErrServiceError = errors.New("directions service error")

	// ErrNoRouteFound means the service answered OK with an empty route list.
	ErrNoRouteFound = errors.New("no route found")

	// ErrTransport covers network failures and unreadable response bodies.
	ErrTransport = errors.New("directions transport error")

	// ErrInvalidPolyline means an encoded path ended mid-value.
	ErrInvalidPolyline = errors.New("invalid encoded polyline")
)

// unknownServiceError is reported when the service omits error_message.
const unknownServiceError = "Unknown error"

// ServiceError carries the status and message returned by the directions service.
type ServiceError struct {
	Status  string
	Message string
}

// NewServiceError builds a ServiceError, falling back to a generic message.
func NewServiceError(status, message string) *ServiceError {
	if message == "" {
		message = unknownServiceError
	}
	return &ServiceError{Status: status, Message: message}
}

func (e *ServiceError) Error() string {
	if e.Status == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Status, e.Message)
}

func (e *ServiceError) Is(target error) bool { return target == ErrServiceError }

// TransportError wraps a network or decode failure. StatusCode is the HTTP
// status when a response was received, 0 otherwise.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("directions transport error: status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("directions transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() []error { return []error{ErrTransport, e.Err} }
