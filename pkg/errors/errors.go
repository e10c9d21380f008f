package errors

import (
	"errors"
	"fmt"
)

// Class is the failure class of a fetch attempt
type Class string

const (
	ClassTransport         Class = "transport_error"
	ClassRateLimited       Class = "rate_limited"
	ClassServerError       Class = "server_error"
	ClassMalformedResponse Class = "malformed_response"
	ClassFatal             Class = "fatal"
)

// Error represents a classified API error
type Error struct {
	Class   Class
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error (code %d): %s: %v", e.Class, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error (code %d): %s", e.Class, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error
func New(class Class, code int, message string) *Error {
	return &Error{Class: class, Message: message, Code: code}
}

// Wrap creates a classified error around a cause
func Wrap(class Class, code int, message string, err error) *Error {
	return &Error{Class: class, Message: message, Code: code, Err: err}
}

// IsRetryable checks if a failure class should be retried
func IsRetryable(class Class) bool {
	switch class {
	case ClassTransport, ClassRateLimited, ClassServerError, ClassMalformedResponse:
		return true
	default:
		return false
	}
}

// ClassOf returns the class carried by err. Unclassified errors are fatal.
func ClassOf(err error) Class {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Class
	}
	return ClassFatal
}

// ClassForStatus maps an HTTP status code to a failure class.
// The second return value is false for non-error statuses.
func ClassForStatus(statusCode int) (Class, bool) {
	switch {
	case statusCode == 429:
		return ClassRateLimited, true
	case statusCode >= 500:
		return ClassServerError, true
	case statusCode >= 400:
		return ClassFatal, true
	default:
		return "", false
	}
}
