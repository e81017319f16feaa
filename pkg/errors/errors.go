package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")

	// ErrLoadFailed covers photo library page fetches that could not complete.
	// Already-loaded session state stays intact; clients retry.
	ErrLoadFailed = New("LOAD_FAILED", http.StatusBadGateway, "photo library load failed")
	// ErrPersistFailed covers key-value snapshot writes. Logged and swallowed;
	// in-memory state stays authoritative, only cross-restart durability is
	// affected.
	ErrPersistFailed = New("PERSIST_FAILED", http.StatusInternalServerError, "decision snapshot write failed")
	// ErrPurgeFailed covers permanent-delete calls that failed or were
	// cancelled. The affected entries remain in the deleted list.
	ErrPurgeFailed = New("PURGE_FAILED", http.StatusBadGateway, "permanent delete failed")
	// ErrNoSession is returned when session operations arrive before start.
	ErrNoSession = New("NO_SESSION", http.StatusNotFound, "no active review session")

	// ErrKeyMiss is the sentinel for absent keys in the key-value store.
	ErrKeyMiss = New("KEY_MISS", http.StatusNotFound, "key not found")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
