// Package errors provides an API for errors across the application.
package errors

import (
	"context"
	goerrors "errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// RequestError carries the HTTP status code a handler should respond with.
type RequestError struct {
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	return e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// ValidationError is returned when user input is rejected. The store that
// returned it is left unchanged.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, format string, a ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, a...)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IndexError is returned when a positional removal is out of range.
type IndexError struct {
	Index  int
	Length int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %d out of range, have %d entries", e.Index, e.Length)
}

// PersistenceCorruption describes a stored blob that could not be decoded.
// Stores log it and continue with an empty state.
type PersistenceCorruption struct {
	Key string
	Err error
}

func (e *PersistenceCorruption) Error() string {
	return fmt.Sprintf("stored data under %q is unreadable: %s", e.Key, e.Err)
}

func (e *PersistenceCorruption) Unwrap() error {
	return e.Err
}

// ProviderUnavailable wraps failures of the chain status provider.
type ProviderUnavailable struct {
	Op  string
	Err error
}

func (e *ProviderUnavailable) Error() string {
	return fmt.Sprintf("status provider unavailable (%s): %s", e.Op, e.Err)
}

func (e *ProviderUnavailable) Unwrap() error {
	return e.Err
}

func IsValidation(err error) bool {
	var v *ValidationError
	return goerrors.As(err, &v)
}

func IsIndex(err error) bool {
	var v *IndexError
	return goerrors.As(err, &v)
}

func IsProviderUnavailable(err error) bool {
	var v *ProviderUnavailable
	return goerrors.As(err, &v)
}

// StatusCode maps an error to the HTTP status a handler responds with.
func StatusCode(err error) int {
	var reqErr *RequestError
	switch {
	case goerrors.As(err, &reqErr):
		return reqErr.StatusCode
	case IsValidation(err):
		return http.StatusBadRequest
	case IsIndex(err):
		return http.StatusNotFound
	case IsProviderUnavailable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// IsChainConnectionError reports whether err looks like the JSON-RPC node
// could not be reached, as opposed to the node answering with an error.
func IsChainConnectionError(err error) bool {
	if err == nil {
		return false
	}

	if goerrors.Is(err, context.DeadlineExceeded) || goerrors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var netErr net.Error
	if goerrors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "no such host", "connection reset", "429 too many requests", "503 service unavailable"} {
		if strings.Contains(msg, s) {
			return true
		}
	}

	return false
}
