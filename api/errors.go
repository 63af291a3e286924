// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-sga.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrNotSupported      = errors.New("operation not supported")
	ErrNotFound          = errors.New("resource not found")
	ErrConsumed          = errors.New("buffer already consumed")
	ErrValueTooLarge     = errors.New("value exceeds staging buffer capacity")
	ErrManagerClosed     = errors.New("memory manager is closed")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeResourceExhausted
	ErrCodeNotSupported
	ErrCodeNotFound
	ErrCodeRegistration
	ErrCodeWireCorruption
	ErrCodeInternal
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeInvalidArgument:
		return "invalid_argument"
	case ErrCodeResourceExhausted:
		return "resource_exhausted"
	case ErrCodeNotSupported:
		return "not_supported"
	case ErrCodeNotFound:
		return "not_found"
	case ErrCodeRegistration:
		return "registration"
	case ErrCodeWireCorruption:
		return "wire_corruption"
	default:
		return "internal"
	}
}

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.cause != nil {
		msg = msg + ": " + e.cause.Error()
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap exposes the cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// Is matches sentinel errors by code so callers can use errors.Is(err, api.ErrInvalidArgument).
func (e *Error) Is(target error) bool {
	switch target {
	case ErrInvalidArgument:
		return e.Code == ErrCodeInvalidArgument
	case ErrResourceExhausted:
		return e.Code == ErrCodeResourceExhausted
	case ErrNotSupported:
		return e.Code == ErrCodeNotSupported
	case ErrNotFound:
		return e.Code == ErrCodeNotFound
	}
	if t, ok := target.(*Error); ok {
		return t.Code == e.Code
	}
	return false
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WithCause attaches the underlying failure, typically an errno from setup code.
func (e *Error) WithCause(err error) *Error {
	e.cause = err
	return e
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// CodeOf extracts the ErrorCode carried by err, or ErrCodeInternal.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// IsWireCorruption reports whether err was raised while decoding a corrupted packet.
func IsWireCorruption(err error) bool {
	return CodeOf(err) == ErrCodeWireCorruption
}
