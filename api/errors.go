// Package api
// Author: momentics <momentics@gmail.com>
//
// Error taxonomy shared by the driver and the sink.

package api

import (
	"errors"
	"fmt"
)

// ErrorCode identifies the kind of a failure.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeConnect
	ErrCodeWrite
	ErrCodeBind
	ErrCodeAccept
	ErrCodeTransport
	ErrCodeInternal
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeInvalidArgument:
		return "invalid_argument"
	case ErrCodeConnect:
		return "connect"
	case ErrCodeWrite:
		return "write"
	case ErrCodeBind:
		return "bind"
	case ErrCodeAccept:
		return "accept"
	case ErrCodeTransport:
		return "transport"
	default:
		return "internal"
	}
}

// Kind sentinels, usable with errors.Is against any *Error of the same code.
var (
	ErrInvalidArgument = &Error{Code: ErrCodeInvalidArgument, Message: "invalid argument"}
	ErrConnect         = &Error{Code: ErrCodeConnect, Message: "connect failed"}
	ErrWrite           = &Error{Code: ErrCodeWrite, Message: "write failed"}
	ErrBind            = &Error{Code: ErrCodeBind, Message: "bind failed"}
	ErrAccept          = &Error{Code: ErrCodeAccept, Message: "accept failed"}
	ErrTransport       = &Error{Code: ErrCodeTransport, Message: "transport error"}
)

// ErrNotSupported is returned by platform stubs.
var ErrNotSupported = fmt.Errorf("operation not supported")

// Error represents a structured error with code, cause and context.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WrapError creates a structured error around cause.
func WrapError(code ErrorCode, message string, cause error) *Error {
	e := NewError(code, message)
	e.Err = cause
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

// CodeOf returns the code of the first *Error in err's chain,
// ErrCodeOK for nil and ErrCodeInternal for foreign errors.
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
