package fault

import (
	"errors"
	"fmt"
)

// Error is a coded application error. It is the only error shape that crosses the
// RPC boundary: the gateway copies Code and Message into the response envelope.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	cause   error
}

// New creates an error with the given code and message.
func New(code int, message string) Error {
	return Error{Code: code, Message: message}
}

// Error implements the error interface.
func (e Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any.
func (e Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an Error with the same code.
// Messages are ignored so that errors.Is(err, fault.ErrAccessDenied) matches
// customised copies produced by WithMessage.
func (e Error) Is(target error) bool {
	var t Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithMessage returns a copy of the error with a custom message.
func (e Error) WithMessage(message string) Error {
	e.Message = message
	return e
}

// WithMessagef returns a copy of the error with a formatted message.
func (e Error) WithMessagef(format string, args ...any) Error {
	e.Message = fmt.Sprintf(format, args...)
	return e
}

// WithCause returns a copy of the error wrapping cause.
// The cause is kept for logging and errors.Is/As; it never reaches the client.
func (e Error) WithCause(cause error) Error {
	e.cause = cause
	return e
}

// Predefined errors. Codes are grouped by area: 1xx general, 3xx session,
// 4xx security, 5xx network, 7xx membership.
var (
	ErrInvalidArgument        = Error{Code: CodeInvalidArgument, Message: "Invalid argument."}
	ErrMethodAccess           = Error{Code: CodeMethodAccess, Message: "The method is not accessible."}
	ErrMethodInvocation       = Error{Code: CodeMethodInvocation, Message: "The method invocation failed."}
	ErrInvalidOperation       = Error{Code: CodeInvalidOperation, Message: "The operation is not valid in the current state."}
	ErrInternal               = Error{Code: CodeInternal, Message: "An internal error occurred."}
	ErrInvalidSessionState    = Error{Code: CodeInvalidSessionState, Message: "The session is in an invalid state."}
	ErrSessionExpired         = Error{Code: CodeSessionExpired, Message: "The session has expired."}
	ErrAccessDenied           = Error{Code: CodeAccessDenied, Message: "Access denied."}
	ErrAuthenticationFailed   = Error{Code: CodeAuthenticationFailed, Message: "Authentication failed."}
	ErrBadRequest             = Error{Code: CodeBadRequest, Message: "Bad request."}
	ErrUserNotFound           = Error{Code: CodeUserNotFound, Message: "The user was not found."}
	ErrUserAlreadyRegistered  = Error{Code: CodeUserAlreadyRegistered, Message: "The user name is already registered."}
	ErrEmailAlreadyRegistered = Error{Code: CodeEmailAlreadyRegistered, Message: "The email address is already registered."}
)

// Error codes.
const (
	CodeInvalidArgument        = 101
	CodeMethodAccess           = 105
	CodeMethodInvocation       = 106
	CodeInvalidOperation       = 107
	CodeInternal               = 108
	CodeInvalidSessionState    = 302
	CodeSessionExpired         = 304
	CodeAccessDenied           = 401
	CodeAuthenticationFailed   = 402
	CodeBadRequest             = 501
	CodeUserNotFound           = 701
	CodeUserAlreadyRegistered  = 702
	CodeEmailAlreadyRegistered = 703
)

// From converts any error into an Error. Errors that already carry a code keep it;
// everything else becomes a method invocation error carrying the original message.
func From(err error) Error {
	if err == nil {
		return Error{}
	}
	var fe Error
	if errors.As(err, &fe) {
		return fe
	}
	return ErrMethodInvocation.WithMessage(err.Error()).WithCause(err)
}
