// Package errors defines the coded application errors shared by the service
// and HTTP layers. The HTTP layer maps codes to status codes and messages.
package errors

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCode categorizes an AppError.
type ErrorCode string

const (
	ErrCodeNotFound   ErrorCode = "not_found"
	ErrCodeValidation ErrorCode = "validation"
	ErrCodeInternal   ErrorCode = "internal"
	// ErrCodeAuthFailure means ServiceNow rejected the presented credentials.
	ErrCodeAuthFailure ErrorCode = "auth_failure"
	// ErrCodeSessionExpired means the session's credential could not be refreshed.
	ErrCodeSessionExpired ErrorCode = "session_expired"
	// ErrCodeUnauthorized means the request carried no usable session.
	ErrCodeUnauthorized ErrorCode = "unauthorized"
	ErrCodeUpstream     ErrorCode = "upstream"
)

// AppError carries a code, a message that is safe to show users, and an optional cause.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	// Field names the offending input for validation errors.
	Field string
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is matches another *AppError by code, so errors.Is(err, &AppError{Code: c}) works
// through wrapping.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

func newError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

func NotFound(message string) *AppError     { return newError(ErrCodeNotFound, message, nil) }
func Validation(message string) *AppError   { return newError(ErrCodeValidation, message, nil) }
func Internal(message string) *AppError     { return newError(ErrCodeInternal, message, nil) }
func Unauthorized(message string) *AppError { return newError(ErrCodeUnauthorized, message, nil) }

// SessionExpired marks a session whose OAuth refresh failed.
func SessionExpired(message string) *AppError {
	return newError(ErrCodeSessionExpired, message, nil)
}

// ValidationField is a Validation error attributed to one input field.
func ValidationField(field, message string) *AppError {
	e := newError(ErrCodeValidation, message, nil)
	e.Field = field
	return e
}

// AuthFailure reports rejected credentials. cause may be nil.
func AuthFailure(message string, cause error) *AppError {
	return newError(ErrCodeAuthFailure, message, cause)
}

// Upstream wraps a failed ServiceNow call. It returns nil for a nil err.
func Upstream(err error, message string) *AppError {
	return Wrap(err, ErrCodeUpstream, message)
}

// Wrap attaches code and message to err. It returns nil for a nil err.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return newError(code, message, err)
}

// GetCode returns the code of the first AppError in err's chain, or "".
func GetCode(err error) ErrorCode {
	if e, ok := asAppError(err); ok {
		return e.Code
	}
	return ""
}

// GetField returns the Field of the first AppError in err's chain, or "".
func GetField(err error) string {
	if e, ok := asAppError(err); ok {
		return e.Field
	}
	return ""
}

// HasCode reports whether any AppError in err's chain has code.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && errors.Is(err, &AppError{Code: code})
}

func IsValidation(err error) bool     { return HasCode(err, ErrCodeValidation) }
func IsInternal(err error) bool       { return HasCode(err, ErrCodeInternal) }
func IsAuthFailure(err error) bool    { return HasCode(err, ErrCodeAuthFailure) }
func IsSessionExpired(err error) bool { return HasCode(err, ErrCodeSessionExpired) }
func IsUnauthorized(err error) bool   { return HasCode(err, ErrCodeUnauthorized) }
func IsUpstream(err error) bool       { return HasCode(err, ErrCodeUpstream) }

// IsTimeout reports an upstream failure caused by a deadline. Timeouts share the
// upstream code; this only picks the copy shown to the user.
func IsTimeout(err error) bool {
	if !IsUpstream(err) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

func asAppError(err error) (*AppError, bool) {
	var e *AppError
	ok := errors.As(err, &e)
	return e, ok
}
