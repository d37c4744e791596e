// Package domainerrors defines the error codes that cross component boundaries.
// Services return *Error values; the HTTP layer maps codes to status codes.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable, client-visible error identifier.
type Code string

const (
	CodeValidation               Code = "validation_error"
	CodeBadRequest               Code = "bad_request"
	CodeSessionMismatch          Code = "session_mismatch"
	CodeAgeRequirementNotMet     Code = "age_requirement_not_met"
	CodeMissingAuthorizationCode Code = "missing_authorization_code"
	CodeMissingSessionCookies    Code = "missing_session_cookies"
	CodeUpstreamUnavailable      Code = "upstream_unavailable"
	CodeCatalogUnavailable       Code = "catalog_unavailable"
	CodeCartServiceUnavailable   Code = "cart_service_unavailable"
	CodeNotFound                 Code = "not_found"
	CodeUnauthorized             Code = "unauthorized"
	CodeTimeout                  Code = "timeout"
	CodeInternal                 Code = "internal_error"
)

// Error is a coded domain error. Details carries diagnostics that are safe to
// return to the caller (upstream status, failing SKU, ...).
type Error struct {
	Code    Code
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports equality on code and message so tests can compare against New(...).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// WithDetail attaches a diagnostic key/value and returns the same error.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap annotates err with a code. The original error stays reachable via errors.Is/As.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the outermost *Error in the chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether the outermost *Error in err's chain carries code.
func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// Is is shorthand for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeBadRequest, CodeSessionMismatch, CodeAgeRequirementNotMet,
		CodeMissingAuthorizationCode, CodeMissingSessionCookies:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
