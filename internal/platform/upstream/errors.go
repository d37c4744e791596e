package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	dErrors "agegate/pkg/domain-errors"
	"agegate/pkg/platform/sentinel"
)

// Category is the normalized failure taxonomy for outbound calls.
type Category string

const (
	// CategoryTimeout: the upstream did not answer within the deadline.
	CategoryTimeout Category = "timeout"
	// CategoryOutage: connection refused, reset, or a 5xx answer.
	CategoryOutage Category = "outage"
	// CategoryAuthentication: 401/403, our credentials were rejected.
	CategoryAuthentication Category = "authentication"
	// CategoryNotFound: 404 for the addressed resource.
	CategoryNotFound Category = "not_found"
	// CategoryRejected: any other 4xx.
	CategoryRejected Category = "rejected"
	// CategoryBadData: a 2xx answer we could not decode.
	CategoryBadData Category = "bad_data"
)

// Error wraps a failed outbound call with its category and, when the upstream
// answered, its status code and a truncated body.
type Error struct {
	Category   Category
	Upstream   string
	Status     int
	Message    string
	Underlying error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("upstream %s [%s]: %s", e.Upstream, e.Category, e.Message)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Underlying != nil {
		msg += ": " + e.Underlying.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// Is lets callers match on the infrastructure sentinel for the category.
func (e *Error) Is(target error) bool {
	switch target {
	case sentinel.ErrUnavailable:
		return e.Category == CategoryTimeout || e.Category == CategoryOutage
	case sentinel.ErrUnauthorized:
		return e.Category == CategoryAuthentication
	case sentinel.ErrNotFound:
		return e.Category == CategoryNotFound
	case sentinel.ErrBadData:
		return e.Category == CategoryBadData
	}
	return false
}

func New(category Category, upstream, message string, underlying error) *Error {
	return &Error{
		Category:   category,
		Upstream:   upstream,
		Message:    message,
		Underlying: underlying,
	}
}

// FromStatus classifies a non-2xx answer.
func FromStatus(upstream string, status int, body []byte) *Error {
	var category Category
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		category = CategoryAuthentication
	case status == http.StatusNotFound:
		category = CategoryNotFound
	case status >= 500:
		category = CategoryOutage
	default:
		category = CategoryRejected
	}
	return &Error{
		Category: category,
		Upstream: upstream,
		Status:   status,
		Message:  truncate(string(body), 256),
	}
}

// FromTransport classifies an error returned by http.Client.Do.
func FromTransport(upstream string, err error) *Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return New(CategoryTimeout, upstream, "request timed out", err)
	}
	return New(CategoryOutage, upstream, "request failed", err)
}

// CategoryOf returns the category of err, or "" when err did not come from
// an outbound call.
func CategoryOf(err error) Category {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Category
	}
	return ""
}

// ToDomain converts err into a coded domain error carrying the upstream
// diagnostics. Domain errors pass through unchanged.
func ToDomain(err error, code dErrors.Code, message string) *dErrors.Error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return de
	}
	out := dErrors.Wrap(err, code, message)
	var ue *Error
	if errors.As(err, &ue) {
		out = out.WithDetail("upstream", ue.Upstream).WithDetail("category", string(ue.Category))
		if ue.Status != 0 {
			out = out.WithDetail("upstream_status", ue.Status)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
