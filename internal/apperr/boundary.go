package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// StatusError is a transport-level failure raised by the routing layer or by
// middleware (unknown route, disallowed method, rate limit, oversized body).
type StatusError struct {
	Status      int
	Description string
}

// Transport returns a StatusError. An empty description defaults to the
// lowercase HTTP reason phrase.
func Transport(status int, description string) *StatusError {
	if strings.TrimSpace(description) == "" {
		description = strings.ToLower(http.StatusText(status))
	}
	return &StatusError{Status: status, Description: description}
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Description)
}

// FromHTTPStatus translates a transport failure into a structured failure,
// keeping the original status and description as debug detail.
func FromHTTPStatus(status int, description string) *Error {
	code, message := ClassifyHTTPStatus(status)
	return New(code, message, fmt.Sprintf("HTTP %d: %s", status, description))
}

// FromFault translates an unclassified fault (an unexpected error or a
// recovered panic value) into a generic server failure whose debug detail
// names the fault's runtime type.
func FromFault(v any) *Error {
	var detail string
	switch f := v.(type) {
	case nil:
		detail = "<nil>"
	case error:
		detail = fmt.Sprintf("%T: %s", f, f.Error())
	default:
		detail = fmt.Sprintf("%T: %v", f, f)
	}
	return Server("An unexpected error occurred", "Unhandled exception: "+detail)
}

// Normalize classifies any error at the HTTP boundary. Exactly one of three
// origins applies:
//   - a Failure anywhere in the chain is returned as is;
//   - a *StatusError is translated with FromHTTPStatus;
//   - anything else is translated with FromFault.
func Normalize(err error) Failure {
	var f Failure
	if errors.As(err, &f) {
		return f
	}
	var se *StatusError
	if errors.As(err, &se) {
		return FromHTTPStatus(se.Status, se.Description)
	}
	return FromFault(err)
}
