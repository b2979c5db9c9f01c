package apperr

import (
	"errors"
	"strings"
)

// Failure is the capability consumed by the rendering layer. *Error is the
// only implementation; the interface exists so renderers and middleware do
// not depend on the concrete type.
type Failure interface {
	error
	Code() Code
	Status() int
	Category() Category
	Render() Detail
}

// Detail is the error_detail object of an error envelope.
// DebugMessage is omitted from JSON when empty.
type Detail struct {
	Code         Code     `json:"error_code"`
	Type         Category `json:"error_type"`
	Message      string   `json:"error_message"`
	DebugMessage string   `json:"debug_message,omitempty"`
}

// Error is an immutable structured failure. Status and category are resolved
// from the taxonomy when the value is constructed.
type Error struct {
	code     Code
	message  string
	debug    string
	status   int
	category Category
}

var _ Failure = (*Error)(nil)

// New constructs a structured failure. Optional debug strings are joined with
// "; ". It panics if code is not part of the taxonomy.
func New(code Code, message string, debug ...string) *Error {
	status, category := Classify(code)
	return &Error{
		code:     code,
		message:  message,
		debug:    joinDebug(debug),
		status:   status,
		category: category,
	}
}

// Validation reports client-correctable input (400).
func Validation(message string, debug ...string) *Error {
	return New(CodeValidation, message, debug...)
}

// NotFound reports a missing resource (404).
func NotFound(message string, debug ...string) *Error {
	return New(CodeNotFound, message, debug...)
}

// Unauthorized reports a missing or invalid credential (401).
func Unauthorized(message string, debug ...string) *Error {
	return New(CodeUnauthorized, message, debug...)
}

// Forbidden reports an authenticated but disallowed operation (403).
func Forbidden(message string, debug ...string) *Error {
	return New(CodeForbidden, message, debug...)
}

// Conflict reports a uniqueness or state clash (409).
func Conflict(message string, debug ...string) *Error {
	return New(CodeConflict, message, debug...)
}

// Server reports an internal failure (500).
func Server(message string, debug ...string) *Error {
	return New(CodeServer, message, debug...)
}

func (e *Error) Code() Code         { return e.code }
func (e *Error) Message() string    { return e.message }
func (e *Error) Debug() string      { return e.debug }
func (e *Error) Status() int        { return e.status }
func (e *Error) Category() Category { return e.category }

// Error implements the error interface.
func (e *Error) Error() string {
	if e.debug == "" {
		return string(e.code) + ": " + e.message
	}
	return string(e.code) + ": " + e.message + " (" + e.debug + ")"
}

// Render returns the error_detail payload.
func (e *Error) Render() Detail {
	return Detail{
		Code:         e.code,
		Type:         e.category,
		Message:      e.message,
		DebugMessage: e.debug,
	}
}

// HasCode reports whether err (or anything it wraps) is a Failure with code.
func HasCode(err error, code Code) bool {
	var f Failure
	if errors.As(err, &f) {
		return f.Code() == code
	}
	return false
}

func joinDebug(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "; ")
}
