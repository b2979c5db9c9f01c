// Package apperr defines the API error taxonomy and the structured failure
// value that every layer uses to report an expected, client-visible problem.
//
// The taxonomy is a closed table: each Code maps to exactly one Descriptor
// (HTTP status + Category). The table is populated at package init, never
// mutated afterwards, and therefore safe for unsynchronized concurrent reads.
//
// Conventions:
//   - Codes are lowercase snake_case and end in "_error".
//   - New codes are added by appending a row to descriptors; existing rows
//     are part of the wire contract and must not change.
//   - Looking up a code that is not in the table is a programming error and
//     panics (see Classify and New).
package apperr

import (
	"fmt"
	"net/http"
	"sort"
)

// Code is a stable, machine-readable error identifier.
type Code string

const (
	CodeValidation   Code = "validation_error"
	CodeNotFound     Code = "not_found_error"
	CodeUnauthorized Code = "unauthorized_error"
	CodeForbidden    Code = "forbidden_error"
	CodeConflict     Code = "conflict_error"
	CodeServer       Code = "server_error"

	// CodeRateLimit is emitted by the rate limiter (HTTP 429).
	CodeRateLimit Code = "rate_limit_error"
)

// Category groups codes into the broad kind of failure reported as
// error_detail.error_type.
type Category string

const (
	CategoryValidation     Category = "validation"
	CategoryAuthentication Category = "authentication"
	CategoryAuthorization  Category = "authorization"
	CategoryServer         Category = "server"
)

// Descriptor is a static taxonomy row.
type Descriptor struct {
	Code     Code     `json:"error_code"`
	Status   int      `json:"http_status"`
	Category Category `json:"error_category"`
}

// descriptors is the error taxonomy.
//
// not_found_error is categorized as "server" and conflict_error as
// "validation". Clients already branch on these values; keep them.
var descriptors = map[Code]Descriptor{
	CodeValidation:   {Code: CodeValidation, Status: http.StatusBadRequest, Category: CategoryValidation},
	CodeNotFound:     {Code: CodeNotFound, Status: http.StatusNotFound, Category: CategoryServer},
	CodeUnauthorized: {Code: CodeUnauthorized, Status: http.StatusUnauthorized, Category: CategoryAuthentication},
	CodeForbidden:    {Code: CodeForbidden, Status: http.StatusForbidden, Category: CategoryAuthorization},
	CodeConflict:     {Code: CodeConflict, Status: http.StatusConflict, Category: CategoryValidation},
	CodeServer:       {Code: CodeServer, Status: http.StatusInternalServerError, Category: CategoryServer},
	CodeRateLimit:    {Code: CodeRateLimit, Status: http.StatusTooManyRequests, Category: CategoryServer},
}

// statusMapping adapts a transport-level HTTP status onto the taxonomy.
type statusMapping struct {
	code    Code
	message string
}

var statusMappings = map[int]statusMapping{
	http.StatusBadRequest:          {CodeValidation, "Bad request"},
	http.StatusUnauthorized:        {CodeUnauthorized, "Authentication required"},
	http.StatusForbidden:           {CodeForbidden, "Access forbidden"},
	http.StatusNotFound:            {CodeNotFound, "Resource not found"},
	http.StatusConflict:            {CodeConflict, "Resource conflict"},
	http.StatusTooManyRequests:     {CodeRateLimit, "Rate limit exceeded"},
	http.StatusInternalServerError: {CodeServer, "Internal server error"},
}

// Lookup returns the descriptor for code and whether it exists.
func Lookup(code Code) (Descriptor, bool) {
	d, ok := descriptors[code]
	return d, ok
}

// Classify returns the HTTP status and category for code.
//
// It panics when code is not part of the taxonomy: every code used by the
// application is one of the constants above, so an unknown code can only be
// a programming error.
func Classify(code Code) (int, Category) {
	d, ok := descriptors[code]
	if !ok {
		panic(fmt.Sprintf("apperr: unknown error code %q", code))
	}
	return d.Status, d.Category
}

// ClassifyHTTPStatus maps a transport-level HTTP status to an error code and
// a default user-facing message. Unmapped statuses fall back to CodeServer
// with a message that keeps the numeric status.
func ClassifyHTTPStatus(status int) (Code, string) {
	if m, ok := statusMappings[status]; ok {
		return m.code, m.message
	}
	return CodeServer, fmt.Sprintf("HTTP %d error occurred", status)
}

// Codes returns every known code in lexical order.
func Codes() []Code {
	out := make([]Code, 0, len(descriptors))
	for c := range descriptors {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
