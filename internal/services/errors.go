// Package services defines the business logic for users and tasks.
// This file centralizes the structured failures returned by service methods
// so handlers can pass them straight to the response envelope.
//
// Expected failures (validation, missing rows, bad credentials, conflicts)
// are *apperr.Error values. Infrastructure faults from the database, the
// hasher or the token issuer are returned as plain errors and end up as
// server_error at the HTTP boundary.
package services

import (
	"fmt"

	"github.com/tbourn/go-task-backend/internal/apperr"
)

// User-related errors.
var (
	// ErrInvalidCredentials is returned by Login for both an unknown username
	// and a wrong password.
	ErrInvalidCredentials = apperr.Unauthorized("Invalid Credentials")

	// ErrUserNotFound indicates the authenticated user no longer exists.
	ErrUserNotFound = apperr.NotFound("User not found")
)

// Task-related errors.
var (
	// ErrTaskNotFound indicates that the task does not exist, was deleted,
	// or belongs to another user.
	ErrTaskNotFound = apperr.NotFound("Task not found")

	// ErrEmptyPatch is returned by Update when no field was supplied.
	ErrEmptyPatch = apperr.Validation("No fields to update", "at least one of title, description, due_date, status is required")
)

// duplicateUser is the conflict reported when registration hits the unique
// username or email index.
func duplicateUser(username string) *apperr.Error {
	return apperr.Conflict(
		"User with this username or email already exists",
		"Registration failed for user: "+username,
	)
}

// invalidField reports a single rejected input field.
func invalidField(field, format string, args ...any) *apperr.Error {
	return apperr.Validation("Invalid "+field, field+": "+fmt.Sprintf(format, args...))
}
