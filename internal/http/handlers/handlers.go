// Package handlers provides HTTP handler implementations for the public API.
//
// Handlers are transport-thin: they bind and check input, call application
// services, and return an envelope.Result. Formatting, status codes and error
// classification are left to envelope.Wrap, so every handler here has the
// envelope.HandlerFunc signature:
//
//	func(c *gin.Context) (envelope.Result, error)
//
// Route groups:
//   - default: GET /
//   - user:    POST /user/register, POST /user/login, GET /user
//   - task:    CRUD under /tasks
package handlers

import (
	"context"

	"github.com/tbourn/go-task-backend/internal/domain"
	"github.com/tbourn/go-task-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// AuthService defines account operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type AuthService interface {
	// Register creates an account and returns a session for it.
	Register(ctx context.Context, in services.Registration) (*services.Session, error)
	// Login verifies credentials and returns a session.
	Login(ctx context.Context, username, password string) (*services.Session, error)
	// GetUser returns the account identified by id.
	GetUser(ctx context.Context, id uint) (*domain.User, error)
}

// TaskService defines task lifecycle operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type TaskService interface {
	// Create inserts a task; replay is true when idem matched an earlier request.
	Create(ctx context.Context, userID uint, in services.TaskInput, idem services.Idempotency) (*domain.Task, bool, error)
	// Get returns one task owned by userID.
	Get(ctx context.Context, userID, id uint) (*domain.Task, error)
	// List returns a page of tasks and the total count.
	List(ctx context.Context, userID uint, status string, page, pageSize int) ([]domain.Task, int64, error)
	// ETag returns a weak validator for the listing.
	ETag(ctx context.Context, userID uint, status string) (string, error)
	// Update applies a partial update and returns the result.
	Update(ctx context.Context, userID, id uint, p services.TaskPatch) (*domain.Task, error)
	// Delete removes one task owned by userID.
	Delete(ctx context.Context, userID, id uint) error
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for users and tasks.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	authSvc AuthService
	taskSvc TaskService

	// SecureCookie marks the access_token cookie Secure (HTTPS only).
	SecureCookie bool
}

// New constructs and returns a Handlers instance bound to the given services.
func New(authSvc AuthService, taskSvc TaskService) *Handlers {
	return &Handlers{authSvc: authSvc, taskSvc: taskSvc}
}
