// Task HTTP handlers.
//
// This file exposes REST endpoints for task resources, all scoped to the
// authenticated user:
//   - POST   /tasks        (create; Idempotency-Key aware)
//   - GET    /tasks        (list, paginated, ETag support)
//   - GET    /tasks/{id}   (fetch)
//   - PUT    /tasks/{id}   (partial update)
//   - DELETE /tasks/{id}   (delete)
//
// Idempotency:
// If the client supplies an Idempotency-Key header and an earlier create with
// the same key succeeded, the originally created task is returned with
// metadata {"idempotent_replay": true} and `Idempotency-Replayed: true`.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-task-backend/internal/apperr"
	"github.com/tbourn/go-task-backend/internal/domain"
	"github.com/tbourn/go-task-backend/internal/http/envelope"
	"github.com/tbourn/go-task-backend/internal/http/middleware"
	"github.com/tbourn/go-task-backend/internal/services"
	"github.com/tbourn/go-task-backend/internal/utils"
)

//
// DTOs
//

// CreateTaskRequest is the JSON payload for creating a task.
type CreateTaskRequest struct {
	// Title is required (1–80 chars after whitespace normalization).
	Title string `json:"title" binding:"required" example:"Write release notes"`
	// Description is optional (up to 500 chars).
	Description *string `json:"description" example:"Cover the API changes"`
	// DueDate is optional, formatted YYYY-MM-DD.
	DueDate *string `json:"due_date" example:"2025-09-30"`
	// Status defaults to pending.
	Status string `json:"status" example:"pending" enums:"pending,in_progress,completed"`
}

// UpdateTaskRequest is the JSON payload for a partial update. Omitted
// fields are left unchanged; an empty description or due_date clears it.
type UpdateTaskRequest struct {
	Title       *string `json:"title" example:"Write better release notes"`
	Description *string `json:"description" example:""`
	DueDate     *string `json:"due_date" example:"2025-10-15"`
	Status      *string `json:"status" example:"in_progress" enums:"pending,in_progress,completed"`
}

// TaskPayload is the data of single-task endpoints.
type TaskPayload struct {
	Task *domain.Task `json:"task"`
}

// TaskListPayload is the data of the list endpoint.
type TaskListPayload struct {
	Tasks []domain.Task `json:"tasks"`
}

// DeletedPayload is the data of the delete endpoint.
type DeletedPayload struct {
	ID uint `json:"id" example:"42"`
}

//
// Handlers
//

// CreateTask godoc
// @ID          createTask
// @Summary     Create a task
// @Description Creates a task for the current user. Supports safe retries via the Idempotency-Key header.
// @Tags        Tasks
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       Idempotency-Key  header  string                     false  "Idempotency key for safe retries (UUID recommended)"
// @Param       body             body    handlers.CreateTaskRequest  true   "Task payload"
// @Success     201  {object}  envelope.SuccessEnvelope{data=handlers.TaskPayload}
// @Header      201  {string}  Idempotency-Replayed  "true when the response replays an earlier create"
// @Failure     400  {object}  envelope.ErrorEnvelope  "validation_error"
// @Failure     401  {object}  envelope.ErrorEnvelope  "unauthorized_error"
// @Failure     409  {object}  envelope.ErrorEnvelope  "conflict_error"
// @Router      /tasks [post]
func (h *Handlers) CreateTask(c *gin.Context) (envelope.Result, error) {
	uid, err := currentUser(c)
	if err != nil {
		return envelope.Result{}, err
	}
	var req CreateTaskRequest
	if err := bindJSON(c, &req); err != nil {
		return envelope.Result{}, err
	}

	var idem services.Idempotency
	if key, ok := middleware.GetIdempotencyKey(c); ok {
		idem = services.Idempotency{Scope: middleware.IdempotencyScope(c), Key: key}
	}

	task, replay, err := h.taskSvc.Create(c.Request.Context(), uid, services.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Status:      req.Status,
	}, idem)
	if err != nil {
		return envelope.Result{}, err
	}
	if replay {
		c.Header("Idempotency-Replayed", "true")
		return envelope.WithMeta(TaskPayload{Task: task}, map[string]any{"idempotent_replay": true}), nil
	}
	return envelope.Data(TaskPayload{Task: task}), nil
}

// ListTasks godoc
// @ID          listTasks
// @Summary     List tasks (paginated)
// @Description Returns a page of the user's tasks, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Tasks
// @Produce     json
// @Security    BearerAuth
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Param       status         query   string  false  "Status filter"   Enums(pending, in_progress, completed)
// @Success     200  {object}  envelope.SuccessEnvelope{data=handlers.TaskListPayload}
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string  "Not Modified"
// @Failure     400  {object}  envelope.ErrorEnvelope  "validation_error"
// @Failure     401  {object}  envelope.ErrorEnvelope  "unauthorized_error"
// @Router      /tasks [get]
func (h *Handlers) ListTasks(c *gin.Context) (envelope.Result, error) {
	uid, err := currentUser(c)
	if err != nil {
		return envelope.Result{}, err
	}
	ctx := c.Request.Context()
	status := c.Query("status")
	page, pageSize := utils.ClampPage(c.Query("page"), c.Query("page_size"))

	// ETag pre-check (best effort).
	etag, err := h.taskSvc.ETag(ctx, uid, status)
	switch {
	case err == nil:
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.AbortWithStatus(http.StatusNotModified)
			return envelope.Result{}, nil
		}
	case apperr.HasCode(err, apperr.CodeValidation):
		return envelope.Result{}, err
	default:
		middleware.LoggerFrom(c).Warn().Err(err).Msg("etag computation failed")
	}

	items, total, err := h.taskSvc.List(ctx, uid, status, page, pageSize)
	if err != nil {
		return envelope.Result{}, err
	}
	return envelope.WithMeta(TaskListPayload{Tasks: items}, utils.PageMeta(page, pageSize, total)), nil
}

// GetTask godoc
// @ID          getTask
// @Summary     Get a task
// @Tags        Tasks
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      int  true  "Task ID"  minimum(1)
// @Success     200  {object}  envelope.SuccessEnvelope{data=handlers.TaskPayload}
// @Failure     400  {object}  envelope.ErrorEnvelope  "validation_error"
// @Failure     404  {object}  envelope.ErrorEnvelope  "not_found_error"
// @Router      /tasks/{id} [get]
func (h *Handlers) GetTask(c *gin.Context) (envelope.Result, error) {
	uid, err := currentUser(c)
	if err != nil {
		return envelope.Result{}, err
	}
	id, err := pathID(c)
	if err != nil {
		return envelope.Result{}, err
	}
	task, err := h.taskSvc.Get(c.Request.Context(), uid, id)
	if err != nil {
		return envelope.Result{}, err
	}
	return envelope.Data(TaskPayload{Task: task}), nil
}

// UpdateTask godoc
// @ID          updateTask
// @Summary     Update a task
// @Description Applies a partial update; omitted fields are left unchanged.
// @Tags        Tasks
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      int                         true  "Task ID"  minimum(1)
// @Param       body  body      handlers.UpdateTaskRequest  true  "Fields to change"
// @Success     200   {object}  envelope.SuccessEnvelope{data=handlers.TaskPayload}
// @Failure     400   {object}  envelope.ErrorEnvelope  "validation_error"
// @Failure     404   {object}  envelope.ErrorEnvelope  "not_found_error"
// @Router      /tasks/{id} [put]
func (h *Handlers) UpdateTask(c *gin.Context) (envelope.Result, error) {
	uid, err := currentUser(c)
	if err != nil {
		return envelope.Result{}, err
	}
	id, err := pathID(c)
	if err != nil {
		return envelope.Result{}, err
	}
	var req UpdateTaskRequest
	if err := bindJSON(c, &req); err != nil {
		return envelope.Result{}, err
	}
	task, err := h.taskSvc.Update(c.Request.Context(), uid, id, services.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Status:      req.Status,
	})
	if err != nil {
		return envelope.Result{}, err
	}
	return envelope.Data(TaskPayload{Task: task}), nil
}

// DeleteTask godoc
// @ID          deleteTask
// @Summary     Delete a task
// @Tags        Tasks
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      int  true  "Task ID"  minimum(1)
// @Success     200  {object}  envelope.SuccessEnvelope{data=handlers.DeletedPayload}
// @Failure     400  {object}  envelope.ErrorEnvelope  "validation_error"
// @Failure     404  {object}  envelope.ErrorEnvelope  "not_found_error"
// @Router      /tasks/{id} [delete]
func (h *Handlers) DeleteTask(c *gin.Context) (envelope.Result, error) {
	uid, err := currentUser(c)
	if err != nil {
		return envelope.Result{}, err
	}
	id, err := pathID(c)
	if err != nil {
		return envelope.Result{}, err
	}
	if err := h.taskSvc.Delete(c.Request.Context(), uid, id); err != nil {
		return envelope.Result{}, err
	}
	return envelope.Data(DeletedPayload{ID: id}), nil
}
