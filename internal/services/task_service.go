// Package services – TaskService
//
// This file implements the TaskService, which manages the lifecycle of tasks
// owned by a single user. It validates and normalizes input, enforces
// ownership through the repository (every lookup is scoped by user id), and
// makes creation idempotent when the client supplies an Idempotency-Key.
//
// Service-level failures (ErrTaskNotFound, field validation) are returned as
// structured errors so handlers can render them without translation.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/tbourn/go-task-backend/internal/apperr"
	"github.com/tbourn/go-task-backend/internal/domain"
	"github.com/tbourn/go-task-backend/internal/repo"
	"github.com/tbourn/go-task-backend/internal/utils"
)

// Field limits for tasks.
const (
	MaxTitleLen       = 80
	MaxDescriptionLen = 500
)

// TaskRepo defines the repository contract required by TaskService.
// Implementations are responsible for persistence of tasks and idempotency
// records; every task query is scoped by the owning user.
type TaskRepo interface {
	// CreateTask inserts t and fills in its ID and timestamps.
	CreateTask(ctx context.Context, db *gorm.DB, t *domain.Task) error

	// GetTask fetches a task by id owned by userID.
	GetTask(ctx context.Context, db *gorm.DB, id, userID uint) (*domain.Task, error)

	// CountTasks returns the total number of matching tasks for pagination.
	CountTasks(ctx context.Context, db *gorm.DB, userID uint, status string) (int64, error)

	// ListTasksPage returns a page of matching tasks, newest first.
	ListTasksPage(ctx context.Context, db *gorm.DB, userID uint, status string, offset, limit int) ([]domain.Task, error)

	// UpdateTask applies column updates to a task owned by userID.
	UpdateTask(ctx context.Context, db *gorm.DB, id, userID uint, fields map[string]any) error

	// DeleteTask soft-deletes a task owned by userID.
	DeleteTask(ctx context.Context, db *gorm.DB, id, userID uint) error

	// TasksStats returns the count and latest update time of matching tasks.
	TasksStats(ctx context.Context, db *gorm.DB, userID uint, status string) (int64, *time.Time, error)

	// GetIdempotency returns a live record for (userID, scope, key).
	GetIdempotency(ctx context.Context, db *gorm.DB, userID, scope, key string, now time.Time) (*domain.Idempotency, error)

	// CreateIdempotency stores the outcome of a request made with key.
	CreateIdempotency(ctx context.Context, db *gorm.DB, userID, scope, key, resourceID string, status int, now time.Time, ttl time.Duration) (*domain.Idempotency, error)
}

// TaskInput is the payload of Create. Nil or blank optional fields are
// stored as NULL; an empty Status means pending.
type TaskInput struct {
	Title       string
	Description *string
	DueDate     *string
	Status      string
}

// TaskPatch is the payload of Update. Nil fields are left unchanged; a
// blank Description or DueDate clears the column.
type TaskPatch struct {
	Title       *string
	Description *string
	DueDate     *string
	Status      *string
}

// Idempotency identifies a client retry window for Create. A zero value
// disables idempotent handling.
type Idempotency struct {
	Scope string // e.g. "POST /api/tasks"
	Key   string
}

// TaskService provides task operations for a single authenticated user.
type TaskService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the task repository used by this service.
	Repo TaskRepo

	// IdempotencyTTL is how long a stored Idempotency-Key replays.
	IdempotencyTTL time.Duration
	// DefaultPageSize applies when List receives a non-positive page size.
	DefaultPageSize int
	// Now is the clock used for idempotency lookups (UTC).
	Now func() time.Time
}

// NewTaskService constructs a TaskService with default paging and
// idempotency settings.
func NewTaskService(db *gorm.DB, r TaskRepo) *TaskService {
	return &TaskService{
		DB:              db,
		Repo:            r,
		IdempotencyTTL:  24 * time.Hour,
		DefaultPageSize: 20,
		Now:             func() time.Time { return time.Now().UTC() },
	}
}

// Create validates in and inserts a task for userID.
//
// When idem carries a key, the lookup, the insert and the idempotency record
// are written in one transaction. A retry with the same key returns the
// originally created task and replay=true instead of inserting again.
func (s *TaskService) Create(ctx context.Context, userID uint, in TaskInput, idem Idempotency) (task *domain.Task, replay bool, err error) {
	tr := otel.Tracer("services/TaskService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(
			attribute.Int64("user.id", int64(userID)),
			attribute.Bool("idempotency.key_present", idem.Key != ""),
		),
	)
	defer span.End()

	task, err = buildTask(userID, in)
	if err != nil {
		return nil, false, err
	}

	if idem.Key == "" {
		if err := s.Repo.CreateTask(ctx, s.DB, task); err != nil {
			return nil, false, err
		}
		return task, false, nil
	}

	owner := strconv.FormatUint(uint64(userID), 10)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prev, err := s.replayTarget(ctx, tx, userID, owner, idem)
		if err == nil {
			task, replay = prev, true
			return nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return err
		}
		if err := s.Repo.CreateTask(ctx, tx, task); err != nil {
			return err
		}
		resourceID := strconv.FormatUint(uint64(task.ID), 10)
		_, err = s.Repo.CreateIdempotency(ctx, tx, owner, idem.Scope, idem.Key, resourceID, http.StatusCreated, s.now(), s.ttl())
		return err
	})
	if errors.Is(err, repo.ErrDuplicate) {
		// A concurrent request with the same key committed first.
		prev, perr := s.replayTarget(ctx, s.DB, userID, owner, idem)
		if perr != nil {
			return nil, false, perr
		}
		return prev, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	span.SetAttributes(attribute.Bool("idempotency.replay", replay))
	return task, replay, nil
}

// replayTarget resolves the task recorded for idem. It returns
// repo.ErrNotFound when no live record exists.
func (s *TaskService) replayTarget(ctx context.Context, db *gorm.DB, userID uint, owner string, idem Idempotency) (*domain.Task, error) {
	rec, err := s.Repo.GetIdempotency(ctx, db, owner, idem.Scope, idem.Key, s.now())
	if err != nil {
		return nil, err
	}
	id, perr := strconv.ParseUint(rec.ResourceID, 10, 64)
	if perr != nil {
		return nil, fmt.Errorf("idempotency record %s: bad resource id %q: %w", rec.ID, rec.ResourceID, perr)
	}
	t, err := s.Repo.GetTask(ctx, db, uint(id), userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, apperr.Conflict(
			"Idempotency-Key was already used",
			fmt.Sprintf("task %d created with this key no longer exists", id),
		)
	}
	return t, err
}

// Get returns the task id owned by userID.
func (s *TaskService) Get(ctx context.Context, userID, id uint) (*domain.Task, error) {
	t, err := s.Repo.GetTask(ctx, s.DB, id, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return t, nil
}

// List returns a page of the user's tasks and the total number of matches.
// An empty status lists every status. Invalid page values fall back to
// page 1 and DefaultPageSize; page and pageSize are capped at utils.MaxPage
// and utils.MaxPageSize.
func (s *TaskService) List(ctx context.Context, userID uint, status string, page, pageSize int) ([]domain.Task, int64, error) {
	status, err := cleanStatusFilter(status)
	if err != nil {
		return nil, 0, err
	}
	page = min(max(page, 1), utils.MaxPage)
	if pageSize <= 0 {
		pageSize = s.DefaultPageSize
		if pageSize <= 0 {
			pageSize = utils.DefaultPageSize
		}
	}
	pageSize = min(pageSize, utils.MaxPageSize)
	offset := (page - 1) * pageSize

	total, err := s.Repo.CountTasks(ctx, s.DB, userID, status)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Task{}, 0, nil
	}

	items, err := s.Repo.ListTasksPage(ctx, s.DB, userID, status, offset, pageSize)
	return items, total, err
}

// ETag returns a weak validator for the user's task list under status.
// It changes whenever a matching task is created, updated or deleted.
func (s *TaskService) ETag(ctx context.Context, userID uint, status string) (string, error) {
	status, err := cleanStatusFilter(status)
	if err != nil {
		return "", err
	}
	count, maxAt, err := s.Repo.TasksStats(ctx, s.DB, userID, status)
	if err != nil {
		return "", err
	}
	var ts int64
	if maxAt != nil {
		ts = maxAt.UnixNano()
	}
	if status == "" {
		status = "all"
	}
	return fmt.Sprintf(`W/"tasks:%d:%s:%d:%d"`, userID, status, count, ts), nil
}

// Update applies p to the task id owned by userID and returns the result.
func (s *TaskService) Update(ctx context.Context, userID, id uint, p TaskPatch) (*domain.Task, error) {
	fields := map[string]any{}
	if p.Title != nil {
		title, err := cleanTitle(*p.Title)
		if err != nil {
			return nil, err
		}
		fields["title"] = title
	}
	if p.Description != nil {
		desc, err := cleanDescription(*p.Description)
		if err != nil {
			return nil, err
		}
		fields["description"] = desc
	}
	if p.DueDate != nil {
		due, err := cleanDueDate(*p.DueDate)
		if err != nil {
			return nil, err
		}
		fields["due_date"] = due
	}
	if p.Status != nil {
		status, err := cleanStatus(*p.Status)
		if err != nil {
			return nil, err
		}
		fields["status"] = status
	}
	if len(fields) == 0 {
		return nil, ErrEmptyPatch
	}

	if err := s.Repo.UpdateTask(ctx, s.DB, id, userID, fields); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return s.Get(ctx, userID, id)
}

// Delete removes the task id owned by userID.
func (s *TaskService) Delete(ctx context.Context, userID, id uint) error {
	if err := s.Repo.DeleteTask(ctx, s.DB, id, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrTaskNotFound
		}
		return err
	}
	return nil
}

func (s *TaskService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *TaskService) ttl() time.Duration {
	if s.IdempotencyTTL > 0 {
		return s.IdempotencyTTL
	}
	return 24 * time.Hour
}

// buildTask validates in and returns an unsaved task owned by userID.
func buildTask(userID uint, in TaskInput) (*domain.Task, error) {
	title, err := cleanTitle(in.Title)
	if err != nil {
		return nil, err
	}
	t := &domain.Task{UserID: userID, Title: title, Status: domain.TaskPending}
	if in.Description != nil {
		if t.Description, err = cleanDescription(*in.Description); err != nil {
			return nil, err
		}
	}
	if in.DueDate != nil {
		if t.DueDate, err = cleanDueDate(*in.DueDate); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(in.Status) != "" {
		if t.Status, err = cleanStatus(in.Status); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// cleanTitle applies NFC, trims, and collapses inner whitespace.
func cleanTitle(s string) (string, error) {
	s = whitespaceRE.ReplaceAllString(strings.TrimSpace(norm.NFC.String(s)), " ")
	if n := utf8.RuneCountInString(s); n == 0 || n > MaxTitleLen {
		return "", invalidField("title", "must be between 1 and %d characters", MaxTitleLen)
	}
	return s, nil
}

func cleanDescription(s string) (*string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(s) > MaxDescriptionLen {
		return nil, invalidField("description", "must be at most %d characters", MaxDescriptionLen)
	}
	return &s, nil
}

func cleanDueDate(s string) (*string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(domain.DueDateLayout, s)
	if err != nil {
		return nil, invalidField("due_date", "must be a calendar date in YYYY-MM-DD format, got %q", s)
	}
	out := d.Format(domain.DueDateLayout)
	return &out, nil
}

func cleanStatus(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !domain.ValidTaskStatus(s) {
		return "", invalidField("status", "must be one of %s", strings.Join(domain.TaskStatuses, ", "))
	}
	return s, nil
}

func cleanStatusFilter(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	return cleanStatus(s)
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)
