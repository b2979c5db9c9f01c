package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-task-backend/internal/apperr"
	"github.com/tbourn/go-task-backend/internal/domain"
	"github.com/tbourn/go-task-backend/internal/repo"
)

// ---------- test helpers ----------

func newTaskDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:tasksvc_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if err := db.Create(&domain.User{ID: 1, Username: "u1", Email: "u1@x.io", Password: []byte("h")}).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return db
}

// dbTaskRepo forwards to the GORM repository functions.
type dbTaskRepo struct{}

func (dbTaskRepo) CreateTask(ctx context.Context, db *gorm.DB, t *domain.Task) error {
	return repo.CreateTask(ctx, db, t)
}
func (dbTaskRepo) GetTask(ctx context.Context, db *gorm.DB, id, userID uint) (*domain.Task, error) {
	return repo.GetTask(ctx, db, id, userID)
}
func (dbTaskRepo) CountTasks(ctx context.Context, db *gorm.DB, userID uint, status string) (int64, error) {
	return repo.CountTasks(ctx, db, userID, status)
}
func (dbTaskRepo) ListTasksPage(ctx context.Context, db *gorm.DB, userID uint, status string, offset, limit int) ([]domain.Task, error) {
	return repo.ListTasksPage(ctx, db, userID, status, offset, limit)
}
func (dbTaskRepo) UpdateTask(ctx context.Context, db *gorm.DB, id, userID uint, fields map[string]any) error {
	return repo.UpdateTask(ctx, db, id, userID, fields)
}
func (dbTaskRepo) DeleteTask(ctx context.Context, db *gorm.DB, id, userID uint) error {
	return repo.DeleteTask(ctx, db, id, userID)
}
func (dbTaskRepo) TasksStats(ctx context.Context, db *gorm.DB, userID uint, status string) (int64, *time.Time, error) {
	return repo.TasksStats(ctx, db, userID, status)
}
func (dbTaskRepo) GetIdempotency(ctx context.Context, db *gorm.DB, userID, scope, key string, now time.Time) (*domain.Idempotency, error) {
	return repo.GetIdempotency(ctx, db, userID, scope, key, now)
}
func (dbTaskRepo) CreateIdempotency(ctx context.Context, db *gorm.DB, userID, scope, key, resourceID string, status int, now time.Time, ttl time.Duration) (*domain.Idempotency, error) {
	return repo.CreateIdempotency(ctx, db, userID, scope, key, resourceID, status, now, ttl)
}

// failingRepo embeds dbTaskRepo and overrides selected calls with errors.
type failingRepo struct {
	dbTaskRepo
	countErr  error
	updateErr error
	getErr    error
}

func (r failingRepo) CountTasks(ctx context.Context, db *gorm.DB, userID uint, status string) (int64, error) {
	if r.countErr != nil {
		return 0, r.countErr
	}
	return r.dbTaskRepo.CountTasks(ctx, db, userID, status)
}
func (r failingRepo) UpdateTask(ctx context.Context, db *gorm.DB, id, userID uint, fields map[string]any) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	return r.dbTaskRepo.UpdateTask(ctx, db, id, userID, fields)
}
func (r failingRepo) GetTask(ctx context.Context, db *gorm.DB, id, userID uint) (*domain.Task, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.dbTaskRepo.GetTask(ctx, db, id, userID)
}

func strp(s string) *string { return &s }

func wantValidation(t *testing.T, err error, field string) {
	t.Helper()
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Code() != apperr.CodeValidation {
		t.Fatalf("expected validation_error, got %v", err)
	}
	if field != "" && ae.Message() != "Invalid "+field {
		t.Fatalf("expected field %q, got message %q", field, ae.Message())
	}
}

// ---------- Create ----------

func TestTaskService_Create_NormalizesAndDefaults(t *testing.T) {
	s := NewTaskService(newTaskDB(t), dbTaskRepo{})

	task, replay, err := s.Create(context.Background(), 1, TaskInput{
		Title:       "  write \t the   docs ",
		Description: strp("   "),
		DueDate:     strp(" 2025-09-30 "),
	}, Idempotency{})
	if err != nil || replay {
		t.Fatalf("Create = %+v, %v, %v", task, replay, err)
	}
	if task.ID == 0 || task.UserID != 1 {
		t.Fatalf("unexpected identity: %+v", task)
	}
	if task.Title != "write the docs" {
		t.Fatalf("title not normalized: %q", task.Title)
	}
	if task.Description != nil {
		t.Fatalf("blank description must be stored as NULL, got %q", *task.Description)
	}
	if task.DueDate == nil || *task.DueDate != "2025-09-30" {
		t.Fatalf("due date: %v", task.DueDate)
	}
	if task.Status != domain.TaskPending {
		t.Fatalf("status default: %q", task.Status)
	}
}

func TestTaskService_Create_Validation(t *testing.T) {
	s := NewTaskService(newTaskDB(t), dbTaskRepo{})
	ctx := context.Background()

	cases := []struct {
		name  string
		in    TaskInput
		field string
	}{
		{"empty title", TaskInput{Title: " \n "}, "title"},
		{"long title", TaskInput{Title: strings.Repeat("x", MaxTitleLen+1)}, "title"},
		{"long description", TaskInput{Title: "ok", Description: strp(strings.Repeat("d", MaxDescriptionLen+1))}, "description"},
		{"bad due date", TaskInput{Title: "ok", DueDate: strp("30/09/2025")}, "due_date"},
		{"impossible date", TaskInput{Title: "ok", DueDate: strp("2025-02-30")}, "due_date"},
		{"bad status", TaskInput{Title: "ok", Status: "done"}, "status"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := s.Create(ctx, 1, tc.in, Idempotency{})
			wantValidation(t, err, tc.field)
		})
	}

	// A title of exactly MaxTitleLen multibyte runes is accepted.
	if _, _, err := s.Create(ctx, 1, TaskInput{Title: strings.Repeat("é", MaxTitleLen)}, Idempotency{}); err != nil {
		t.Fatalf("max-length title rejected: %v", err)
	}
}

func TestTaskService_Create_IdempotentReplay(t *testing.T) {
	db := newTaskDB(t)
	s := NewTaskService(db, dbTaskRepo{})
	ctx := context.Background()
	idem := Idempotency{Scope: "POST /api/tasks", Key: "abc-123"}

	first, replay, err := s.Create(ctx, 1, TaskInput{Title: "once"}, idem)
	if err != nil || replay {
		t.Fatalf("first Create = %v, %v", replay, err)
	}
	second, replay, err := s.Create(ctx, 1, TaskInput{Title: "different body"}, idem)
	if err != nil || !replay {
		t.Fatalf("second Create = %v, %v", replay, err)
	}
	if second.ID != first.ID || second.Title != "once" {
		t.Fatalf("replay returned %+v, want task %d", second, first.ID)
	}

	var n int64
	db.Model(&domain.Task{}).Count(&n)
	if n != 1 {
		t.Fatalf("tasks = %d, want 1", n)
	}

	// Another scope with the same key is independent.
	if _, replay, err := s.Create(ctx, 1, TaskInput{Title: "other"}, Idempotency{Scope: "POST /api/other", Key: "abc-123"}); err != nil || replay {
		t.Fatalf("other scope = %v, %v", replay, err)
	}
}

func TestTaskService_Create_ExpiredKeyCreatesAgain(t *testing.T) {
	s := NewTaskService(newTaskDB(t), dbTaskRepo{})
	s.IdempotencyTTL = time.Minute
	ctx := context.Background()
	idem := Idempotency{Scope: "POST /api/tasks", Key: "k"}

	first, _, err := s.Create(ctx, 1, TaskInput{Title: "a"}, idem)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	s.Now = func() time.Time { return time.Now().UTC().Add(2 * time.Minute) }

	second, replay, err := s.Create(ctx, 1, TaskInput{Title: "b"}, idem)
	if err != nil || replay {
		t.Fatalf("Create after expiry = %v, %v", replay, err)
	}
	if second.ID == first.ID || second.Title != "b" {
		t.Fatalf("expected a new task, got %+v", second)
	}
}

func TestTaskService_Create_ReplayOfDeletedTaskIsConflict(t *testing.T) {
	s := NewTaskService(newTaskDB(t), dbTaskRepo{})
	ctx := context.Background()
	idem := Idempotency{Scope: "POST /api/tasks", Key: "gone"}

	task, _, err := s.Create(ctx, 1, TaskInput{Title: "a"}, idem)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Delete(ctx, 1, task.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, _, err = s.Create(ctx, 1, TaskInput{Title: "a"}, idem)
	if !apperr.HasCode(err, apperr.CodeConflict) {
		t.Fatalf("expected conflict_error, got %v", err)
	}
}

// ---------- Get / List / ETag ----------

func TestTaskService_Get_ScopedByOwner(t *testing.T) {
	s := NewTaskService(newTaskDB(t), dbTaskRepo{})
	ctx := context.Background()
	task, _, _ := s.Create(ctx, 1, TaskInput{Title: "mine"}, Idempotency{})

	if got, err := s.Get(ctx, 1, task.ID); err != nil || got.Title != "mine" {
		t.Fatalf("Get = %+v, %v", got, err)
	}
	if _, err := s.Get(ctx, 2, task.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("other owner: %v", err)
	}
	if _, err := s.Get(ctx, 1, 999); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("missing: %v", err)
	}
}

func TestTaskService_List_DefaultsFilterAndErrors(t *testing.T) {
	db := newTaskDB(t)
	s := NewTaskService(db, dbTaskRepo{})
	ctx := context.Background()

	items, total, err := s.List(ctx, 1, "", 0, 0)
	if err != nil || total != 0 || items == nil || len(items) != 0 {
		t.Fatalf("empty List = %v, %d, %v", items, total, err)
	}

	for i := 0; i < 3; i++ {
		if _, _, err := s.Create(ctx, 1, TaskInput{Title: fmt.Sprintf("t%d", i)}, Idempotency{}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	if _, _, err := s.Create(ctx, 1, TaskInput{Title: "done", Status: "COMPLETED"}, Idempotency{}); err != nil {
		t.Fatalf("seed completed: %v", err)
	}

	items, total, err = s.List(ctx, 1, "", -1, 2)
	if err != nil || total != 4 || len(items) != 2 {
		t.Fatalf("page 1 = %d items, total %d, %v", len(items), total, err)
	}
	// A page far past the end stays a real offset, never wrapping to page 1.
	items, total, err = s.List(ctx, 1, "", math.MaxInt, 2)
	if err != nil || total != 4 || len(items) != 0 {
		t.Fatalf("huge page = %d items, total %d, %v", len(items), total, err)
	}
	items, _, err = s.List(ctx, 1, "", 1, 1000)
	if err != nil || len(items) != 4 {
		t.Fatalf("oversized page size = %d items, %v", len(items), err)
	}
	items, total, err = s.List(ctx, 1, "completed", 1, 10)
	if err != nil || total != 1 || len(items) != 1 || items[0].Title != "done" {
		t.Fatalf("filtered = %+v, %d, %v", items, total, err)
	}

	_, _, err = s.List(ctx, 1, "archived", 1, 10)
	wantValidation(t, err, "status")

	boom := errors.New("count failed")
	s.Repo = failingRepo{countErr: boom}
	if _, _, err := s.List(ctx, 1, "", 1, 10); !errors.Is(err, boom) {
		t.Fatalf("expected count error, got %v", err)
	}
}

func TestTaskService_ETag_ChangesWithData(t *testing.T) {
	s := NewTaskService(newTaskDB(t), dbTaskRepo{})
	ctx := context.Background()

	e0, err := s.ETag(ctx, 1, "")
	if err != nil || e0 != `W/"tasks:1:all:0:0"` {
		t.Fatalf("empty ETag = %q, %v", e0, err)
	}
	task, _, _ := s.Create(ctx, 1, TaskInput{Title: "a"}, Idempotency{})
	e1, _ := s.ETag(ctx, 1, "")
	if e1 == e0 {
		t.Fatalf("ETag unchanged after create")
	}
	if again, _ := s.ETag(ctx, 1, ""); again != e1 {
		t.Fatalf("ETag not stable: %q vs %q", again, e1)
	}
	if err := s.Delete(ctx, 1, task.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if e2, _ := s.ETag(ctx, 1, ""); e2 == e1 {
		t.Fatalf("ETag unchanged after delete")
	}
	if _, err := s.ETag(ctx, 1, "bogus"); err == nil {
		t.Fatalf("expected validation error for bad status")
	}
}

// ---------- Update / Delete ----------

func TestTaskService_Update_Partial(t *testing.T) {
	s := NewTaskService(newTaskDB(t), dbTaskRepo{})
	ctx := context.Background()
	task, _, _ := s.Create(ctx, 1, TaskInput{Title: "draft", Description: strp("first"), DueDate: strp("2025-01-01")}, Idempotency{})

	got, err := s.Update(ctx, 1, task.ID, TaskPatch{Status: strp("in_progress")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Status != domain.TaskInProgress || got.Title != "draft" || got.Description == nil || *got.Description != "first" {
		t.Fatalf("partial update touched other fields: %+v", got)
	}

	got, err = s.Update(ctx, 1, task.ID, TaskPatch{Title: strp(" final  title "), Description: strp(""), DueDate: strp("")})
	if err != nil {
		t.Fatalf("Update clear: %v", err)
	}
	if got.Title != "final title" || got.Description != nil || got.DueDate != nil {
		t.Fatalf("unexpected after clear: %+v", got)
	}
}

func TestTaskService_Update_Errors(t *testing.T) {
	s := NewTaskService(newTaskDB(t), dbTaskRepo{})
	ctx := context.Background()
	task, _, _ := s.Create(ctx, 1, TaskInput{Title: "x"}, Idempotency{})

	if _, err := s.Update(ctx, 1, task.ID, TaskPatch{}); !errors.Is(err, ErrEmptyPatch) {
		t.Fatalf("empty patch: %v", err)
	}
	_, err := s.Update(ctx, 1, task.ID, TaskPatch{Status: strp("nope")})
	wantValidation(t, err, "status")
	_, err = s.Update(ctx, 1, task.ID, TaskPatch{Title: strp("")})
	wantValidation(t, err, "title")
	_, err = s.Update(ctx, 1, task.ID, TaskPatch{DueDate: strp("tomorrow")})
	wantValidation(t, err, "due_date")

	if _, err := s.Update(ctx, 2, task.ID, TaskPatch{Title: strp("hijack")}); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("other owner: %v", err)
	}

	boom := errors.New("write failed")
	s.Repo = failingRepo{updateErr: boom}
	if _, err := s.Update(ctx, 1, task.ID, TaskPatch{Title: strp("y")}); !errors.Is(err, boom) {
		t.Fatalf("expected raw update error, got %v", err)
	}
}

func TestTaskService_Delete(t *testing.T) {
	s := NewTaskService(newTaskDB(t), dbTaskRepo{})
	ctx := context.Background()
	task, _, _ := s.Create(ctx, 1, TaskInput{Title: "bye"}, Idempotency{})

	if err := s.Delete(ctx, 2, task.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("other owner: %v", err)
	}
	if err := s.Delete(ctx, 1, task.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, 1, task.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("second delete: %v", err)
	}
}
