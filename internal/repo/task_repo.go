// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Task model.
//
// Every query is scoped by the owning user: a task that exists but belongs
// to someone else is indistinguishable from a missing one (ErrNotFound).
//
// Functions:
//
//   - CreateTask(ctx, db, t) -> error
//   - GetTask(ctx, db, id, userID) -> *domain.Task, error
//   - CountTasks(ctx, db, userID, status) -> int64, error
//   - ListTasksPage(ctx, db, userID, status, offset, limit) -> []domain.Task, error
//   - UpdateTask(ctx, db, id, userID, fields) -> error
//   - DeleteTask(ctx, db, id, userID) -> error
//
// An empty status means "any status".
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-task-backend/internal/domain"
)

// CreateTask inserts t; ID and timestamps are filled in by GORM.
func CreateTask(ctx context.Context, db *gorm.DB, t *domain.Task) error {
	return db.WithContext(ctx).Create(t).Error
}

// GetTask fetches a task by id owned by userID, or ErrNotFound.
func GetTask(ctx context.Context, db *gorm.DB, id, userID uint) (*domain.Task, error) {
	var t domain.Task
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func tasksQuery(ctx context.Context, db *gorm.DB, userID uint, status string) *gorm.DB {
	q := db.WithContext(ctx).Model(&domain.Task{}).Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	return q
}

// CountTasks returns the number of tasks owned by userID, optionally
// filtered by status.
func CountTasks(ctx context.Context, db *gorm.DB, userID uint, status string) (int64, error) {
	var total int64
	err := tasksQuery(ctx, db, userID, status).Count(&total).Error
	return total, err
}

// ListTasksPage returns a page of tasks owned by userID ordered by creation
// time descending, then id descending for a stable order within a second.
func ListTasksPage(ctx context.Context, db *gorm.DB, userID uint, status string, offset, limit int) ([]domain.Task, error) {
	var out []domain.Task
	err := tasksQuery(ctx, db, userID, status).
		Order("created_at desc").
		Order("id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateTask applies fields (column -> value) to the task id owned by
// userID. It returns ErrNotFound when no row matched.
func UpdateTask(ctx context.Context, db *gorm.DB, id, userID uint, fields map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.Task{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTask soft-deletes the task id owned by userID, or returns ErrNotFound.
func DeleteTask(ctx context.Context, db *gorm.DB, id, userID uint) error {
	res := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.Task{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
