// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// TasksStats returns the number of tasks owned by userID (optionally
// filtered by status) and the greatest UpdatedAt among them.
//
// When the user has no matching tasks, count is 0 and maxUpdatedAt is nil.
// Soft-deleted rows are excluded, so a delete changes count and therefore
// any ETag derived from it.
func TasksStats(ctx context.Context, db *gorm.DB, userID uint, status string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := tasksQuery(ctx, db, userID, status)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = tasksQuery(ctx, db, userID, status).
		Select("updated_at").
		Order("updated_at DESC").
		Limit(1).
		Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
