// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
//
// Error semantics:
//   - Missing rows return ErrNotFound (gorm.ErrRecordNotFound).
//   - Username/email collisions return ErrDuplicate; this is the only
//     persistence fault the service layer turns into a conflict.
//   - Other DB errors are propagated as is.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-task-backend/internal/domain"
)

// CreateUser inserts u. On a unique violation it returns ErrDuplicate.
func CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetUserByID fetches a user by primary key, or ErrNotFound.
func GetUserByID(ctx context.Context, db *gorm.DB, id uint) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByUsername fetches a user by exact username, or ErrNotFound.
func GetUserByUsername(ctx context.Context, db *gorm.DB, username string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).
		Where("username = ?", username).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}
