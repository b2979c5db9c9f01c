// Package domain defines the persistence models for users and their tasks.
// These types are mapped with GORM and form the core data layer of the task
// backend.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// User is a registered account. Username and email are each unique.
//
// Fields:
//   - ID: auto-increment primary key; the subject of issued access tokens.
//   - Username: login name, NFC-normalized by the service (max 80).
//   - Email: case-folded address (max 100).
//   - Password: bcrypt hash; never serialized.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type User struct {
	ID        uint      `json:"-"         gorm:"primaryKey"`
	Username  string    `json:"username"  gorm:"type:varchar(80);not null;uniqueIndex:ux_users_username"`
	Email     string    `json:"email"     gorm:"type:varchar(100);not null;uniqueIndex:ux_users_email"`
	Password  []byte    `json:"-"         gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Task statuses.
const (
	TaskPending    = "pending"
	TaskInProgress = "in_progress"
	TaskCompleted  = "completed"
)

// TaskStatuses lists the accepted values of Task.Status.
var TaskStatuses = []string{TaskPending, TaskInProgress, TaskCompleted}

// ValidTaskStatus reports whether s is one of TaskStatuses.
func ValidTaskStatus(s string) bool {
	for _, v := range TaskStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// DueDateLayout is the calendar-date format of Task.DueDate.
const DueDateLayout = "2006-01-02"

// Task is a unit of work owned by a single user.
//
// Fields:
//   - ID: auto-increment primary key.
//   - UserID: owning user (indexed together with CreatedAt for listing).
//   - Title: short label (1..80).
//   - Description: optional free text (max 500).
//   - DueDate: optional YYYY-MM-DD.
//   - Status: pending | in_progress | completed (enforced by DB constraint).
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker.
//   - User: FK association; tasks are removed with their owner.
type Task struct {
	ID          uint           `json:"id"          gorm:"primaryKey"`
	UserID      uint           `json:"-"           gorm:"not null;index:idx_user_tasks,priority:1"`
	Title       string         `json:"title"       gorm:"type:varchar(80);not null"`
	Description *string        `json:"description" gorm:"type:varchar(500)"`
	DueDate     *string        `json:"due_date"    gorm:"type:varchar(10);index"`
	Status      string         `json:"status"      gorm:"type:varchar(20);not null;default:'pending';check:status IN ('pending','in_progress','completed')"`
	CreatedAt   time.Time      `json:"created_at"  gorm:"index:idx_user_tasks,priority:2"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"           gorm:"index"`

	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Task.
func (Task) TableName() string { return "tasks" }
