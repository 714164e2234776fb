package models

import (
	"time"

	"gorm.io/gorm"
)

// Task statuses
const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
)

// Task represents a card on the kanban board
type Task struct {
	ID        string         `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OwnerID    string     `gorm:"not null;index" json:"-"`
	Title      string     `gorm:"not null" json:"title"`
	Status     string     `gorm:"default:todo" json:"status"` // todo, in_progress, done
	Priority   int        `gorm:"default:0" json:"priority"`  // 0=no priority, 1=low, 2=medium, 3=high
	CategoryID *string    `gorm:"index" json:"category_id"`
	Due        *time.Time `json:"due"`
	DoneAt     *time.Time `json:"done_at"`
	Note       string     `json:"note"`

	// Relationships
	Category *Category `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"category,omitempty"`
}

// Category groups tasks and carries the default hourly rate for their sessions
type Category struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OwnerID       string   `gorm:"not null;index:idx_owner_category_name,unique" json:"-"`
	Name          string   `gorm:"not null;index:idx_owner_category_name,unique" json:"name"`
	Color         string   `json:"color"`
	HourlyRateUSD *float64 `gorm:"column:hourly_rate_usd" json:"hourly_rate_usd"`
}

// ValidStatus reports whether status is one of the board columns.
func ValidStatus(status string) bool {
	switch status {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}
