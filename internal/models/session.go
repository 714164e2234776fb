package models

import (
	"time"
)

// Session represents one contiguous period of tracked work on a task
type Session struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OwnerID    string  `gorm:"not null;index" json:"-"`
	TaskID     string  `gorm:"not null;index" json:"task_id"`
	CategoryID *string `gorm:"index" json:"category_id"`

	StartedAt       time.Time  `gorm:"not null;index" json:"started_at"`
	EndedAt         *time.Time `json:"ended_at"`
	DurationSeconds *int64     `json:"duration_seconds"` // set when the session ends
	HourlyRateUSD   *float64   `gorm:"column:hourly_rate_usd" json:"hourly_rate_usd"`
	EarningsUSD     *float64   `gorm:"column:earnings_usd" json:"earnings_usd"` // set when the session ends
	IsActive        bool       `gorm:"not null;default:false;index" json:"is_active"`
	Notes           string     `gorm:"column:session_notes" json:"session_notes"`

	// ActiveKey holds the task id while the session is active and NULL
	// afterwards; the unique index allows one active session per task.
	ActiveKey *string `gorm:"uniqueIndex" json:"-"`

	// Relationships
	Task     *Task     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"task,omitempty"`
	Category *Category `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"category,omitempty"`
}

// Ended reports whether the session has been closed.
func (s *Session) Ended() bool {
	return !s.IsActive || s.EndedAt != nil
}
