package timers

import (
	"time"

	"github.com/balkashynov/mentalbank/internal/earnings"
)

// TaskRef identifies the task a timer runs for.
type TaskRef struct {
	ID            string
	Title         string
	CategoryID    *string
	HourlyRateUSD *float64 // explicit rate; the category rate is used when nil
}

// Entry is the local state of one task's timer.
type Entry struct {
	TaskID          string     `json:"taskId"`
	TaskTitle       string     `json:"taskTitle,omitempty"`
	CategoryID      *string    `json:"categoryId,omitempty"`
	HourlyRateUSD   *float64   `json:"hourlyRateUsd,omitempty"`
	CurrentTime     int64      `json:"currentTime"`
	IsRunning       bool       `json:"isRunning"`
	IsPaused        bool       `json:"isPaused"`
	IsStopped       bool       `json:"isStopped"`
	SessionEarnings *float64   `json:"sessionEarnings,omitempty"`
	SessionID       string     `json:"sessionId,omitempty"`
	StartTime       time.Time  `json:"startTime"`
	RunningSince    *time.Time `json:"runningSince,omitempty"`
	AccruedSeconds  int64      `json:"accruedSeconds"`
	Unsynced        bool       `json:"unsynced,omitempty"`
}

// Ticking reports whether the entry accrues time.
func (e *Entry) Ticking() bool {
	return e.IsRunning && !e.IsPaused
}

// Status is a short label for the entry's state.
func (e *Entry) Status() string {
	switch {
	case e.IsStopped:
		return "stopped"
	case e.IsPaused:
		return "paused"
	case e.IsRunning:
		return "running"
	default:
		return "idle"
	}
}

func (e *Entry) recompute() {
	e.SessionEarnings = earnings.Calculate(e.CurrentTime, e.HourlyRateUSD)
}

// freeze folds the running stretch into AccruedSeconds.
func (e *Entry) freeze() {
	e.AccruedSeconds = e.CurrentTime
	e.RunningSince = nil
}

func (e *Entry) thaw(now time.Time) {
	now = now.UTC()
	e.AccruedSeconds = e.CurrentTime
	e.RunningSince = &now
}

func (e *Entry) clone() Entry {
	c := *e
	if e.CategoryID != nil {
		v := *e.CategoryID
		c.CategoryID = &v
	}
	if e.HourlyRateUSD != nil {
		v := *e.HourlyRateUSD
		c.HourlyRateUSD = &v
	}
	if e.SessionEarnings != nil {
		v := *e.SessionEarnings
		c.SessionEarnings = &v
	}
	if e.RunningSince != nil {
		v := *e.RunningSince
		c.RunningSince = &v
	}
	return c
}
