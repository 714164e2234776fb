// Package sessions implements the lifecycle of timed work sessions:
// start, stop, pause, resume, detail edits, deletion and reporting.
package sessions

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/balkashynov/mentalbank/internal/apperrors"
	"github.com/balkashynov/mentalbank/internal/db"
	"github.com/balkashynov/mentalbank/internal/earnings"
	"github.com/balkashynov/mentalbank/internal/models"
	"github.com/balkashynov/mentalbank/internal/telemetry"
)

// PauseMarker is appended to the notes of a session ended by Pause.
const PauseMarker = "[paused]"

// List limits
const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// Config tunes the service.
type Config struct {
	MaxListLimit int
}

// Service runs session lifecycle operations against the store.
type Service struct {
	store   *db.Store
	metrics *telemetry.Metrics
	locks   *keyedMutex
	limit   int

	// Now is the service clock.
	Now func() time.Time
}

// NewService wires a Service. metrics may be nil.
func NewService(store *db.Store, metrics *telemetry.Metrics, cfg Config) *Service {
	limit := cfg.MaxListLimit
	if limit <= 0 {
		limit = MaxListLimit
	}
	return &Service{
		store:   store,
		metrics: metrics,
		locks:   newKeyedMutex(),
		limit:   limit,
		Now:     time.Now,
	}
}

// StartInput holds the data needed to start a session.
type StartInput struct {
	OwnerID       string
	TaskID        string
	HourlyRateUSD *float64
	Notes         string
}

// UpdateInput lists the detail fields UpdateDetails may change.
type UpdateInput struct {
	Notes         *string
	HourlyRateUSD *float64
	EndedAt       *time.Time
}

// View is a session plus live figures for active sessions.
type View struct {
	*models.Session
	CurrentDurationSeconds *int64   `json:"current_duration_seconds,omitempty"`
	CurrentEarningsUSD     *float64 `json:"current_earnings_usd,omitempty"`
}

// ListFilter selects sessions for List.
type ListFilter struct {
	OwnerID    string
	TaskID     string
	CategoryID string
	ActiveOnly bool
	StartDate  *time.Time
	EndDate    *time.Time
	Limit      int
	Offset     int
}

// Summary aggregates every session matching a ListFilter.
type Summary struct {
	TotalSessions         int64   `json:"total_sessions"`
	TotalSeconds          int64   `json:"total_seconds"`
	TotalEarningsUSD      float64 `json:"total_earnings_usd"`
	AverageSessionSeconds int64   `json:"average_session_seconds"`
	AverageHourlyRateUSD  float64 `json:"average_hourly_rate_usd"`
}

// Pagination describes the returned page.
type Pagination struct {
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	Total   int64 `json:"total"`
	HasMore bool  `json:"has_more"`
}

// ListResult is one page of sessions with its summary.
type ListResult struct {
	Sessions   []models.Session `json:"sessions"`
	Summary    Summary          `json:"summary"`
	Pagination Pagination       `json:"pagination"`
}

// Start opens a session for a task. It fails with ACTIVE_SESSION_EXISTS,
// carrying the active session's id, when the task is already being timed.
func (s *Service) Start(ctx context.Context, in StartInput) (*models.Session, error) {
	return s.start(ctx, in, false)
}

func (s *Service) start(ctx context.Context, in StartInput, resumed bool) (*models.Session, error) {
	in.TaskID = strings.TrimSpace(in.TaskID)
	if in.TaskID == "" {
		return nil, apperrors.Validation("taskId", "taskId is required")
	}
	if in.HourlyRateUSD != nil && !earnings.ValidRate(*in.HourlyRateUSD) {
		return nil, apperrors.Validation("hourlyRateUsd", "hourlyRateUsd must be a non-negative number no greater than 1000000000")
	}

	unlock := s.locks.Lock(in.OwnerID + "/" + in.TaskID)
	defer unlock()

	session, err := s.store.StartSession(ctx, db.StartSessionRequest{
		OwnerID:       in.OwnerID,
		TaskID:        in.TaskID,
		HourlyRateUSD: in.HourlyRateUSD,
		Notes:         in.Notes,
		StartedAt:     s.Now(),
	})
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeActiveSessionExists {
			s.metrics.StartConflict(ctx)
		}
		return nil, s.logFailure("start session", in.OwnerID, err)
	}

	s.metrics.SessionStarted(ctx, resumed)
	return session, nil
}

// Stop ends an active session and computes its earnings.
func (s *Service) Stop(ctx context.Context, sessionID, ownerID, notes string) (*models.Session, error) {
	return s.end(ctx, sessionID, ownerID, notes, telemetry.ReasonStop)
}

// Pause ends the session like Stop, marking it as paused. Resume opens a new one.
func (s *Service) Pause(ctx context.Context, sessionID, ownerID string) (*models.Session, error) {
	return s.end(ctx, sessionID, ownerID, PauseMarker, telemetry.ReasonPause)
}

func (s *Service) end(ctx context.Context, sessionID, ownerID, notes, reason string) (*models.Session, error) {
	session, err := s.store.EndSession(ctx, ownerID, sessionID, s.Now(), notes)
	if err != nil {
		return nil, s.logFailure(reason+" session", ownerID, err)
	}
	s.recordEnd(ctx, reason, session)
	return session, nil
}

// Resume starts a new session for the referenced session's task, reusing its hourly rate.
func (s *Service) Resume(ctx context.Context, sessionID, ownerID string) (*models.Session, error) {
	prior, err := s.store.GetSession(ctx, ownerID, sessionID)
	if err != nil {
		return nil, s.logFailure("resume session", ownerID, err)
	}
	return s.start(ctx, StartInput{
		OwnerID:       ownerID,
		TaskID:        prior.TaskID,
		HourlyRateUSD: prior.HourlyRateUSD,
	}, true)
}

// UpdateDetails changes a session's notes, rate or end time.
func (s *Service) UpdateDetails(ctx context.Context, sessionID, ownerID string, in UpdateInput) (*models.Session, error) {
	if in.HourlyRateUSD != nil && !earnings.ValidRate(*in.HourlyRateUSD) {
		return nil, apperrors.Validation("hourlyRateUsd", "hourlyRateUsd must be a non-negative number no greater than 1000000000")
	}

	before, err := s.store.GetSession(ctx, ownerID, sessionID)
	if err != nil {
		return nil, s.logFailure("update session", ownerID, err)
	}

	session, err := s.store.UpdateSession(ctx, ownerID, sessionID, db.SessionUpdate{
		Notes:         in.Notes,
		HourlyRateUSD: in.HourlyRateUSD,
		EndedAt:       in.EndedAt,
	})
	if err != nil {
		return nil, s.logFailure("update session", ownerID, err)
	}
	if !before.Ended() && session.Ended() {
		s.recordEnd(ctx, telemetry.ReasonUpdate, session)
	}
	return session, nil
}

// Delete removes a session that is not active.
func (s *Service) Delete(ctx context.Context, sessionID, ownerID string) error {
	if err := s.store.DeleteSession(ctx, ownerID, sessionID); err != nil {
		return s.logFailure("delete session", ownerID, err)
	}
	return nil
}

// Get returns a session; active sessions carry live duration and earnings.
func (s *Service) Get(ctx context.Context, sessionID, ownerID string) (*View, error) {
	session, err := s.store.GetSession(ctx, ownerID, sessionID)
	if err != nil {
		return nil, s.logFailure("fetch session", ownerID, err)
	}
	return s.view(session), nil
}

func (s *Service) view(session *models.Session) *View {
	v := &View{Session: session}
	if session.Ended() {
		return v
	}
	elapsed := int64(s.Now().Sub(session.StartedAt) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	v.CurrentDurationSeconds = &elapsed
	v.CurrentEarningsUSD = earnings.Calculate(elapsed, session.HourlyRateUSD)
	return v
}

// List returns one page of sessions and a summary over every match.
func (s *Service) List(ctx context.Context, f ListFilter) (*ListResult, error) {
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		return nil, apperrors.Validation("endDate", "endDate cannot be before startDate")
	}
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > s.limit {
		f.Limit = s.limit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	page, err := s.store.ListSessions(ctx, db.SessionFilter{
		OwnerID:    f.OwnerID,
		TaskID:     f.TaskID,
		CategoryID: f.CategoryID,
		ActiveOnly: f.ActiveOnly,
		StartDate:  f.StartDate,
		EndDate:    f.EndDate,
		Limit:      f.Limit,
		Offset:     f.Offset,
	})
	if err != nil {
		return nil, s.logFailure("fetch sessions", f.OwnerID, err)
	}

	totals := page.Totals
	summary := Summary{
		TotalSessions:        totals.Sessions,
		TotalSeconds:         totals.Seconds,
		TotalEarningsUSD:     earnings.Round2(totals.Earnings),
		AverageHourlyRateUSD: earnings.HourlyRate(totals.Earnings, totals.Seconds),
	}
	if totals.Completed > 0 {
		summary.AverageSessionSeconds = totals.Seconds / totals.Completed
	}

	sessions := page.Sessions
	if sessions == nil {
		sessions = []models.Session{}
	}
	return &ListResult{
		Sessions: sessions,
		Summary:  summary,
		Pagination: Pagination{
			Limit:   f.Limit,
			Offset:  f.Offset,
			Total:   totals.Sessions,
			HasMore: int64(f.Offset+len(sessions)) < totals.Sessions,
		},
	}, nil
}

// SetTaskStatus moves a task between board columns; done stops its active session.
func (s *Service) SetTaskStatus(ctx context.Context, ownerID, taskID, status string) (*models.Task, error) {
	unlock := s.locks.Lock(ownerID + "/" + taskID)
	defer unlock()

	task, err := s.store.SetTaskStatus(ctx, ownerID, taskID, status, s.Now())
	if err != nil {
		return nil, s.logFailure("update task", ownerID, err)
	}
	return task, nil
}

func (s *Service) recordEnd(ctx context.Context, reason string, session *models.Session) {
	var duration int64
	if session.DurationSeconds != nil {
		duration = *session.DurationSeconds
	}
	s.metrics.SessionEnded(ctx, reason, duration, session.EarningsUSD)
}

// logFailure writes upstream failures to the server log with full detail.
func (s *Service) logFailure(op, ownerID string, err error) error {
	if apperrors.CodeOf(err).Retryable() {
		log.Printf("[session] %s failed for owner %s: %v", op, ownerID, err)
	}
	return err
}
