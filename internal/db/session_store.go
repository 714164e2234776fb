package db

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/balkashynov/mentalbank/internal/apperrors"
	"github.com/balkashynov/mentalbank/internal/earnings"
	"github.com/balkashynov/mentalbank/internal/models"
)

var errDuplicateActive = errors.New("duplicate active session")

// maxStartAttempts bounds retries when a concurrent start wins the unique index
const maxStartAttempts = 3

// StartSessionRequest holds the data needed to open a session
type StartSessionRequest struct {
	OwnerID       string
	TaskID        string
	HourlyRateUSD *float64 // nil falls back to the task category's rate
	Notes         string
	StartedAt     time.Time
}

// SessionUpdate lists the fields UpdateSession may change; nil means unchanged
type SessionUpdate struct {
	Notes         *string
	HourlyRateUSD *float64
	EndedAt       *time.Time
}

// SessionFilter selects sessions for ListSessions
type SessionFilter struct {
	OwnerID    string
	TaskID     string
	CategoryID string
	ActiveOnly bool
	StartDate  *time.Time
	EndDate    *time.Time
	Limit      int
	Offset     int
}

// SessionTotals aggregates every session matching a filter
type SessionTotals struct {
	Sessions  int64
	Completed int64
	Seconds   int64
	Earnings  float64
}

// SessionPage is one page of sessions plus totals over all matches
type SessionPage struct {
	Sessions []models.Session
	Totals   SessionTotals
}

// ActiveSessionConflict builds the conflict error carrying the existing session's id
func ActiveSessionConflict(activeID string) *apperrors.Error {
	return apperrors.WithMetadata(
		apperrors.CodeActiveSessionExists,
		"An active session already exists for this task",
		map[string]string{apperrors.MetaActiveSessionID: activeID},
	)
}

// StartSession opens a new active session for a task and moves the task to in_progress
func (s *Store) StartSession(ctx context.Context, req StartSessionRequest) (*models.Session, error) {
	if req.HourlyRateUSD != nil && !earnings.ValidRate(*req.HourlyRateUSD) {
		return nil, apperrors.Validation("hourlyRateUsd", "hourlyRateUsd must be a non-negative number no greater than 1000000000")
	}
	startedAt := req.StartedAt.UTC()

	var sessionID string
	start := func(tx *gorm.DB) error {
		// Check if task exists
		task, err := getTask(tx, req.OwnerID, req.TaskID)
		if err != nil {
			return err
		}

		// Check if there's already an active session
		active, err := findActiveSession(tx, req.OwnerID, task.ID)
		if err != nil {
			return err
		}
		if active != nil {
			return ActiveSessionConflict(active.ID)
		}

		if err := closeStaleSessions(tx, req.OwnerID, task.ID, startedAt); err != nil {
			return err
		}

		rate := req.HourlyRateUSD
		if rate == nil && task.Category != nil && task.Category.HourlyRateUSD != nil {
			categoryRate := *task.Category.HourlyRateUSD
			rate = &categoryRate
		}

		activeKey := task.ID
		session := models.Session{
			ID:            uuid.NewString(),
			OwnerID:       req.OwnerID,
			TaskID:        task.ID,
			CategoryID:    task.CategoryID,
			StartedAt:     startedAt,
			HourlyRateUSD: rate,
			IsActive:      true,
			Notes:         strings.TrimSpace(req.Notes),
			ActiveKey:     &activeKey,
		}
		if err := tx.Create(&session).Error; err != nil {
			if IsDuplicate(err) {
				return errDuplicateActive
			}
			return apperrors.Upstream("start session", err)
		}

		if err := markInProgress(tx, task); err != nil {
			return apperrors.Upstream("start session", err)
		}

		sessionID = session.ID
		return nil
	}

	var err error
	for attempt := 0; attempt < maxStartAttempts; attempt++ {
		err = s.DB.WithContext(ctx).Transaction(start)
		if !errors.Is(err, errDuplicateActive) {
			break
		}
		// lost a race with a concurrent start; report the winner
		if err = s.raceWinner(ctx, req.OwnerID, req.TaskID); err != nil {
			return nil, err
		}
		// the winner already ended, so try again
		err = apperrors.Upstream("start session", errDuplicateActive)
	}
	if err != nil {
		return nil, err
	}

	return s.GetSession(ctx, req.OwnerID, sessionID)
}

// EndSession closes an active session at endedAt, appending notes if given
func (s *Store) EndSession(ctx context.Context, ownerID, id string, endedAt time.Time, notes string) (*models.Session, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := getSession(tx, ownerID, id)
		if err != nil {
			return err
		}
		if session.Ended() {
			return alreadyEnded()
		}
		_, err = closeSession(tx, session, endedAt.UTC(), notes)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetSession(ctx, ownerID, id)
}

// GetSession retrieves one of the owner's sessions with its task and category
func (s *Store) GetSession(ctx context.Context, ownerID, id string) (*models.Session, error) {
	return getSession(s.DB.WithContext(ctx).Preload("Task").Preload("Category"), ownerID, id)
}

// UpdateSession applies a partial update to a session's notes, rate or end time
func (s *Store) UpdateSession(ctx context.Context, ownerID, id string, upd SessionUpdate) (*models.Session, error) {
	if upd.Notes == nil && upd.HourlyRateUSD == nil && upd.EndedAt == nil {
		return nil, apperrors.New(apperrors.CodeNoValidUpdate, "No valid updates provided")
	}
	if upd.HourlyRateUSD != nil && !earnings.ValidRate(*upd.HourlyRateUSD) {
		return nil, apperrors.Validation("hourlyRateUsd", "hourlyRateUsd must be a non-negative number no greater than 1000000000")
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := getSession(tx, ownerID, id)
		if err != nil {
			return err
		}

		if upd.HourlyRateUSD != nil {
			rate := *upd.HourlyRateUSD
			session.HourlyRateUSD = &rate
		}
		notes := session.Notes
		if upd.Notes != nil {
			notes = strings.TrimSpace(*upd.Notes)
		}

		if upd.EndedAt != nil {
			endedAt := upd.EndedAt.UTC()
			if endedAt.Before(session.StartedAt) {
				return apperrors.Validation("endedAt", "endedAt cannot be before the session start")
			}
			fields := finalFields(session, endedAt, notes)
			fields["hourly_rate_usd"] = session.HourlyRateUSD
			res := tx.Model(&models.Session{}).Where("id = ?", session.ID).Updates(fields)
			if res.Error != nil {
				return apperrors.Upstream("update session", res.Error)
			}
			return nil
		}

		fields := map[string]any{
			"session_notes":   notes,
			"hourly_rate_usd": session.HourlyRateUSD,
		}
		if session.Ended() && session.DurationSeconds != nil {
			fields["earnings_usd"] = earnings.Calculate(*session.DurationSeconds, session.HourlyRateUSD)
		}
		if err := tx.Model(&models.Session{}).Where("id = ?", session.ID).Updates(fields).Error; err != nil {
			return apperrors.Upstream("update session", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetSession(ctx, ownerID, id)
}

// DeleteSession removes a session that is no longer active
func (s *Store) DeleteSession(ctx context.Context, ownerID, id string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := getSession(tx, ownerID, id)
		if err != nil {
			return err
		}
		if session.IsActive {
			return stillActive()
		}
		res := tx.Where("id = ? AND is_active = ?", session.ID, false).Delete(&models.Session{})
		if res.Error != nil {
			return apperrors.Upstream("delete session", res.Error)
		}
		if res.RowsAffected == 0 {
			return stillActive()
		}
		return nil
	})
}

// ListSessions returns one page of matching sessions, newest first, and totals over all matches
func (s *Store) ListSessions(ctx context.Context, filter SessionFilter) (*SessionPage, error) {
	base := func() *gorm.DB {
		query := s.DB.WithContext(ctx).Model(&models.Session{}).Where("owner_id = ?", filter.OwnerID)
		if filter.TaskID != "" {
			query = query.Where("task_id = ?", filter.TaskID)
		}
		if filter.CategoryID != "" {
			query = query.Where("category_id = ?", filter.CategoryID)
		}
		if filter.ActiveOnly {
			query = query.Where("is_active = ? AND ended_at IS NULL", true)
		}
		if filter.StartDate != nil {
			query = query.Where("started_at >= ?", filter.StartDate.UTC())
		}
		if filter.EndDate != nil {
			query = query.Where("started_at <= ?", filter.EndDate.UTC())
		}
		return query
	}

	var sessions []models.Session
	err := base().
		Preload("Task").
		Preload("Category").
		Order("started_at DESC").Order("id").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&sessions).Error
	if err != nil {
		return nil, apperrors.Upstream("list sessions", err)
	}

	var totals SessionTotals
	err = base().
		Select("COUNT(*) AS sessions, COUNT(duration_seconds) AS completed, " +
			"COALESCE(SUM(duration_seconds), 0) AS seconds, COALESCE(SUM(earnings_usd), 0) AS earnings").
		Scan(&totals).Error
	if err != nil {
		return nil, apperrors.Upstream("list sessions", err)
	}

	return &SessionPage{Sessions: sessions, Totals: totals}, nil
}

// ActiveSessionForTask returns the task's active session, or nil if none
func (s *Store) ActiveSessionForTask(ctx context.Context, ownerID, taskID string) (*models.Session, error) {
	return findActiveSession(s.DB.WithContext(ctx), ownerID, taskID)
}

func getSession(tx *gorm.DB, ownerID, id string) (*models.Session, error) {
	var session models.Session
	err := tx.Where("id = ? AND owner_id = ?", id, ownerID).First(&session).Error
	if err != nil {
		if IsNotFound(err) {
			return nil, apperrors.NotFound("session")
		}
		return nil, apperrors.Upstream("fetch session", err)
	}
	return &session, nil
}

// raceWinner returns the conflict naming the active session that beat a
// start to the unique index, or nil when that session has already ended.
func (s *Store) raceWinner(ctx context.Context, ownerID, taskID string) error {
	active, err := findActiveSession(s.DB.WithContext(ctx), ownerID, taskID)
	if err != nil {
		log.Printf("[store] lookup of the active session for task %s failed: %v", taskID, err)
		return err
	}
	if active == nil {
		return nil
	}
	return ActiveSessionConflict(active.ID)
}

func findActiveSession(tx *gorm.DB, ownerID, taskID string) (*models.Session, error) {
	var session models.Session
	err := tx.Where("owner_id = ? AND task_id = ? AND is_active = ? AND ended_at IS NULL", ownerID, taskID, true).
		First(&session).Error
	if err != nil {
		if IsNotFound(err) {
			return nil, nil // No active session is not an error
		}
		return nil, apperrors.Upstream("fetch active session", err)
	}
	return &session, nil
}

// closeStaleSessions finishes rows left half-closed for the owner's task
func closeStaleSessions(tx *gorm.DB, ownerID, taskID string, now time.Time) error {
	var stale []models.Session
	err := tx.Where("owner_id = ? AND task_id = ?", ownerID, taskID).
		Where("(is_active = ? AND ended_at IS NOT NULL) OR (is_active = ? AND (ended_at IS NULL OR active_key IS NOT NULL))", true, false).
		Find(&stale).Error
	if err != nil {
		return apperrors.Upstream("start session", err)
	}

	for i := range stale {
		endedAt := now
		if stale[i].EndedAt != nil {
			endedAt = *stale[i].EndedAt
		}
		fields := finalFields(&stale[i], endedAt, stale[i].Notes)
		if err := tx.Model(&models.Session{}).Where("id = ?", stale[i].ID).Updates(fields).Error; err != nil {
			return apperrors.Upstream("start session", err)
		}
		log.Printf("[store] closed half-open session %s of task %s", stale[i].ID, taskID)
	}
	return nil
}

// closeSession ends an active session; a concurrent close makes it fail with already-ended
func closeSession(tx *gorm.DB, session *models.Session, endedAt time.Time, appendNotes string) (*models.Session, error) {
	notes := appendNote(session.Notes, appendNotes)
	fields := finalFields(session, endedAt, notes)

	res := tx.Model(&models.Session{}).
		Where("id = ? AND is_active = ? AND ended_at IS NULL", session.ID, true).
		Updates(fields)
	if res.Error != nil {
		return nil, apperrors.Upstream("end session", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, alreadyEnded()
	}

	closed := *session
	closed.EndedAt = &endedAt
	closed.IsActive = false
	closed.ActiveKey = nil
	closed.Notes = notes
	duration := fields["duration_seconds"].(int64)
	closed.DurationSeconds = &duration
	closed.EarningsUSD = fields["earnings_usd"].(*float64)
	return &closed, nil
}

// finalFields computes the columns written when a session ends at endedAt
func finalFields(session *models.Session, endedAt time.Time, notes string) map[string]any {
	duration := int64(endedAt.Sub(session.StartedAt) / time.Second)
	if duration < 0 {
		duration = 0
	}
	return map[string]any{
		"ended_at":         endedAt,
		"is_active":        false,
		"active_key":       nil,
		"duration_seconds": duration,
		"earnings_usd":     earnings.Calculate(duration, session.HourlyRateUSD),
		"session_notes":    notes,
	}
}

func appendNote(existing, note string) string {
	note = strings.TrimSpace(note)
	if note == "" {
		return existing
	}
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}

func alreadyEnded() *apperrors.Error {
	return apperrors.New(apperrors.CodeSessionAlreadyEnded, "Session has already ended")
}

func stillActive() *apperrors.Error {
	return apperrors.New(apperrors.CodeSessionStillActive, "Cannot delete an active session. Stop it first.")
}
