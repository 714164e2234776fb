package db

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/balkashynov/mentalbank/internal/apperrors"
	"github.com/balkashynov/mentalbank/internal/models"
)

// CreateTaskRequest holds the data needed to create a new task
type CreateTaskRequest struct {
	OwnerID    string
	Title      string
	CategoryID *string
	Priority   string // can be "low/medium/high" or "1/2/3" or empty for no priority
	Note       string
	DueDate    *time.Time
}

// CreateTask creates a new task in the todo column
func (s *Store) CreateTask(ctx context.Context, req CreateTaskRequest) (*models.Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperrors.Validation("title", "title is required")
	}

	if req.CategoryID != nil {
		if _, err := s.GetCategory(ctx, req.OwnerID, *req.CategoryID); err != nil {
			return nil, err
		}
	}

	task := models.Task{
		ID:         uuid.NewString(),
		OwnerID:    req.OwnerID,
		Title:      title,
		Status:     models.StatusTodo,
		Priority:   parsePriority(req.Priority),
		CategoryID: req.CategoryID,
		Note:       req.Note,
		Due:        req.DueDate,
	}

	if err := s.DB.WithContext(ctx).Create(&task).Error; err != nil {
		return nil, apperrors.Upstream("create task", err)
	}

	return s.GetTask(ctx, req.OwnerID, task.ID)
}

// parsePriority converts priority string to int
func parsePriority(priority string) int {
	priority = strings.ToLower(strings.TrimSpace(priority))
	switch priority {
	case "low", "1":
		return 1
	case "medium", "med", "2":
		return 2
	case "high", "3":
		return 3
	default:
		return 0 // 0 means no priority set
	}
}

// GetTask retrieves one of the owner's tasks by ID
func (s *Store) GetTask(ctx context.Context, ownerID, id string) (*models.Task, error) {
	return getTask(s.DB.WithContext(ctx), ownerID, id)
}

func getTask(tx *gorm.DB, ownerID, id string) (*models.Task, error) {
	var task models.Task
	err := tx.Preload("Category").
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&task).Error
	if err != nil {
		if IsNotFound(err) {
			return nil, apperrors.NotFound("task")
		}
		return nil, apperrors.Upstream("fetch task", err)
	}
	return &task, nil
}

// ListTasks retrieves the owner's tasks, optionally filtered by status
func (s *Store) ListTasks(ctx context.Context, ownerID, status string) ([]models.Task, error) {
	var tasks []models.Task

	query := s.DB.WithContext(ctx).Preload("Category").Where("owner_id = ?", ownerID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Order("priority DESC, created_at ASC").Find(&tasks).Error; err != nil {
		return nil, apperrors.Upstream("list tasks", err)
	}

	return tasks, nil
}

// SetTaskStatus moves a task to another board column. Marking a task done
// stops its active session first, ending it at now.
func (s *Store) SetTaskStatus(ctx context.Context, ownerID, id, status string, now time.Time) (*models.Task, error) {
	if !models.ValidStatus(status) {
		return nil, apperrors.Validation("status", "status must be one of todo, in_progress, done")
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := getTask(tx, ownerID, id)
		if err != nil {
			return err
		}

		if status == models.StatusDone {
			active, err := findActiveSession(tx, ownerID, id)
			if err != nil {
				return err
			}
			if active != nil {
				if _, err := closeSession(tx, active, now, ""); err != nil {
					return err
				}
			}
		}

		updates := map[string]any{"status": status, "done_at": nil}
		if status == models.StatusDone {
			if task.Status == models.StatusDone && task.DoneAt != nil {
				updates["done_at"] = task.DoneAt
			} else {
				updates["done_at"] = now.UTC()
			}
		}
		if err := tx.Model(&models.Task{}).Where("id = ?", task.ID).Updates(updates).Error; err != nil {
			return apperrors.Upstream("update task", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetTask(ctx, ownerID, id)
}

// markInProgress moves a task to the in_progress column unless it already is there
func markInProgress(tx *gorm.DB, task *models.Task) error {
	if task.Status == models.StatusInProgress {
		return nil
	}
	return tx.Model(&models.Task{}).
		Where("id = ?", task.ID).
		Updates(map[string]any{"status": models.StatusInProgress, "done_at": nil}).Error
}
