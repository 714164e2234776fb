package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/balkashynov/mentalbank/internal/apperrors"
	"github.com/balkashynov/mentalbank/internal/db"
	"github.com/balkashynov/mentalbank/internal/models"
	"github.com/balkashynov/mentalbank/internal/sessions"
)

type taskHandler struct {
	svc   *sessions.Service
	store *db.Store
	resp  responder
}

func newTaskHandler(svc *sessions.Service, store *db.Store, resp responder) *taskHandler {
	return &taskHandler{svc: svc, store: store, resp: resp}
}

// RegisterRoutes registers the task routes
func (h *taskHandler) RegisterRoutes(r chi.Router) {
	r.Post("/tasks", h.handleCreate)
	r.Get("/tasks", h.handleList)
	r.Get("/tasks/{id}", h.handleGet)
	r.Patch("/tasks/{id}", h.handleUpdateStatus)
}

// CreateTaskRequest is the body of POST /api/tasks.
type CreateTaskRequest struct {
	Title      string     `json:"title"`
	CategoryID *string    `json:"categoryId,omitempty"`
	Priority   string     `json:"priority,omitempty"`
	Note       string     `json:"note,omitempty"`
	Due        *time.Time `json:"due,omitempty"`
}

// UpdateTaskRequest is the body of PATCH /api/tasks/{id}.
type UpdateTaskRequest struct {
	Status string `json:"status"`
}

func (h *taskHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload CreateTaskRequest
	if err := decode(r, &payload); err != nil {
		h.resp.error(w, r, err)
		return
	}

	task, err := h.store.CreateTask(r.Context(), db.CreateTaskRequest{
		OwnerID:    OwnerFrom(r.Context()),
		Title:      payload.Title,
		CategoryID: payload.CategoryID,
		Priority:   payload.Priority,
		Note:       payload.Note,
		DueDate:    payload.Due,
	})
	if err != nil {
		h.resp.error(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, task)
}

func (h *taskHandler) handleList(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && !models.ValidStatus(status) {
		h.resp.error(w, r, apperrors.Validation("status", "status must be one of todo, in_progress, done"))
		return
	}

	tasks, err := h.store.ListTasks(r.Context(), OwnerFrom(r.Context()), status)
	if err != nil {
		h.resp.error(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, tasks)
}

func (h *taskHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	task, err := h.store.GetTask(r.Context(), OwnerFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.resp.error(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

func (h *taskHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var payload UpdateTaskRequest
	if err := decode(r, &payload); err != nil {
		h.resp.error(w, r, err)
		return
	}

	task, err := h.svc.SetTaskStatus(r.Context(), OwnerFrom(r.Context()), chi.URLParam(r, "id"), payload.Status)
	if err != nil {
		h.resp.error(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}
