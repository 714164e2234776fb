package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/balkashynov/mentalbank/internal/apperrors"
	"github.com/balkashynov/mentalbank/internal/earnings"
	"github.com/balkashynov/mentalbank/internal/sessions"
)

// Session actions accepted by PATCH /api/sessions/{id}.
const (
	ActionEnd    = "end"
	ActionPause  = "pause"
	ActionResume = "resume"
)

type sessionHandler struct {
	svc  *sessions.Service
	resp responder
}

func newSessionHandler(svc *sessions.Service, resp responder) *sessionHandler {
	return &sessionHandler{svc: svc, resp: resp}
}

// RegisterRoutes registers the session routes
func (h *sessionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleStart)
	r.Get("/sessions", h.handleList)
	r.Get("/sessions/{id}", h.handleGet)
	r.Patch("/sessions/{id}", h.handlePatch)
	r.Delete("/sessions/{id}", h.handleDelete)
}

// StartRequest is the body of POST /api/sessions.
type StartRequest struct {
	TaskID        string   `json:"taskId"`
	HourlyRateUSD *float64 `json:"hourlyRateUsd,omitempty"`
	Notes         string   `json:"notes,omitempty"`
}

// PatchRequest is the body of PATCH /api/sessions/{id}.
type PatchRequest struct {
	Action        string     `json:"action,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
	HourlyRateUSD *float64   `json:"hourlyRateUsd,omitempty"`
	EndedAt       *time.Time `json:"endedAt,omitempty"`
}

func (h *sessionHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	var payload StartRequest
	if err := decode(r, &payload); err != nil {
		h.resp.error(w, r, err)
		return
	}

	session, err := h.svc.Start(r.Context(), sessions.StartInput{
		OwnerID:       OwnerFrom(r.Context()),
		TaskID:        payload.TaskID,
		HourlyRateUSD: payload.HourlyRateUSD,
		Notes:         payload.Notes,
	})
	if err != nil {
		h.resp.error(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

func (h *sessionHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"), OwnerFrom(r.Context()))
	if err != nil {
		h.resp.error(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *sessionHandler) handlePatch(w http.ResponseWriter, r *http.Request) {
	var payload PatchRequest
	if err := decode(r, &payload); err != nil {
		h.resp.error(w, r, err)
		return
	}

	if payload.HourlyRateUSD != nil && !earnings.ValidRate(*payload.HourlyRateUSD) {
		h.resp.error(w, r, apperrors.Validation("hourlyRateUsd", "hourlyRateUsd must be a non-negative number no greater than 1000000000"))
		return
	}

	ctx := r.Context()
	id := chi.URLParam(r, "id")
	owner := OwnerFrom(ctx)

	switch payload.Action {
	case ActionEnd:
		notes := ""
		if payload.Notes != nil {
			notes = *payload.Notes
		}
		session, err := h.svc.Stop(ctx, id, owner, notes)
		h.finish(w, r, http.StatusOK, session, err)
	case ActionPause:
		session, err := h.svc.Pause(ctx, id, owner)
		h.finish(w, r, http.StatusOK, session, err)
	case ActionResume:
		session, err := h.svc.Resume(ctx, id, owner)
		h.finish(w, r, http.StatusCreated, session, err)
	case "":
		session, err := h.svc.UpdateDetails(ctx, id, owner, sessions.UpdateInput{
			Notes:         payload.Notes,
			HourlyRateUSD: payload.HourlyRateUSD,
			EndedAt:       payload.EndedAt,
		})
		h.finish(w, r, http.StatusOK, session, err)
	default:
		h.resp.error(w, r, apperrors.Validation("action", "action must be one of end, pause, resume"))
	}
}

func (h *sessionHandler) finish(w http.ResponseWriter, r *http.Request, status int, payload interface{}, err error) {
	if err != nil {
		h.resp.error(w, r, err)
		return
	}
	respondJSON(w, status, payload)
}

func (h *sessionHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id"), OwnerFrom(r.Context())); err != nil {
		h.resp.error(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *sessionHandler) handleList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		h.resp.error(w, r, err)
		return
	}
	filter.OwnerID = OwnerFrom(r.Context())

	result, err := h.svc.List(r.Context(), filter)
	if err != nil {
		h.resp.error(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func parseListFilter(r *http.Request) (sessions.ListFilter, error) {
	q := r.URL.Query()
	filter := sessions.ListFilter{
		TaskID:     strings.TrimSpace(q.Get("taskId")),
		CategoryID: strings.TrimSpace(q.Get("categoryId")),
	}

	if v := q.Get("activeOnly"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return filter, apperrors.Validation("activeOnly", "activeOnly must be true or false")
		}
		filter.ActiveOnly = active
	}

	var err error
	if filter.StartDate, err = parseDateParam(q.Get("startDate"), "startDate", false); err != nil {
		return filter, err
	}
	if filter.EndDate, err = parseDateParam(q.Get("endDate"), "endDate", true); err != nil {
		return filter, err
	}
	if filter.Limit, err = parseIntParam(q.Get("limit"), "limit"); err != nil {
		return filter, err
	}
	if filter.Offset, err = parseIntParam(q.Get("offset"), "offset"); err != nil {
		return filter, err
	}
	return filter, nil
}

// parseDateParam accepts RFC 3339 timestamps or plain dates. A plain end date
// covers the whole day.
func parseDateParam(v, field string, endOfDay bool) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, apperrors.Validation(field, field+" must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func parseIntParam(v, field string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, apperrors.Validation(field, field+" must be a non-negative integer")
	}
	return n, nil
}
