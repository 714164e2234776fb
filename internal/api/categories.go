package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/balkashynov/mentalbank/internal/db"
)

type categoryHandler struct {
	store *db.Store
	resp  responder
}

func newCategoryHandler(store *db.Store, resp responder) *categoryHandler {
	return &categoryHandler{store: store, resp: resp}
}

// RegisterRoutes registers the category routes
func (h *categoryHandler) RegisterRoutes(r chi.Router) {
	r.Post("/categories", h.handleCreate)
	r.Get("/categories", h.handleList)
	r.Get("/categories/{id}", h.handleGet)
}

// CreateCategoryRequest is the body of POST /api/categories.
type CreateCategoryRequest struct {
	Name          string   `json:"name"`
	Color         string   `json:"color,omitempty"`
	HourlyRateUSD *float64 `json:"hourlyRateUsd,omitempty"`
}

func (h *categoryHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload CreateCategoryRequest
	if err := decode(r, &payload); err != nil {
		h.resp.error(w, r, err)
		return
	}

	category, err := h.store.CreateCategory(r.Context(), db.CreateCategoryRequest{
		OwnerID:       OwnerFrom(r.Context()),
		Name:          payload.Name,
		Color:         payload.Color,
		HourlyRateUSD: payload.HourlyRateUSD,
	})
	if err != nil {
		h.resp.error(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, category)
}

func (h *categoryHandler) handleList(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories(r.Context(), OwnerFrom(r.Context()))
	if err != nil {
		h.resp.error(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

func (h *categoryHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	category, err := h.store.GetCategory(r.Context(), OwnerFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.resp.error(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, category)
}
