// Package api exposes sessions, tasks and categories over HTTP.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/balkashynov/mentalbank/internal/apperrors"
	"github.com/balkashynov/mentalbank/internal/db"
	"github.com/balkashynov/mentalbank/internal/sessions"
)

// OwnerHeader carries the caller identity on every API request.
const OwnerHeader = "X-Owner-ID"

type ownerKey struct{}

// Options tunes the router.
type Options struct {
	// Development adds redacted error details to 5xx responses.
	Development bool
}

// NewRouter wires HTTP routes to the session service and the store.
func NewRouter(svc *sessions.Service, store *db.Store, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	resp := responder{development: opts.Development}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(requireOwner(resp))

		newSessionHandler(svc, resp).RegisterRoutes(api)
		newTaskHandler(svc, store, resp).RegisterRoutes(api)
		newCategoryHandler(store, resp).RegisterRoutes(api)
	})

	return r
}

// requireOwner rejects requests without an owner header and stores the owner in the context.
func requireOwner(resp responder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner := strings.TrimSpace(r.Header.Get(OwnerHeader))
			if owner == "" {
				resp.error(w, r, apperrors.New(apperrors.CodeUnauthenticated, "Unauthorized"))
				return
			}
			ctx := context.WithValue(r.Context(), ownerKey{}, owner)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OwnerFrom returns the caller identity stored by the owner middleware.
func OwnerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}
