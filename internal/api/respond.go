package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/balkashynov/mentalbank/internal/apperrors"
)

type errorBody struct {
	Error           string `json:"error"`
	Code            string `json:"code"`
	ActiveSessionID string `json:"activeSessionId,omitempty"`
	Field           string `json:"field,omitempty"`
	Details         string `json:"details,omitempty"`
}

type responder struct {
	development bool
}

// respondJSON writes payload as a JSON response
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[api] failed to encode response: %v", err)
	}
}

// error maps err onto the error envelope. Server failures only ever expose
// their generic message; details are added in development and redacted.
func (rs responder) error(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.Wrap(apperrors.CodeUnknown, "Failed to process request", err)
	}

	status := appErr.Code.HTTPStatus()
	body := errorBody{
		Error: appErr.Message,
		Code:  string(appErr.Code),
	}

	switch {
	case appErr.Code == apperrors.CodeActiveSessionExists:
		body.ActiveSessionID = appErr.Metadata[apperrors.MetaActiveSessionID]
	case status < http.StatusInternalServerError:
		body.Field = appErr.Metadata[apperrors.MetaField]
	default:
		log.Printf("[api] %s %s: %v", r.Method, r.URL.Path, err)
		if rs.development && appErr.Cause != nil {
			body.Details = apperrors.Redact(appErr.Cause.Error(), chi.URLParam(r, "id"), OwnerFrom(r.Context()))
		}
	}

	respondJSON(w, status, body)
}

// decode reads a JSON request body into v.
func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.Validation("body", "invalid request body")
	}
	return nil
}
