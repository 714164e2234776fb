package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/balkashynov/mentalbank/internal/apperrors"
	"github.com/balkashynov/mentalbank/internal/db"
	"github.com/balkashynov/mentalbank/internal/models"
	"github.com/balkashynov/mentalbank/internal/sessions"
)

const testOwner = "owner-a"

type testEnv struct {
	router http.Handler
	store  *db.Store
	svc    *sessions.Service
	now    time.Time
}

func setupRouter(t *testing.T, opts Options) *testEnv {
	t.Helper()
	store, err := db.Open(db.MemoryPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	env := &testEnv{store: store, now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	env.svc = sessions.NewService(store, nil, sessions.Config{})
	env.svc.Now = func() time.Time { return env.now }
	env.router = NewRouter(env.svc, store, opts)
	return env
}

func (e *testEnv) do(t *testing.T, method, path, owner string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if owner != "" {
		req.Header.Set(OwnerHeader, owner)
	}
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

func (e *testEnv) seedTask(t *testing.T, rate *float64) *models.Task {
	t.Helper()
	ctx := context.Background()
	var categoryID *string
	if rate != nil {
		category, err := e.store.CreateCategory(ctx, db.CreateCategoryRequest{OwnerID: testOwner, Name: "Client work", HourlyRateUSD: rate})
		if err != nil {
			t.Fatalf("create category: %v", err)
		}
		categoryID = &category.ID
	}
	task, err := e.store.CreateTask(ctx, db.CreateTaskRequest{OwnerID: testOwner, Title: "Write report", CategoryID: categoryID})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func decodeBody[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(resp.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", resp.Body.String(), err)
	}
	return v
}

func rate(v float64) *float64 { return &v }

func TestHealthzNeedsNoOwner(t *testing.T) {
	env := setupRouter(t, Options{})
	resp := env.do(t, http.MethodGet, "/healthz", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestMissingOwnerIsUnauthorized(t *testing.T) {
	env := setupRouter(t, Options{})
	resp := env.do(t, http.MethodGet, "/api/sessions", "", nil)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	body := decodeBody[errorBody](t, resp)
	if body.Code != string(apperrors.CodeUnauthenticated) {
		t.Fatalf("expected UNAUTHENTICATED, got %s", body.Code)
	}
}

func TestStartEndLifecycle(t *testing.T) {
	env := setupRouter(t, Options{})
	task := env.seedTask(t, rate(100))

	resp := env.do(t, http.MethodPost, "/api/sessions", testOwner, StartRequest{TaskID: task.ID})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	started := decodeBody[models.Session](t, resp)
	if !started.IsActive || started.HourlyRateUSD == nil || *started.HourlyRateUSD != 100 {
		t.Fatalf("unexpected started session %+v", started)
	}

	env.now = env.now.Add(time.Hour)
	resp = env.do(t, http.MethodPatch, "/api/sessions/"+started.ID, testOwner, PatchRequest{Action: ActionEnd})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	ended := decodeBody[models.Session](t, resp)
	if ended.IsActive || *ended.DurationSeconds != 3600 || *ended.EarningsUSD != 100 {
		t.Fatalf("unexpected ended session %+v", ended)
	}

	resp = env.do(t, http.MethodPatch, "/api/sessions/"+started.ID, testOwner, PatchRequest{Action: ActionEnd})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on second end, got %d", resp.Code)
	}
	if body := decodeBody[errorBody](t, resp); body.Code != string(apperrors.CodeSessionAlreadyEnded) {
		t.Fatalf("expected SESSION_ALREADY_ENDED, got %s", body.Code)
	}
}

func TestStartConflictCarriesActiveSessionID(t *testing.T) {
	env := setupRouter(t, Options{})
	task := env.seedTask(t, nil)

	first := decodeBody[models.Session](t, env.do(t, http.MethodPost, "/api/sessions", testOwner, StartRequest{TaskID: task.ID}))

	resp := env.do(t, http.MethodPost, "/api/sessions", testOwner, StartRequest{TaskID: task.ID})
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
	body := decodeBody[errorBody](t, resp)
	if body.ActiveSessionID != first.ID {
		t.Fatalf("expected activeSessionId %s, got %q", first.ID, body.ActiveSessionID)
	}
}

func TestStartValidation(t *testing.T) {
	env := setupRouter(t, Options{})

	cases := []struct {
		name string
		body interface{}
	}{
		{"missing task", StartRequest{}},
		{"negative rate", map[string]interface{}{"taskId": "x", "hourlyRateUsd": -1}},
		{"rate not a number", map[string]interface{}{"taskId": "x", "hourlyRateUsd": "ten"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/sessions", testOwner, tc.body)
			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", resp.Code, resp.Body.String())
			}
		})
	}
}

func TestPauseResumeAndDelete(t *testing.T) {
	env := setupRouter(t, Options{})
	task := env.seedTask(t, rate(60))

	started := decodeBody[models.Session](t, env.do(t, http.MethodPost, "/api/sessions", testOwner, StartRequest{TaskID: task.ID}))
	env.now = env.now.Add(10 * time.Minute)

	resp := env.do(t, http.MethodDelete, "/api/sessions/"+started.ID, testOwner, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 deleting active session, got %d", resp.Code)
	}

	resp = env.do(t, http.MethodPatch, "/api/sessions/"+started.ID, testOwner, PatchRequest{Action: ActionPause})
	paused := decodeBody[models.Session](t, resp)
	if paused.IsActive || !strings.Contains(paused.Notes, sessions.PauseMarker) {
		t.Fatalf("unexpected paused session %+v", paused)
	}

	resp = env.do(t, http.MethodPatch, "/api/sessions/"+started.ID, testOwner, PatchRequest{Action: ActionResume})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 on resume, got %d: %s", resp.Code, resp.Body.String())
	}
	resumed := decodeBody[models.Session](t, resp)
	if resumed.ID == started.ID || !resumed.IsActive {
		t.Fatalf("expected a new active session, got %+v", resumed)
	}

	resp = env.do(t, http.MethodDelete, "/api/sessions/"+started.ID, testOwner, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 deleting paused session, got %d", resp.Code)
	}
	if body := decodeBody[map[string]bool](t, resp); !body["success"] {
		t.Fatalf("expected success body, got %v", body)
	}
}

func TestUnknownActionRejected(t *testing.T) {
	env := setupRouter(t, Options{})
	resp := env.do(t, http.MethodPatch, "/api/sessions/abc", testOwner, PatchRequest{Action: "explode"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestActionRejectsInvalidRate(t *testing.T) {
	env := setupRouter(t, Options{})
	task := env.seedTask(t, rate(60))
	started := decodeBody[models.Session](t, env.do(t, http.MethodPost, "/api/sessions", testOwner, StartRequest{TaskID: task.ID}))

	for _, action := range []string{ActionEnd, ActionPause} {
		resp := env.do(t, http.MethodPatch, "/api/sessions/"+started.ID, testOwner, PatchRequest{Action: action, HourlyRateUSD: rate(-1)})
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", action, resp.Code)
		}
		if body := decodeBody[errorBody](t, resp); body.Code != string(apperrors.CodeValidation) {
			t.Fatalf("%s: expected VALIDATION_FAILED, got %s", action, body.Code)
		}
	}

	resp := env.do(t, http.MethodPatch, "/api/sessions/"+started.ID, testOwner, PatchRequest{HourlyRateUSD: rate(1e13)})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an oversized rate, got %d", resp.Code)
	}

	current := decodeBody[models.Session](t, env.do(t, http.MethodGet, "/api/sessions/"+started.ID, testOwner, nil))
	if !current.IsActive {
		t.Fatal("rejected actions must leave the session running")
	}
}

func TestUpdateDetailsWithoutFields(t *testing.T) {
	env := setupRouter(t, Options{})
	task := env.seedTask(t, nil)
	started := decodeBody[models.Session](t, env.do(t, http.MethodPost, "/api/sessions", testOwner, StartRequest{TaskID: task.ID}))

	resp := env.do(t, http.MethodPatch, "/api/sessions/"+started.ID, testOwner, map[string]string{})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if body := decodeBody[errorBody](t, resp); body.Code != string(apperrors.CodeNoValidUpdate) {
		t.Fatalf("expected NO_VALID_UPDATES, got %s", body.Code)
	}
}

func TestOtherOwnerGetsNotFound(t *testing.T) {
	env := setupRouter(t, Options{})
	task := env.seedTask(t, nil)
	started := decodeBody[models.Session](t, env.do(t, http.MethodPost, "/api/sessions", testOwner, StartRequest{TaskID: task.ID}))

	for _, req := range []struct {
		method string
		body   interface{}
	}{
		{http.MethodGet, nil},
		{http.MethodPatch, PatchRequest{Action: ActionEnd}},
		{http.MethodDelete, nil},
	} {
		resp := env.do(t, req.method, "/api/sessions/"+started.ID, "intruder", req.body)
		if resp.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", req.method, resp.Code)
		}
	}

	resp := env.do(t, http.MethodPost, "/api/sessions", "intruder", StartRequest{TaskID: task.ID})
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 starting a foreign task, got %d", resp.Code)
	}
}

func TestGetActiveSessionIncludesLiveFigures(t *testing.T) {
	env := setupRouter(t, Options{})
	task := env.seedTask(t, rate(36))
	started := decodeBody[models.Session](t, env.do(t, http.MethodPost, "/api/sessions", testOwner, StartRequest{TaskID: task.ID}))

	env.now = env.now.Add(100 * time.Second)
	body := decodeBody[map[string]interface{}](t, env.do(t, http.MethodGet, "/api/sessions/"+started.ID, testOwner, nil))
	if body["current_duration_seconds"] != float64(100) {
		t.Fatalf("expected 100s live duration, got %v", body["current_duration_seconds"])
	}
	if body["current_earnings_usd"] != 1.0 {
		t.Fatalf("expected $1.00 live earnings, got %v", body["current_earnings_usd"])
	}
	if _, ok := body["owner_id"]; ok {
		t.Fatal("owner id must not be serialised")
	}
}

func TestListSessionsQuery(t *testing.T) {
	env := setupRouter(t, Options{})
	task := env.seedTask(t, rate(120))

	for i := 0; i < 3; i++ {
		started := decodeBody[models.Session](t, env.do(t, http.MethodPost, "/api/sessions", testOwner, StartRequest{TaskID: task.ID}))
		env.now = env.now.Add(30 * time.Minute)
		env.do(t, http.MethodPatch, "/api/sessions/"+started.ID, testOwner, PatchRequest{Action: ActionEnd})
		env.now = env.now.Add(24 * time.Hour)
	}

	resp := env.do(t, http.MethodGet, "/api/sessions?limit=2&taskId="+task.ID, testOwner, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	result := decodeBody[sessions.ListResult](t, resp)
	if len(result.Sessions) != 2 || !result.Pagination.HasMore || result.Pagination.Total != 3 {
		t.Fatalf("unexpected page %+v", result.Pagination)
	}
	if result.Summary.TotalEarningsUSD != 180 || result.Summary.AverageSessionSeconds != 1800 {
		t.Fatalf("unexpected summary %+v", result.Summary)
	}

	resp = env.do(t, http.MethodGet, "/api/sessions?startDate=2026-05-05&endDate=2026-05-05", testOwner, nil)
	result = decodeBody[sessions.ListResult](t, resp)
	if result.Summary.TotalSessions != 1 {
		t.Fatalf("expected one session on 2026-05-05, got %d", result.Summary.TotalSessions)
	}

	for _, query := range []string{"limit=abc", "offset=-1", "activeOnly=maybe", "startDate=yesterday", "startDate=2026-05-06&endDate=2026-05-05"} {
		if resp := env.do(t, http.MethodGet, "/api/sessions?"+query, testOwner, nil); resp.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", query, resp.Code)
		}
	}
}

func TestTaskAndCategoryRoutes(t *testing.T) {
	env := setupRouter(t, Options{})

	resp := env.do(t, http.MethodPost, "/api/categories", testOwner, CreateCategoryRequest{Name: "Design", HourlyRateUSD: rate(80)})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	category := decodeBody[models.Category](t, resp)

	resp = env.do(t, http.MethodPost, "/api/categories", testOwner, CreateCategoryRequest{Name: "Design"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate category, got %d", resp.Code)
	}

	resp = env.do(t, http.MethodPost, "/api/tasks", testOwner, CreateTaskRequest{Title: "Mockups", CategoryID: &category.ID, Priority: "high"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	task := decodeBody[models.Task](t, resp)
	if task.Priority != 3 || task.Status != models.StatusTodo {
		t.Fatalf("unexpected task %+v", task)
	}

	decodeBody[models.Session](t, env.do(t, http.MethodPost, "/api/sessions", testOwner, StartRequest{TaskID: task.ID}))
	got := decodeBody[models.Task](t, env.do(t, http.MethodGet, "/api/tasks/"+task.ID, testOwner, nil))
	if got.Status != models.StatusInProgress {
		t.Fatalf("expected in_progress after start, got %s", got.Status)
	}

	resp = env.do(t, http.MethodPatch, "/api/tasks/"+task.ID, testOwner, UpdateTaskRequest{Status: models.StatusDone})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	active := decodeBody[sessions.ListResult](t, env.do(t, http.MethodGet, "/api/sessions?activeOnly=true", testOwner, nil))
	if active.Summary.TotalSessions != 0 {
		t.Fatal("marking the task done should stop its session")
	}

	done := decodeBody[[]models.Task](t, env.do(t, http.MethodGet, "/api/tasks?status=done", testOwner, nil))
	if len(done) != 1 {
		t.Fatalf("expected one done task, got %d", len(done))
	}
	if resp := env.do(t, http.MethodGet, "/api/tasks?status=archived", testOwner, nil); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", resp.Code)
	}
	if resp := env.do(t, http.MethodGet, "/api/categories/"+category.ID, "intruder", nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign category, got %d", resp.Code)
	}
}

func TestUpstreamErrorIsGeneric(t *testing.T) {
	env := setupRouter(t, Options{})
	if err := env.store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	resp := env.do(t, http.MethodGet, "/api/sessions/0b7b2f7e-9d1a-4c55-8a31-2f4f5c8d9e10", testOwner, nil)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	body := decodeBody[errorBody](t, resp)
	if body.Error != "Failed to fetch session" || body.Details != "" {
		t.Fatalf("expected generic message without details, got %+v", body)
	}
}

func TestUpstreamDetailsAreRedacted(t *testing.T) {
	const sessionID = "0b7b2f7e-9d1a-4c55-8a31-2f4f5c8d9e10"

	for _, development := range []bool{false, true} {
		t.Run(fmt.Sprintf("development=%v", development), func(t *testing.T) {
			resp := responder{development: development}
			r := chi.NewRouter()
			r.Get("/api/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
				cause := fmt.Errorf("update sessions where id = %s: database is locked", chi.URLParam(r, "id"))
				resp.error(w, r, apperrors.Upstream("end session", cause))
			})

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/"+sessionID, nil))

			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("expected 500, got %d", rec.Code)
			}
			if strings.Contains(rec.Body.String(), sessionID) {
				t.Fatalf("response leaked session id: %s", rec.Body.String())
			}
			body := decodeBody[errorBody](t, rec)
			if body.Error != "Failed to end session" {
				t.Fatalf("unexpected message %q", body.Error)
			}
			if development != (body.Details != "") {
				t.Fatalf("details presence %v with development=%v", body.Details, development)
			}
		})
	}
}

func TestUnknownErrorsAreNotLeaked(t *testing.T) {
	resp := responder{development: false}
	rec := httptest.NewRecorder()
	resp.error(rec, httptest.NewRequest(http.MethodGet, "/api/tasks", nil), errors.New("disk quota exceeded at /var/lib/secret"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "secret") {
		t.Fatalf("response leaked cause: %s", rec.Body.String())
	}
}
