package commands

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/mentalbank/internal/api"
	"github.com/balkashynov/mentalbank/internal/client"
	"github.com/balkashynov/mentalbank/internal/db"
	"github.com/balkashynov/mentalbank/internal/models"
	"github.com/balkashynov/mentalbank/internal/sessions"
)

func newTestClient(t *testing.T, cfg sessions.Config) *client.Client {
	t.Helper()
	store, err := db.Open(db.MemoryPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	srv := httptest.NewServer(api.NewRouter(sessions.NewService(store, nil, cfg), store, api.Options{}))
	t.Cleanup(srv.Close)
	return client.New(srv.URL, "owner-1")
}

func i64(v int64) *int64     { return &v }
func f64(v float64) *float64 { return &v }

func at(day, hour int) time.Time {
	return time.Date(2025, 3, day, hour, 0, 0, 0, time.UTC)
}

func TestBuildTimesheet(t *testing.T) {
	design := &models.Task{ID: "t1", Title: "Invoice design"}
	call := &models.Task{ID: "t2", Title: "Client call"}

	rows := []models.Session{
		// Monday and Tuesday on the same task
		{TaskID: "t1", Task: design, StartedAt: at(10, 9), DurationSeconds: i64(7200), EarningsUSD: f64(180)},
		{TaskID: "t1", Task: design, StartedAt: at(11, 14), DurationSeconds: i64(1800), EarningsUSD: f64(45)},
		// Still running on Wednesday
		{TaskID: "t2", Task: call, StartedAt: at(12, 9), IsActive: true, HourlyRateUSD: f64(60)},
	}

	sheet := buildTimesheet(rows, at(12, 10))
	if len(sheet) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(sheet))
	}

	first, second := sheet[0], sheet[1]
	if first.title != "Invoice design" || first.seconds[0] != 7200 || first.seconds[1] != 1800 {
		t.Errorf("unexpected first row: %+v", first)
	}
	if first.earned != 225 {
		t.Errorf("first row earned %.2f, want 225", first.earned)
	}
	if second.seconds[2] != 3600 || second.earned != 60 {
		t.Errorf("active session should count up to now: %+v", second)
	}
}

func TestSessionQueryFromFlags(t *testing.T) {
	now := time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)

	cmd := &cobra.Command{}
	addSessionFilterFlags(cmd)
	for name, value := range map[string]string{
		"task": "t1", "active": "true", "from": "yesterday", "to": "2025-03-12", "limit": "10", "offset": "20",
	} {
		if err := cmd.Flags().Set(name, value); err != nil {
			t.Fatalf("set %s: %v", name, err)
		}
	}

	q, err := sessionQueryFromFlags(cmd, now)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if q.TaskID != "t1" || !q.ActiveOnly || q.Limit != 10 || q.Offset != 20 {
		t.Errorf("unexpected query: %+v", q)
	}
	if want := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC); !q.StartDate.Equal(want) {
		t.Errorf("start = %v, want %v", q.StartDate, want)
	}
	if want := time.Date(2025, 3, 12, 23, 59, 59, 0, time.UTC); !q.EndDate.Equal(want) {
		t.Errorf("end = %v, want %v", q.EndDate, want)
	}

	bad := &cobra.Command{}
	addSessionFilterFlags(bad)
	_ = bad.Flags().Set("from", "someday")
	if _, err := sessionQueryFromFlags(bad, now); err == nil {
		t.Error("expected an error for an unparseable date")
	}
}

func TestFindCategoryIgnoresCase(t *testing.T) {
	c := newTestClient(t, sessions.Config{})
	ctx := context.Background()

	created, err := c.CreateCategory(ctx, api.CreateCategoryRequest{Name: "Design", HourlyRateUSD: f64(90)})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	found, err := findCategory(ctx, c, "design")
	if err != nil || found.ID != created.ID {
		t.Fatalf("expected %s, got %v (%v)", created.ID, found, err)
	}

	if _, err := findCategory(ctx, c, "Research"); err == nil || !strings.Contains(err.Error(), "mbb category add Research") {
		t.Errorf("expected a hint to create the category, got %v", err)
	}
}

func TestFetchAllSessionsPages(t *testing.T) {
	c := newTestClient(t, sessions.Config{MaxListLimit: 2})
	ctx := context.Background()

	task, err := c.CreateTask(ctx, api.CreateTaskRequest{Title: "Write docs"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	for i := 0; i < 5; i++ {
		started, err := c.CreateSession(ctx, api.StartRequest{TaskID: task.ID})
		if err != nil {
			t.Fatalf("start %d: %v", i, err)
		}
		if _, err := c.EndSession(ctx, started.ID, ""); err != nil {
			t.Fatalf("stop %d: %v", i, err)
		}
	}

	all, err := fetchAllSessions(ctx, c, client.SessionQuery{TaskID: task.ID, Limit: 2})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 sessions across pages, got %d", len(all))
	}

	seen := make(map[string]bool)
	for _, s := range all {
		if seen[s.ID] {
			t.Errorf("session %s returned twice", s.ID)
		}
		seen[s.ID] = true
	}
}
