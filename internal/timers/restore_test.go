package timers

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestRestoreDropsStaleAndMalformedEntries(t *testing.T) {
	storage := NewMemoryStorage()
	o, clock := newTestOrchestrator(t, nil, nil, storage)
	now := clock.Now()

	fresh := now.Add(-2 * time.Hour).Format(time.RFC3339)
	stale := now.Add(-25 * time.Hour).Format(time.RFC3339)
	runningSince := now.Add(-90 * time.Second).Format(time.RFC3339)

	doc := `[
		{"taskId":"running","isRunning":true,"isPaused":false,"startTime":"` + fresh + `","runningSince":"` + runningSince + `","accruedSeconds":30,"currentTime":31,"hourlyRateUsd":120},
		{"taskId":"paused","isRunning":true,"isPaused":true,"startTime":"` + fresh + `","accruedSeconds":600,"currentTime":600},
		{"taskId":"stale","isRunning":true,"isPaused":false,"startTime":"` + stale + `"},
		{"isRunning":true,"startTime":"` + fresh + `"},
		{"taskId":"","isRunning":true,"startTime":"` + fresh + `"},
		{"taskId":"bad-flag","isRunning":"yes","startTime":"` + fresh + `"},
		{"taskId":"null-flag","isRunning":null,"startTime":"` + fresh + `"},
		{"taskId":"no-start","isRunning":false},
		"garbage",
		{"taskId":"running","isRunning":false,"startTime":"` + fresh + `"}
	]`
	if err := storage.Save(StorageKey, []byte(doc)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := o.Restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}

	entries := o.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 surviving timers, got %+v", entries)
	}

	running := mustEntry(t, o, "running")
	if running.CurrentTime != 120 {
		t.Fatalf("expected 30s accrued + 90s since resume, got %d", running.CurrentTime)
	}
	if running.SessionEarnings == nil || *running.SessionEarnings != 4.00 {
		t.Fatalf("expected $4.00, got %v", running.SessionEarnings)
	}
	if paused := mustEntry(t, o, "paused"); paused.CurrentTime != 600 || !paused.IsPaused {
		t.Fatalf("expected paused timer untouched, got %+v", paused)
	}
	if !o.Ticking() {
		t.Fatal("expected restored running timer to tick")
	}

	var saved []map[string]interface{}
	data, _ := storage.Load(StorageKey)
	if err := json.Unmarshal(data, &saved); err != nil || len(saved) != 2 {
		t.Fatalf("expected cleaned list persisted, got %s", data)
	}
}

func TestRestoreRunningWithoutRunningSince(t *testing.T) {
	storage := NewMemoryStorage()
	o, clock := newTestOrchestrator(t, nil, nil, storage)
	start := clock.Now().Add(-10 * time.Minute).Format(time.RFC3339)

	storage.Save(StorageKey, []byte(`[{"taskId":"t1","isRunning":true,"startTime":"`+start+`","currentTime":5}]`))
	if err := o.Restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := mustEntry(t, o, "t1").CurrentTime; got != 600 {
		t.Fatalf("expected elapsed from start time, got %d", got)
	}
}

func TestRestoreUnreadableDocument(t *testing.T) {
	storage := NewMemoryStorage()
	o, _ := newTestOrchestrator(t, nil, nil, storage)

	storage.Save(StorageKey, []byte(`{"taskId":"t1"}`))
	if err := o.Restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if len(o.Entries()) != 0 {
		t.Fatal("expected no timers from an unreadable document")
	}
}

func TestStateSurvivesRestart(t *testing.T) {
	storage := NewFileStorage(t.TempDir())
	rate := 60.0

	first, clock := newTestOrchestrator(t, nil, nil, storage)
	ctx := context.Background()
	first.Start(ctx, TaskRef{ID: "t1", Title: "Focus", HourlyRateUSD: &rate})
	first.Start(ctx, TaskRef{ID: "t2", Title: "Email"})
	advance(first, clock, 45)
	first.Pause("t2")
	first.Close()

	clock.Advance(15 * time.Second)
	second := New(nil, nil, storage, Options{TickInterval: time.Hour, Now: clock.Now})
	defer second.Close()
	if err := second.Restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}

	t1 := mustEntry(t, second, "t1")
	if t1.CurrentTime != 60 || t1.TaskTitle != "Focus" || *t1.SessionEarnings != 1.00 {
		t.Fatalf("expected t1 caught up to 60s, got %+v", t1)
	}
	if t2 := mustEntry(t, second, "t2"); t2.CurrentTime != 45 || !t2.IsPaused {
		t.Fatalf("expected t2 paused at 45s, got %+v", t2)
	}
}

func TestFileStorageMissingKey(t *testing.T) {
	storage := NewFileStorage(t.TempDir())
	data, err := storage.Load(StorageKey)
	if err != nil || data != nil {
		t.Fatalf("expected nil data for a missing key, got %q, %v", data, err)
	}
}
