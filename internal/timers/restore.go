package timers

import (
	"bytes"
	"encoding/json"
	"log"
	"strings"
	"time"
)

func decodeEntries(data []byte, now time.Time, staleAfter time.Duration) []*Entry {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Printf("[timers] discarding unreadable timer state: %v", err)
		return nil
	}

	seen := make(map[string]bool, len(raw))
	entries := make([]*Entry, 0, len(raw))
	for i, item := range raw {
		entry, problem := decodeEntry(item)
		if problem != "" {
			log.Printf("[timers] dropping timer %d: %s", i, problem)
			continue
		}
		if now.Sub(entry.StartTime) > staleAfter {
			log.Printf("[timers] dropping stale timer for task %s started %s", entry.TaskID, entry.StartTime.Format(time.RFC3339))
			continue
		}
		if seen[entry.TaskID] {
			continue
		}
		seen[entry.TaskID] = true

		catchUp(entry, now)
		entries = append(entries, entry)
	}
	return entries
}

// decodeEntry validates the shape of one persisted timer before decoding it.
func decodeEntry(item json.RawMessage) (*Entry, string) {
	var shape map[string]json.RawMessage
	if err := json.Unmarshal(item, &shape); err != nil || shape == nil {
		return nil, "not an object"
	}

	var taskID string
	if err := json.Unmarshal(shape["taskId"], &taskID); err != nil || strings.TrimSpace(taskID) == "" {
		return nil, "missing taskId"
	}

	running, ok := shape["isRunning"]
	var isRunning bool
	if !ok || string(bytes.TrimSpace(running)) == "null" || json.Unmarshal(running, &isRunning) != nil {
		return nil, "isRunning is not a boolean"
	}

	var entry Entry
	if err := json.Unmarshal(item, &entry); err != nil {
		return nil, "malformed: " + err.Error()
	}
	if entry.StartTime.IsZero() {
		return nil, "missing startTime"
	}
	return &entry, ""
}

// catchUp recomputes a running timer's elapsed time from when it last started.
func catchUp(e *Entry, now time.Time) {
	if !e.Ticking() {
		e.RunningSince = nil
		e.AccruedSeconds = e.CurrentTime
		e.recompute()
		return
	}

	since := e.StartTime
	accrued := int64(0)
	if e.RunningSince != nil {
		since = *e.RunningSince
		accrued = e.AccruedSeconds
	}

	elapsed := int64(now.Sub(since) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	since = since.UTC()
	e.RunningSince = &since
	e.AccruedSeconds = accrued
	e.CurrentTime = accrued + elapsed
	e.recompute()
}
