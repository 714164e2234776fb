// Package timers runs per-task timers on the client and keeps the backend
// sessions behind them in sync.
package timers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrNoTimer is returned for operations on a task without a timer.
var ErrNoTimer = errors.New("no timer for task")

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("timers closed")

// Backend starts and stops the server-side sessions behind timers.
type Backend interface {
	StartSession(ctx context.Context, taskID string, hourlyRateUSD *float64) (string, error)
	StopSession(ctx context.Context, sessionID string) error
}

// RateResolver looks up a category's default hourly rate.
type RateResolver interface {
	CategoryRate(ctx context.Context, categoryID string) (*float64, error)
}

// Options tunes an Orchestrator.
type Options struct {
	TickInterval time.Duration
	StaleAfter   time.Duration
	Now          func() time.Time
}

// Orchestrator owns every local timer. It is safe for concurrent use; backend
// calls are made without holding the lock.
type Orchestrator struct {
	mu        sync.Mutex
	entries   []*Entry
	backend   Backend
	rates     RateResolver
	storage   Storage
	options   Options
	rateCache map[string]*float64
	changes   chan struct{}
	stopCh    chan struct{}
	loop      sync.WaitGroup
	closed    bool
}

// New creates an Orchestrator. backend and rates may be nil to run offline.
func New(backend Backend, rates RateResolver, storage Storage, options Options) *Orchestrator {
	if options.TickInterval <= 0 {
		options.TickInterval = time.Second
	}
	if options.StaleAfter <= 0 {
		options.StaleAfter = 24 * time.Hour
	}
	if options.Now == nil {
		options.Now = time.Now
	}
	if storage == nil {
		storage = NewMemoryStorage()
	}

	return &Orchestrator{
		backend:   backend,
		rates:     rates,
		storage:   storage,
		options:   options,
		rateCache: make(map[string]*float64),
		changes:   make(chan struct{}, 1),
	}
}

// Changes signals after state changes and ticks. Signals coalesce.
func (o *Orchestrator) Changes() <-chan struct{} {
	return o.changes
}

// Entries returns a copy of every timer, in start order.
func (o *Orchestrator) Entries() []Entry {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]Entry, 0, len(o.entries))
	for _, e := range o.entries {
		out = append(out, e.clone())
	}
	return out
}

// Entry returns a copy of one task's timer.
func (o *Orchestrator) Entry(taskID string) (Entry, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if e := o.findLocked(taskID); e != nil {
		return e.clone(), true
	}
	return Entry{}, false
}

// Ticking reports whether the tick loop is running.
func (o *Orchestrator) Ticking() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stopCh != nil
}

// Start creates a running timer for the task and opens a backend session for
// it. A task that already has a timer keeps it (a paused one resumes); a
// stopped timer is replaced. A failed backend call leaves the timer running,
// marked unsynced, and is returned alongside the entry.
func (o *Orchestrator) Start(ctx context.Context, ref TaskRef) (Entry, error) {
	ref.ID = strings.TrimSpace(ref.ID)
	if ref.ID == "" {
		return Entry{}, errors.New("task id is required")
	}

	if entry, ok, err := o.existing(ref.ID); ok || err != nil {
		return entry, err
	}

	rate := o.resolveRate(ctx, ref)

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return Entry{}, ErrClosed
	}
	if e := o.findLocked(ref.ID); e != nil && !e.IsStopped {
		o.resumeLocked(e)
		snapshot := e.clone()
		o.mu.Unlock()
		return snapshot, nil
	}

	now := o.options.Now()
	entry := &Entry{
		TaskID:        ref.ID,
		TaskTitle:     ref.Title,
		CategoryID:    ref.CategoryID,
		HourlyRateUSD: rate,
		IsRunning:     true,
		StartTime:     now.UTC(),
	}
	entry.thaw(now)
	entry.recompute()
	o.putLocked(entry)
	o.changedLocked()
	snapshot := entry.clone()
	o.mu.Unlock()

	if o.backend == nil {
		return snapshot, nil
	}

	sessionID, err := o.backend.StartSession(ctx, ref.ID, ref.HourlyRateUSD)
	if err != nil {
		if id := conflictSessionID(err); id != "" {
			log.Printf("[timers] task %s already has session %s, adopting it", ref.ID, id)
			sessionID, err = id, nil
		}
	}
	return o.attachSession(ctx, entry, sessionID, err)
}

func (o *Orchestrator) existing(taskID string) (Entry, bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return Entry{}, false, ErrClosed
	}
	e := o.findLocked(taskID)
	if e == nil || e.IsStopped {
		return Entry{}, false, nil
	}
	o.resumeLocked(e)
	return e.clone(), true, nil
}

// attachSession records the result of a backend start. A timer stopped or
// deleted while the call was in flight gets its new session stopped.
func (o *Orchestrator) attachSession(ctx context.Context, entry *Entry, sessionID string, startErr error) (Entry, error) {
	o.mu.Lock()
	current := o.findLocked(entry.TaskID) == entry
	if startErr != nil {
		log.Printf("[timers] failed to start session for task %s: %v", entry.TaskID, startErr)
		if current {
			entry.Unsynced = true
			o.changedLocked()
		}
		snapshot := entry.clone()
		o.mu.Unlock()
		return snapshot, fmt.Errorf("start session: %w", startErr)
	}

	orphaned := !current || entry.IsStopped
	if current {
		entry.SessionID = sessionID
		entry.Unsynced = false
		o.changedLocked()
	}
	snapshot := entry.clone()
	o.mu.Unlock()

	if orphaned {
		if err := o.syncStop(ctx, entry, sessionID); err != nil {
			snapshot.Unsynced = true
			return snapshot, err
		}
	}
	return snapshot, nil
}

// Pause freezes a running timer. Pausing a paused or stopped timer does nothing.
func (o *Orchestrator) Pause(taskID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	e := o.findLocked(taskID)
	if e == nil {
		return ErrNoTimer
	}
	if !e.Ticking() {
		return nil
	}
	o.pauseLocked(e)
	o.changedLocked()
	return nil
}

// Resume continues a paused timer.
func (o *Orchestrator) Resume(taskID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	e := o.findLocked(taskID)
	if e == nil {
		return ErrNoTimer
	}
	o.resumeLocked(e)
	return nil
}

// Stop ends a timer, keeping it in the list, and stops its backend session.
func (o *Orchestrator) Stop(ctx context.Context, taskID string) error {
	o.mu.Lock()
	e := o.findLocked(taskID)
	if e == nil {
		o.mu.Unlock()
		return ErrNoTimer
	}
	if e.IsStopped {
		o.mu.Unlock()
		return nil
	}
	o.stopLocked(e)
	sessionID := e.SessionID
	o.changedLocked()
	o.mu.Unlock()

	return o.syncStop(ctx, e, sessionID)
}

// Reset zeroes a timer's elapsed time and earnings.
func (o *Orchestrator) Reset(taskID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	e := o.findLocked(taskID)
	if e == nil {
		return ErrNoTimer
	}
	o.resetLocked(e)
	o.changedLocked()
	return nil
}

// Delete removes a timer, stopping its backend session if it was still open.
func (o *Orchestrator) Delete(ctx context.Context, taskID string) error {
	o.mu.Lock()
	e := o.findLocked(taskID)
	if e == nil {
		o.mu.Unlock()
		return ErrNoTimer
	}
	o.removeLocked(e)
	open := !e.IsStopped
	sessionID := e.SessionID
	o.changedLocked()
	o.mu.Unlock()

	if !open {
		return nil
	}
	return o.syncStop(ctx, e, sessionID)
}

// PauseAll pauses every running timer.
func (o *Orchestrator) PauseAll() {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, e := range o.entries {
		if e.Ticking() {
			o.pauseLocked(e)
		}
	}
	o.changedLocked()
}

// ResetAll resets every timer.
func (o *Orchestrator) ResetAll() {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, e := range o.entries {
		o.resetLocked(e)
	}
	o.changedLocked()
}

type pendingStop struct {
	entry     *Entry
	sessionID string
}

// StopAll stops every timer, then stops their backend sessions concurrently.
// Every session is attempted; the first failure is returned.
func (o *Orchestrator) StopAll(ctx context.Context) error {
	o.mu.Lock()
	var pending []pendingStop
	for _, e := range o.entries {
		if e.IsStopped {
			continue
		}
		o.stopLocked(e)
		pending = append(pending, pendingStop{entry: e, sessionID: e.SessionID})
	}
	o.changedLocked()
	o.mu.Unlock()

	return o.syncStops(ctx, pending)
}

// DeleteAll removes every timer and stops the backend sessions still open.
func (o *Orchestrator) DeleteAll(ctx context.Context) error {
	o.mu.Lock()
	var pending []pendingStop
	for _, e := range o.entries {
		if !e.IsStopped {
			pending = append(pending, pendingStop{entry: e, sessionID: e.SessionID})
		}
	}
	o.entries = nil
	o.changedLocked()
	o.mu.Unlock()

	return o.syncStops(ctx, pending)
}

func (o *Orchestrator) syncStops(ctx context.Context, pending []pendingStop) error {
	var g errgroup.Group
	for _, p := range pending {
		p := p
		g.Go(func() error {
			return o.syncStop(ctx, p.entry, p.sessionID)
		})
	}
	return g.Wait()
}

// syncStop stops a backend session and records the outcome on the entry.
func (o *Orchestrator) syncStop(ctx context.Context, entry *Entry, sessionID string) error {
	if o.backend == nil || sessionID == "" {
		return nil
	}

	err := o.backend.StopSession(ctx, sessionID)
	if err != nil {
		log.Printf("[timers] failed to stop session for task %s: %v", entry.TaskID, err)
	}

	o.mu.Lock()
	if o.findLocked(entry.TaskID) == entry {
		entry.Unsynced = err != nil
		o.changedLocked()
	}
	o.mu.Unlock()

	if err != nil {
		return fmt.Errorf("stop session for task %s: %w", entry.TaskID, err)
	}
	return nil
}

// Tick advances every running timer by one second.
func (o *Orchestrator) Tick() {
	o.mu.Lock()
	defer o.mu.Unlock()

	ticked := false
	for _, e := range o.entries {
		if e.Ticking() {
			e.CurrentTime++
			e.recompute()
			ticked = true
		}
	}
	if ticked {
		o.notifyLocked()
	}
}

// Restore replaces the timers with the persisted list. Stale and malformed
// entries are dropped; running timers catch up on the time spent closed.
func (o *Orchestrator) Restore() error {
	data, err := o.storage.Load(StorageKey)
	if err != nil {
		return fmt.Errorf("load timers: %w", err)
	}
	restored := decodeEntries(data, o.options.Now(), o.options.StaleAfter)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = restored
	o.changedLocked()
	return nil
}

// Close stops the tick loop. Timers keep their persisted state.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.syncLoopLocked()
	close(o.changes)
	o.mu.Unlock()

	o.loop.Wait()
}

func (o *Orchestrator) run(stop <-chan struct{}) {
	defer o.loop.Done()

	ticker := time.NewTicker(o.options.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			o.Tick()
		}
	}
}

// syncLoopLocked starts the tick loop when a timer is running and stops it
// when none is.
func (o *Orchestrator) syncLoopLocked() {
	want := !o.closed && o.anyTickingLocked()
	switch {
	case want && o.stopCh == nil:
		o.stopCh = make(chan struct{})
		o.loop.Add(1)
		go o.run(o.stopCh)
	case !want && o.stopCh != nil:
		close(o.stopCh)
		o.stopCh = nil
	}
}

func (o *Orchestrator) anyTickingLocked() bool {
	for _, e := range o.entries {
		if e.Ticking() {
			return true
		}
	}
	return false
}

// changedLocked persists the timers, gates the tick loop and notifies observers.
func (o *Orchestrator) changedLocked() {
	o.persistLocked()
	o.syncLoopLocked()
	o.notifyLocked()
}

func (o *Orchestrator) notifyLocked() {
	if o.closed {
		return
	}
	select {
	case o.changes <- struct{}{}:
	default:
	}
}

func (o *Orchestrator) persistLocked() {
	list := make([]Entry, 0, len(o.entries))
	for _, e := range o.entries {
		list = append(list, *e)
	}
	data, err := json.Marshal(list)
	if err != nil {
		log.Printf("[timers] failed to encode timers: %v", err)
		return
	}
	if err := o.storage.Save(StorageKey, data); err != nil {
		log.Printf("[timers] failed to save timers: %v", err)
	}
}

func (o *Orchestrator) findLocked(taskID string) *Entry {
	for _, e := range o.entries {
		if e.TaskID == taskID {
			return e
		}
	}
	return nil
}

func (o *Orchestrator) putLocked(entry *Entry) {
	for i, e := range o.entries {
		if e.TaskID == entry.TaskID {
			o.entries[i] = entry
			return
		}
	}
	o.entries = append(o.entries, entry)
}

func (o *Orchestrator) removeLocked(entry *Entry) {
	for i, e := range o.entries {
		if e == entry {
			o.entries = append(o.entries[:i], o.entries[i+1:]...)
			return
		}
	}
}

func (o *Orchestrator) pauseLocked(e *Entry) {
	e.IsPaused = true
	e.freeze()
}

func (o *Orchestrator) resumeLocked(e *Entry) {
	if !e.IsPaused || e.IsStopped {
		return
	}
	e.IsPaused = false
	e.thaw(o.options.Now())
	o.changedLocked()
}

func (o *Orchestrator) stopLocked(e *Entry) {
	e.IsRunning = false
	e.IsPaused = false
	e.IsStopped = true
	e.freeze()
	e.recompute()
}

func (o *Orchestrator) resetLocked(e *Entry) {
	e.CurrentTime = 0
	if e.Ticking() {
		e.thaw(o.options.Now())
	} else {
		e.AccruedSeconds = 0
	}
	e.recompute()
}

func (o *Orchestrator) resolveRate(ctx context.Context, ref TaskRef) *float64 {
	if ref.HourlyRateUSD != nil {
		rate := *ref.HourlyRateUSD
		return &rate
	}
	if ref.CategoryID == nil || *ref.CategoryID == "" || o.rates == nil {
		return nil
	}
	categoryID := *ref.CategoryID

	o.mu.Lock()
	rate, ok := o.rateCache[categoryID]
	o.mu.Unlock()
	if ok {
		return rate
	}

	rate, err := o.rates.CategoryRate(ctx, categoryID)
	if err != nil {
		log.Printf("[timers] failed to resolve rate for category %s: %v", categoryID, err)
		return nil
	}

	o.mu.Lock()
	o.rateCache[categoryID] = rate
	o.mu.Unlock()
	return rate
}

// conflictSessionID extracts the blocking session id from a start conflict.
func conflictSessionID(err error) string {
	var conflict interface{ ConflictSessionID() string }
	if errors.As(err, &conflict) {
		return conflict.ConflictSessionID()
	}
	return ""
}
