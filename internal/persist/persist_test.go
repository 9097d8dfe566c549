package persist

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"maps"
	"sync"
	"testing"
	"time"

	"github.com/HendryAvila/Receptionist/internal/apperr"
)

// --- fakes ---

type fakeTimer struct {
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

// fakeClock hands out fakeTimers and lets the test fire the live one.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(_ time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) armed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

// fire runs the newest unstopped timer and reports whether there was one.
func (c *fakeClock) fire() bool {
	c.mu.Lock()
	var live *fakeTimer
	for i := len(c.timers) - 1; i >= 0; i-- {
		if !c.timers[i].stopped {
			live = c.timers[i]
			break
		}
	}
	if live != nil {
		live.stopped = true
	}
	c.mu.Unlock()
	if live == nil {
		return false
	}
	live.fn()
	return true
}

type fakeStore struct {
	mu     sync.Mutex
	doc    map[string]any
	writes []map[string]any
	fail   error
	block  chan struct{} // when non-nil, MergeWrite waits on it
}

func newFakeStore() *fakeStore { return &fakeStore{doc: map[string]any{}} }

func (f *fakeStore) LoadDraft(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (f *fakeStore) MergeWrite(ctx context.Context, _ string, fields map[string]any) error {
	f.mu.Lock()
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	cp := make(map[string]any, len(fields))
	for k, v := range fields {
		cp[k] = v
		f.doc[k] = v
	}
	f.writes = append(f.writes, cp)
	return nil
}

func (f *fakeStore) setFail(err error) {
	f.mu.Lock()
	f.fail = err
	f.mu.Unlock()
}

func (f *fakeStore) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func newTestScheduler(t *testing.T, store DocumentStore) (*Scheduler, *fakeClock) {
	t.Helper()
	clock := &fakeClock{}
	s := New(store, "user-1", Config{
		Window:       time.Second,
		WriteTimeout: time.Second,
		FinalTimeout: 200 * time.Millisecond,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	s.afterFunc = clock.AfterFunc
	return s, clock
}

// --- debounce ---

func TestSchedule_CoalescesIntoOneWrite(t *testing.T) {
	store := newFakeStore()
	s, clock := newTestScheduler(t, store)

	s.Schedule("businessName", "A")
	s.Schedule("businessName", "Ac")
	s.Schedule("industry", "Dental")
	s.Schedule("businessName", "Acme")

	if clock.armed() != 1 {
		t.Fatalf("armed timers = %d, want 1", clock.armed())
	}
	if store.writeCount() != 0 {
		t.Fatal("nothing should be written before the quiet period")
	}

	clock.fire()

	if store.writeCount() != 1 {
		t.Fatalf("writes = %d, want 1", store.writeCount())
	}
	w := store.writes[0]
	if w["businessName"] != "Acme" || w["industry"] != "Dental" || len(w) != 2 {
		t.Errorf("payload = %v", w)
	}
	if st := s.Status(); len(st.Pending) != 0 || st.Err != nil || st.LastWrite.IsZero() {
		t.Errorf("status after write = %+v", st)
	}
}

func TestSchedule_FailureIsTransientAndRetried(t *testing.T) {
	store := newFakeStore()
	store.setFail(errors.New("disk full"))
	s, clock := newTestScheduler(t, store)

	s.Schedule("businessName", "Acme")
	clock.fire()

	st := s.Status()
	if !errors.Is(st.Err, apperr.ErrTransient) || !IsTransient(st.Err) {
		t.Fatalf("Err = %v, want ErrTransient", st.Err)
	}
	if len(st.Pending) != 1 || st.Pending[0] != "businessName" {
		t.Fatalf("failed payload should stay pending, got %v", st.Pending)
	}
	if clock.armed() != 0 {
		t.Error("a failure must not re-arm by itself")
	}

	// The next mutation's cycle carries the retry.
	store.setFail(nil)
	s.Schedule("industry", "Dental")
	clock.fire()

	if store.writeCount() != 1 {
		t.Fatalf("writes = %d, want 1", store.writeCount())
	}
	w := store.writes[0]
	if w["businessName"] != "Acme" || w["industry"] != "Dental" {
		t.Errorf("retry payload = %v", w)
	}
	if s.Status().Err != nil {
		t.Error("success should clear the transient error")
	}
}

func TestSchedule_FailureKeepsNewerValue(t *testing.T) {
	store := newFakeStore()
	store.block = make(chan struct{})
	store.fail = errors.New("offline")
	s, clock := newTestScheduler(t, store)

	s.Schedule("businessName", "Old")
	done := make(chan struct{})
	go func() {
		clock.fire()
		close(done)
	}()
	waitWriting(t, s)

	s.Schedule("businessName", "New")
	close(store.block)
	<-done

	store.setFail(nil)
	store.mu.Lock()
	store.block = nil
	store.mu.Unlock()

	if !clock.fire() {
		t.Fatal("mutation during the write should re-arm after it settles")
	}
	if got := store.doc["businessName"]; got != "New" {
		t.Errorf("businessName = %v, want New", got)
	}
}

func TestSchedule_SingleWriteInFlight(t *testing.T) {
	store := newFakeStore()
	store.block = make(chan struct{})
	s, clock := newTestScheduler(t, store)

	s.Schedule("businessName", "Acme")
	done := make(chan struct{})
	go func() {
		clock.fire()
		close(done)
	}()
	waitWriting(t, s)

	s.Schedule("industry", "Dental")
	if clock.armed() != 0 {
		t.Fatal("no timer may be armed while a write is in flight")
	}

	close(store.block)
	<-done

	if clock.armed() != 1 {
		t.Fatalf("armed = %d after settle, want 1", clock.armed())
	}
	clock.fire()
	if store.writeCount() != 2 {
		t.Fatalf("writes = %d, want 2", store.writeCount())
	}
	if store.writes[1]["industry"] != "Dental" || len(store.writes[1]) != 1 {
		t.Errorf("second payload = %v", store.writes[1])
	}
}

// stuckStore ignores ctx: every MergeWrite waits until release is closed.
// It records how many calls overlapped.
type stuckStore struct {
	mu        sync.Mutex
	doc       map[string]any
	active    int
	maxActive int
	release   chan struct{}
}

func (f *stuckStore) LoadDraft(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (f *stuckStore) MergeWrite(_ context.Context, _ string, fields map[string]any) error {
	f.mu.Lock()
	f.active++
	f.maxActive = max(f.maxActive, f.active)
	f.mu.Unlock()

	<-f.release

	f.mu.Lock()
	defer f.mu.Unlock()
	maps.Copy(f.doc, fields)
	f.active--
	return nil
}

func (f *stuckStore) snapshot() (doc map[string]any, maxActive int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return maps.Clone(f.doc), f.maxActive
}

func TestSchedule_TimedOutWriteStaysInFlight(t *testing.T) {
	store := &stuckStore{doc: map[string]any{}, release: make(chan struct{})}
	s, clock := newTestScheduler(t, store)
	s.cfg.WriteTimeout = 20 * time.Millisecond

	s.Schedule("businessName", "old")
	clock.fire() // returns after the timeout; the store call keeps running

	st := s.Status()
	if !IsTransient(st.Err) || !errors.Is(st.Err, context.DeadlineExceeded) {
		t.Fatalf("Err = %v, want a transient timeout", st.Err)
	}
	if !st.Writing {
		t.Fatal("a store call that has not returned is still in flight")
	}

	s.Schedule("businessName", "new")
	if clock.armed() != 0 {
		t.Fatal("no timer may be armed while the timed-out call is running")
	}
	if clock.fire() {
		t.Fatal("nothing should be able to start a second write")
	}

	close(store.release)
	deadline := time.Now().Add(2 * time.Second)
	for clock.armed() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("timer not re-armed after the stuck call returned")
		}
		time.Sleep(time.Millisecond)
	}
	clock.fire()

	doc, maxActive := store.snapshot()
	if maxActive != 1 {
		t.Errorf("overlapping store calls = %d, want 1", maxActive)
	}
	if doc["businessName"] != "new" {
		t.Errorf("businessName = %v, want new", doc["businessName"])
	}
	if st := s.Status(); st.Err != nil || st.Writing || len(st.Pending) != 0 {
		t.Errorf("status after recovery = %+v", st)
	}
}

func TestFlush_WaitsForTimedOutWrite(t *testing.T) {
	store := &stuckStore{doc: map[string]any{}, release: make(chan struct{})}
	s, clock := newTestScheduler(t, store)
	s.cfg.WriteTimeout = 20 * time.Millisecond

	s.Schedule("agentName", "Ava")
	clock.fire()
	s.Schedule("agentName", "Bo")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := s.Flush(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Flush = %v, want it to wait and give up", err)
	}

	close(store.release)
	if err := s.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	doc, maxActive := store.snapshot()
	if maxActive != 1 || doc["agentName"] != "Bo" {
		t.Errorf("doc = %v, overlapping = %d", doc, maxActive)
	}
}

func TestFinal_WaitsForInFlightWrite(t *testing.T) {
	store := &stuckStore{doc: map[string]any{}, release: make(chan struct{})}
	s, clock := newTestScheduler(t, store)
	s.cfg.WriteTimeout = 20 * time.Millisecond

	s.Schedule("businessName", "old")
	clock.fire()

	finalErr := make(chan error, 1)
	go func() {
		finalErr <- s.Final(context.Background(), map[string]any{"businessName": "final"})
	}()
	time.Sleep(20 * time.Millisecond)
	close(store.release)

	if err := <-finalErr; err != nil {
		t.Fatal(err)
	}
	doc, maxActive := store.snapshot()
	if maxActive != 1 {
		t.Errorf("overlapping store calls = %d, want 1", maxActive)
	}
	if doc["businessName"] != "final" || doc[CompletedKey] != true {
		t.Errorf("doc = %v", doc)
	}
}

func waitWriting(t *testing.T, s *Scheduler) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !s.Status().Writing {
		if time.Now().After(deadline) {
			t.Fatal("write never started")
		}
		time.Sleep(time.Millisecond)
	}
}

// --- Final ---

func TestFinal_AddsCompletionMarkers(t *testing.T) {
	frozen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	old := timeNow
	timeNow = func() time.Time { return frozen }
	t.Cleanup(func() { timeNow = old })

	store := newFakeStore()
	s, clock := newTestScheduler(t, store)
	s.Schedule("businessName", "Acme")

	if err := s.Final(context.Background(), map[string]any{"businessName": "Acme", "termsAccepted": true}); err != nil {
		t.Fatal(err)
	}
	if store.doc[CompletedKey] != true {
		t.Error("completed marker missing")
	}
	if store.doc[CompletedAtKey] != "2026-03-01T12:00:00Z" {
		t.Errorf("completedAt = %v", store.doc[CompletedAtKey])
	}
	if clock.armed() != 1 {
		t.Error("final write must not cancel the pending debounced write")
	}
}

func TestFinal_FailureIsFatal(t *testing.T) {
	store := newFakeStore()
	store.setFail(errors.New("permission denied"))
	s, _ := newTestScheduler(t, store)

	err := s.Final(context.Background(), map[string]any{})
	if !errors.Is(err, apperr.ErrFatal) {
		t.Fatalf("err = %v, want ErrFatal", err)
	}
}

func TestFinal_TimesOutInsteadOfHanging(t *testing.T) {
	store := newFakeStore()
	store.block = make(chan struct{})
	defer close(store.block)
	s, _ := newTestScheduler(t, store)

	start := time.Now()
	err := s.Final(context.Background(), map[string]any{"a": 1})
	if !errors.Is(err, apperr.ErrFatal) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want ErrFatal wrapping DeadlineExceeded", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("Final did not respect its timeout")
	}
}

// --- Flush / Close ---

func TestFlush_WritesPendingNow(t *testing.T) {
	store := newFakeStore()
	s, clock := newTestScheduler(t, store)
	s.Schedule("agentName", "Ava")

	if err := s.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	if store.doc["agentName"] != "Ava" {
		t.Error("flush did not write")
	}
	if clock.armed() != 0 {
		t.Error("flush should cancel the timer")
	}
	if err := s.Flush(context.Background()); err != nil {
		t.Errorf("empty flush: %v", err)
	}
	if store.writeCount() != 1 {
		t.Errorf("writes = %d, want 1", store.writeCount())
	}
}

func TestFlush_ReportsTransientFailure(t *testing.T) {
	store := newFakeStore()
	store.setFail(errors.New("boom"))
	s, _ := newTestScheduler(t, store)
	s.Schedule("agentName", "Ava")

	if err := s.Flush(context.Background()); !errors.Is(err, apperr.ErrTransient) {
		t.Fatalf("err = %v, want ErrTransient", err)
	}
}

func TestClose_StopsTimer(t *testing.T) {
	store := newFakeStore()
	s, clock := newTestScheduler(t, store)
	s.Schedule("agentName", "Ava")
	s.Close()

	if clock.armed() != 0 {
		t.Error("close should stop the timer")
	}
	s.Schedule("agentName", "Bo")
	if clock.armed() != 0 {
		t.Error("closed scheduler must not arm")
	}
	if st := s.Status(); len(st.Pending) != 1 {
		t.Errorf("pending = %v, want agentName kept for Flush", st.Pending)
	}
}

func TestFire_StaleTimerIgnored(t *testing.T) {
	store := newFakeStore()
	s, clock := newTestScheduler(t, store)
	s.Schedule("a", 1)
	stale := clock.timers[0].fn
	s.Schedule("a", 2)

	stale()
	if store.writeCount() != 0 {
		t.Fatal("a superseded timer must not write")
	}
	clock.fire()
	if store.writeCount() != 1 || store.doc["a"] != 2 {
		t.Errorf("doc = %v", store.doc)
	}
}
