// Package persist schedules merge-writes of a wizard draft to the document
// store.
//
// Edits are coalesced: every mutation restarts a quiet-period timer and
// only the latest value of each field is kept. When the timer fires the
// pending fields are written in one merge call. A session never has more
// than one write in flight, even after a timeout: the next write waits
// until the store call has returned. Mutations that arrive during a write
// are held and the timer is re-armed once the write settles.
package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/HendryAvila/Receptionist/internal/apperr"
)

// Document markers written by Final.
const (
	CompletedKey   = "completed"
	CompletedAtKey = "completedAt"
)

// DocumentStore is the identity-scoped draft store.
type DocumentStore interface {
	// LoadDraft returns the stored draft document as a JSON object, or
	// found=false when the identity has none.
	LoadDraft(ctx context.Context, identity string) (doc []byte, found bool, err error)
	// MergeWrite writes the given top-level fields, preserving every
	// other field already stored for the identity.
	MergeWrite(ctx context.Context, identity string, fields map[string]any) error
}

// Timer is the handle returned by an AfterFunc.
type Timer interface {
	Stop() bool
}

// AfterFunc arms a one-shot timer.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Defaults used when Config leaves a duration at zero.
const (
	DefaultWindow       = 1500 * time.Millisecond
	DefaultWriteTimeout = 10 * time.Second
	DefaultFinalTimeout = 15 * time.Second
)

// Config tunes a Scheduler.
type Config struct {
	Window       time.Duration
	WriteTimeout time.Duration
	FinalTimeout time.Duration
	Logger       *slog.Logger
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	Pending   []string  // fields waiting to be written
	Writing   bool      // a debounced write is in flight
	LastWrite time.Time // zero until the first successful write
	// Err is set after a failed debounced write and cleared by the next
	// successful one. It always wraps apperr.ErrTransient.
	Err error
}

// Scheduler debounces merge-writes for one identity.
type Scheduler struct {
	store    DocumentStore
	identity string
	cfg      Config
	log      *slog.Logger

	afterFunc AfterFunc

	mu        sync.Mutex
	pending   map[string]any
	timer     Timer
	gen       uint64
	inFlight  bool
	rearm     bool
	settled   chan struct{}
	closed    bool
	lastErr   error
	lastWrite time.Time
}

// New creates a scheduler writing to store under identity.
func New(store DocumentStore, identity string, cfg Config) *Scheduler {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.FinalTimeout <= 0 {
		cfg.FinalTimeout = DefaultFinalTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:     store,
		identity:  identity,
		cfg:       cfg,
		log:       logger.With("component", "persist", "identity", identity),
		afterFunc: realAfterFunc,
		pending:   make(map[string]any),
	}
}

// Schedule records the latest value of field and restarts the quiet
// period. The value must not be mutated by the caller afterwards.
func (s *Scheduler) Schedule(field string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending[field] = value
	if s.closed {
		return
	}
	if s.inFlight {
		s.rearm = true
		return
	}
	s.armLocked()
}

func (s *Scheduler) armLocked() {
	s.stopLocked()
	gen := s.gen
	s.timer = s.afterFunc(s.cfg.Window, func() { s.fire(gen) })
}

// stopLocked cancels the armed timer. Bumping gen also retires a callback
// that already started but has not yet taken the lock.
func (s *Scheduler) stopLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// fire runs when the quiet period of timer generation gen elapses.
func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	if s.closed || s.inFlight || len(s.pending) == 0 {
		if s.inFlight {
			s.rearm = true
		}
		s.mu.Unlock()
		return
	}
	payload := s.takeLocked()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
	done, err := s.write(ctx, payload)
	cancel()

	s.settle(payload, err, done)
}

// takeLocked moves the pending payload into flight.
func (s *Scheduler) takeLocked() map[string]any {
	payload := s.pending
	s.pending = make(map[string]any)
	s.beginLocked()
	return payload
}

func (s *Scheduler) beginLocked() {
	s.inFlight = true
	s.settled = make(chan struct{})
}

// settle records the outcome of a debounced write. On failure the payload
// goes back to pending unless a newer value arrived meanwhile; it is
// retried by the next mutation's cycle. The write stays in flight until
// the store call has returned, even when err is a timeout.
func (s *Scheduler) settle(payload map[string]any, err error, done <-chan struct{}) {
	s.mu.Lock()
	if err != nil {
		for k, v := range payload {
			if _, newer := s.pending[k]; !newer {
				s.pending[k] = v
			}
		}
		s.lastErr = fmt.Errorf("persist: save draft: %w: %w", apperr.ErrTransient, err)
		s.log.Warn("debounced write failed", "fields", len(payload), "err", err)
	} else {
		s.lastErr = nil
		s.lastWrite = timeNow()
		s.log.Debug("draft saved", "fields", len(payload))
	}
	s.mu.Unlock()

	s.releaseAfter(done)
}

// releaseAfter ends the in-flight write once done is closed.
func (s *Scheduler) releaseAfter(done <-chan struct{}) {
	select {
	case <-done:
		s.release()
	default:
		s.log.Warn("store call still running after timeout; holding later writes")
		go func() {
			<-done
			s.release()
		}()
	}
}

func (s *Scheduler) release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inFlight = false
	close(s.settled)
	if s.rearm && !s.closed {
		s.rearm = false
		s.armLocked()
	}
}

// write runs one merge call and waits for it or for ctx, whichever comes
// first. The returned channel is closed when the store call itself
// returns, which is later than write when the store ignores ctx.
func (s *Scheduler) write(ctx context.Context, payload map[string]any) (<-chan struct{}, error) {
	result := make(chan error, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		result <- s.store.MergeWrite(ctx, s.identity, payload)
	}()
	select {
	case err := <-result:
		<-done
		return done, err
	case <-ctx.Done():
		return done, ctx.Err()
	}
}

// awaitLocked waits until no write is in flight. The lock is dropped while
// waiting and held again on return.
func (s *Scheduler) awaitLocked(ctx context.Context) error {
	for s.inFlight {
		ch := s.settled
		s.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			s.mu.Lock()
			return ctx.Err()
		}
		s.mu.Lock()
	}
	return nil
}

// Flush writes any pending fields now, waiting first for an in-flight
// write to finish. It is used on shutdown and before reading the draft
// back.
func (s *Scheduler) Flush(ctx context.Context) error {
	s.mu.Lock()
	s.stopLocked()
	if err := s.awaitLocked(ctx); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("persist: flush: %w", err)
	}
	// A settling write may have re-armed the timer.
	s.stopLocked()
	s.rearm = false
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return nil
	}
	payload := s.takeLocked()
	s.mu.Unlock()

	wctx, cancel := context.WithTimeout(ctx, s.cfg.WriteTimeout)
	done, err := s.write(wctx, payload)
	cancel()
	s.settle(payload, err, done)

	if err != nil {
		return fmt.Errorf("persist: flush: %w: %w", apperr.ErrTransient, err)
	}
	return nil
}

// Final writes the full snapshot together with the completion markers.
// It waits for an in-flight debounced write and does not touch the
// debounce timer. It is bounded by the final timeout and any failure
// wraps apperr.ErrFatal.
func (s *Scheduler) Final(ctx context.Context, snapshot map[string]any) error {
	doc := make(map[string]any, len(snapshot)+2)
	maps.Copy(doc, snapshot)
	doc[CompletedKey] = true
	doc[CompletedAtKey] = timeNow().UTC().Format(time.RFC3339)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.FinalTimeout)
	defer cancel()

	s.mu.Lock()
	if err := s.awaitLocked(ctx); err != nil {
		s.mu.Unlock()
		s.log.Error("final write failed", "err", err)
		return fmt.Errorf("persist: final write: %w: %w", apperr.ErrFatal, err)
	}
	s.beginLocked()
	s.mu.Unlock()

	done, err := s.write(ctx, doc)
	s.releaseAfter(done)
	if err != nil {
		s.log.Error("final write failed", "err", err)
		return fmt.Errorf("persist: final write: %w: %w", apperr.ErrFatal, err)
	}
	s.log.Info("draft completed", "fields", len(snapshot))
	return nil
}

// Status reports the scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Writing:   s.inFlight,
		LastWrite: s.lastWrite,
		Err:       s.lastErr,
	}
	for k := range s.pending {
		st.Pending = append(st.Pending, k)
	}
	slices.Sort(st.Pending)
	return st
}

// Close stops the timer. Pending fields are kept but no longer written
// automatically; call Flush first to save them.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.rearm = false
	s.stopLocked()
}

// IsTransient reports whether err is a recoverable save failure.
func IsTransient(err error) bool { return errors.Is(err, apperr.ErrTransient) }
