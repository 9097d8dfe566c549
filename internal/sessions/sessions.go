// Package sessions keeps one wizard session and its save scheduler per
// identity, opened lazily on first use.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/HendryAvila/Receptionist/internal/apperr"
	"github.com/HendryAvila/Receptionist/internal/identity"
	"github.com/HendryAvila/Receptionist/internal/persist"
	"github.com/HendryAvila/Receptionist/internal/wizard"
)

// Store is the draft store sessions load from and save to.
type Store interface {
	wizard.Loader
	persist.DocumentStore
}

// Entry pairs a session with the scheduler saving it.
type Entry struct {
	Session *wizard.Session
	Saver   *persist.Scheduler
}

// Manager hands out the current identity's session.
type Manager struct {
	store Store
	ids   identity.Provider
	cfg   persist.Config
	log   *slog.Logger

	mu   sync.Mutex
	open map[string]*Entry
}

// New creates a Manager. cfg is passed to every scheduler it creates.
func New(store Store, ids identity.Provider, cfg persist.Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
		cfg.Logger = logger
	}
	return &Manager{
		store: store,
		ids:   ids,
		cfg:   cfg,
		log:   logger.With("component", "sessions"),
		open:  make(map[string]*Entry),
	}
}

// Identity resolves the current identity.
func (m *Manager) Identity(ctx context.Context) (string, error) {
	id, ok := m.ids.Current(ctx)
	if !ok {
		return "", apperr.ErrNoIdentity
	}
	return id, nil
}

// Current returns the session of the current identity, loading it from
// the store the first time.
func (m *Manager) Current(ctx context.Context) (*Entry, error) {
	id, err := m.Identity(ctx)
	if err != nil {
		return nil, fmt.Errorf("sessions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.open[id]; ok {
		return e, nil
	}
	return m.loadLocked(ctx, id)
}

// Restart saves and drops the current identity's session, then opens a
// fresh one from the stored draft. A completed session needs this before
// it can be edited again.
func (m *Manager) Restart(ctx context.Context) (*Entry, error) {
	id, err := m.Identity(ctx)
	if err != nil {
		return nil, fmt.Errorf("sessions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.open[id]; ok {
		if err := e.Saver.Flush(ctx); err != nil {
			return nil, fmt.Errorf("sessions: restart: %w", err)
		}
		e.Saver.Close()
		delete(m.open, id)
	}
	return m.loadLocked(ctx, id)
}

func (m *Manager) loadLocked(ctx context.Context, id string) (*Entry, error) {
	saver := persist.New(m.store, id, m.cfg)
	s, err := wizard.Load(ctx, id, m.store,
		wizard.WithPersister(saver),
		wizard.WithLogger(m.cfg.Logger),
	)
	if err != nil {
		saver.Close()
		return nil, fmt.Errorf("sessions: %w", err)
	}
	e := &Entry{Session: s, Saver: saver}
	m.open[id] = e
	m.log.Info("session opened", "identity", id, "step", s.Step())
	return e, nil
}

// Flush writes the current identity's pending edits, if a session is
// open.
func (m *Manager) Flush(ctx context.Context) error {
	id, err := m.Identity(ctx)
	if err != nil {
		return fmt.Errorf("sessions: %w", err)
	}
	m.mu.Lock()
	e, ok := m.open[id]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return e.Saver.Flush(ctx)
}

// Close flushes and stops every open session.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for id, e := range m.open {
		if err := e.Saver.Flush(ctx); err != nil {
			m.log.Warn("unsaved edits on shutdown", "identity", id, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
		}
		e.Saver.Close()
		delete(m.open, id)
	}
	return errors.Join(errs...)
}
