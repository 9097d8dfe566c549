// Package wizard drives the seven-step onboarding flow.
//
// A Session owns one Field Store. Forward moves are gated by the step
// validators; backward moves never are. A successful Submit on the last
// step performs a synchronous final write and moves the session into the
// terminal completed state, after which it rejects every call. Editing
// again needs a fresh session.
package wizard

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/HendryAvila/Receptionist/internal/apperr"
	"github.com/HendryAvila/Receptionist/internal/fields"
	"github.com/HendryAvila/Receptionist/internal/menu"
	"github.com/HendryAvila/Receptionist/internal/steps"
)

// Loader reads the most recent persisted draft for an identity.
type Loader interface {
	LoadDraft(ctx context.Context, identity string) (doc []byte, found bool, err error)
}

// Persister receives every field change and performs the final write.
// *persist.Scheduler implements it.
type Persister interface {
	Schedule(field string, value any)
	Final(ctx context.Context, snapshot map[string]any) error
}

type nopPersister struct{}

func (nopPersister) Schedule(string, any) {}
func (nopPersister) Final(context.Context, map[string]any) error { return nil }

// Option configures a Session.
type Option func(*Session)

// WithPersister routes changes and the final write to p.
func WithPersister(p Persister) Option {
	return func(s *Session) { s.persister = p }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// Session is one run through the wizard.
type Session struct {
	mu sync.Mutex

	identity  string
	store     *fields.Store
	step      int
	completed bool
	errs      steps.Errors

	persister Persister
	log       *slog.Logger
}

// New starts a session at step 1 over d (defaults when nil).
func New(identity string, d *fields.Draft, opts ...Option) *Session {
	s := &Session{
		identity:  identity,
		store:     fields.NewStore(d),
		step:      1,
		errs:      steps.Errors{},
		persister: nopPersister{},
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "wizard", "identity", identity)
	s.store.Observe(func(f fields.Field, v any) {
		s.persister.Schedule(string(f), v)
	})
	return s
}

// Load starts a session from the identity's most recent persisted draft,
// or from defaults when there is none. A draft that was already completed
// still opens a fresh session at step 1.
func Load(ctx context.Context, identity string, loader Loader, opts ...Option) (*Session, error) {
	if strings.TrimSpace(identity) == "" {
		return nil, fmt.Errorf("wizard: load: %w", apperr.ErrNoIdentity)
	}
	doc, found, err := loader.LoadDraft(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("wizard: load draft: %w", err)
	}

	var d *fields.Draft
	if found {
		if d, err = fields.DecodeDraft(doc); err != nil {
			return nil, fmt.Errorf("wizard: %w", err)
		}
	}
	s := New(identity, d, opts...)
	s.log.Debug("session loaded", "persisted", found)
	return s, nil
}

// Identity returns the identity the session belongs to.
func (s *Session) Identity() string { return s.identity }

// Step returns the current step, 1..7.
func (s *Session) Step() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Completed reports whether Submit succeeded.
func (s *Session) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

// Errors returns a copy of the current validation errors.
func (s *Session) Errors() steps.Errors {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.errs)
}

// Draft returns a deep copy of the current answers.
func (s *Session) Draft() *fields.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Draft().Clone()
}

// Get returns a copy of one field's value.
func (s *Session) Get(f fields.Field) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Get(f)
}

// --- transitions ---

// Next validates the current step. On failure it stores the errors and
// stays put; on success it clears them and advances, clamped at the last
// step.
func (s *Session) Next() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed {
		return false, apperr.ErrCompleted
	}
	if !s.validateLocked(s.step) {
		return false, nil
	}
	if s.step < steps.Count {
		s.step++
	}
	return true, nil
}

// Previous moves back one step without validating, clamped at 1. Errors of
// the step being left are dropped.
func (s *Session) Previous() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed {
		return apperr.ErrCompleted
	}
	if s.step > 1 {
		s.step--
	}
	s.errs = steps.Errors{}
	return nil
}

// GoTo jumps to step n. Backward jumps are free. Forward jumps validate
// every step on the way and stop at the first invalid one.
func (s *Session) GoTo(n int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed {
		return false, apperr.ErrCompleted
	}
	if n < 1 || n > steps.Count {
		return false, fmt.Errorf("wizard: step %d: %w", n, apperr.ErrInvalidValue)
	}
	if n <= s.step {
		s.step = n
		s.errs = steps.Errors{}
		return true, nil
	}
	for s.step < n {
		if !s.validateLocked(s.step) {
			return false, nil
		}
		s.step++
	}
	return true, nil
}

// Submit finishes the wizard. It is only valid on the last step. When the
// step validates it writes the full draft synchronously; a failed write
// (wrapping apperr.ErrFatal) leaves the session open on the last step.
func (s *Session) Submit(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed {
		return false, apperr.ErrCompleted
	}
	if s.step != steps.Count {
		return false, fmt.Errorf("wizard: submit on step %d: %w", s.step, apperr.ErrNotFinalStep)
	}
	if !s.validateLocked(s.step) {
		return false, nil
	}
	if err := s.persister.Final(ctx, s.store.Snapshot()); err != nil {
		return false, fmt.Errorf("wizard: submit: %w", err)
	}
	s.completed = true
	s.store.MarkClean()
	s.log.Info("wizard completed")
	return true, nil
}

func (s *Session) validateLocked(n int) bool {
	errs := steps.Validate(n, s.store.Draft())
	if !errs.Empty() {
		s.errs = errs
		return false
	}
	s.errs = steps.Errors{}
	return true
}

// --- mutations ---

// clearLocked drops the error at path and every error nested under it.
func (s *Session) clearLocked(path string) {
	for k := range s.errs {
		if k == path || strings.HasPrefix(k, path+".") || strings.HasPrefix(k, path+"[") {
			delete(s.errs, k)
		}
	}
}

// Set replaces a field's value.
func (s *Session) Set(f fields.Field, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed {
		return apperr.ErrCompleted
	}
	if err := s.store.Set(f, v); err != nil {
		return err
	}
	s.clearLocked(string(f))
	return nil
}

// SetNested sets one subfield of an object field.
func (s *Session) SetNested(f fields.Field, sub string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed {
		return apperr.ErrCompleted
	}
	if err := s.store.SetNested(f, sub, v); err != nil {
		return err
	}
	s.clearLocked(string(f) + "." + sub)
	return nil
}

// AddMenuNode adds a default option under parentID (menu.Root for the top
// level) and returns its id.
func (s *Session) AddMenuNode(parentID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed {
		return "", apperr.ErrCompleted
	}
	var id string
	_, err := s.store.EditMenu(func(t *menu.Tree) (bool, error) {
		var err error
		id, err = t.AddNode(parentID)
		return err == nil, err
	})
	if err != nil {
		return "", fmt.Errorf("wizard: %w", err)
	}
	return id, nil
}

// RemoveMenuNode removes an option and its whole subtree. It reports
// false when the id does not exist.
func (s *Session) RemoveMenuNode(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed {
		return false, apperr.ErrCompleted
	}
	removed, err := s.store.EditMenu(func(t *menu.Tree) (bool, error) {
		return t.RemoveNode(id), nil
	})
	if removed {
		s.pruneNodeErrorsLocked()
	}
	return removed, err
}

// UpdateMenuNode sets one attribute of an option. It reports false when
// the id does not exist.
func (s *Session) UpdateMenuNode(id string, field menu.Field, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed {
		return false, apperr.ErrCompleted
	}
	updated, err := s.store.EditMenu(func(t *menu.Tree) (bool, error) {
		return t.UpdateField(id, field, value)
	})
	if err != nil {
		return false, fmt.Errorf("wizard: %w", err)
	}
	if updated {
		s.clearLocked(steps.NodePath(id) + "." + string(field))
	}
	return updated, nil
}

// pruneNodeErrorsLocked drops errors of menu nodes that no longer exist.
func (s *Session) pruneNodeErrorsLocked() {
	prefix := steps.NodePath("")
	tree := s.store.Draft().CallMenu.Nodes
	for k := range s.errs {
		rest, ok := strings.CutPrefix(k, prefix)
		if !ok {
			continue
		}
		id, _, _ := strings.Cut(rest, ".")
		if _, exists := tree.Node(id); !exists {
			delete(s.errs, k)
		}
	}
}

// AddDepartment appends a blank department and returns its index.
func (s *Session) AddDepartment() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed {
		return 0, apperr.ErrCompleted
	}
	deps := append(slices.Clone(s.store.Draft().Departments), fields.Department{})
	if err := s.store.Set(fields.Departments, deps); err != nil {
		return 0, err
	}
	return len(deps) - 1, nil
}

// UpdateDepartment sets one attribute (name, extension or voice) of the
// department at index i.
func (s *Session) UpdateDepartment(i int, sub string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed {
		return apperr.ErrCompleted
	}
	deps := slices.Clone(s.store.Draft().Departments)
	if i < 0 || i >= len(deps) {
		return fmt.Errorf("wizard: department %d: %w", i, apperr.ErrInvalidValue)
	}

	raw := make([]any, len(deps))
	for j, d := range deps {
		raw[j] = map[string]any{"name": d.Name, "extension": d.Extension, "voice": string(d.Voice)}
	}
	entry := raw[i].(map[string]any)
	if _, ok := entry[sub]; !ok {
		return fmt.Errorf("wizard: department field %q: %w", sub, apperr.ErrUnknownField)
	}
	entry[sub] = value

	if err := s.store.Set(fields.Departments, raw); err != nil {
		return err
	}
	s.clearLocked(fmt.Sprintf("%s[%d].%s", fields.Departments, i, sub))
	return nil
}

// RemoveDepartment deletes the department at index i. Menu options that
// transfer to it keep their target; Progress reports them as dangling.
func (s *Session) RemoveDepartment(i int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed {
		return false, apperr.ErrCompleted
	}
	deps := s.store.Draft().Departments
	if i < 0 || i >= len(deps) {
		return false, nil
	}
	next := slices.Delete(slices.Clone(deps), i, i+1)
	if err := s.store.Set(fields.Departments, next); err != nil {
		return false, err
	}
	// Indices shifted; the old per-department errors no longer line up.
	s.clearLocked(string(fields.Departments))
	return true, nil
}

// --- reporting ---

// Progress is a snapshot of the session for display.
type Progress struct {
	Identity  string       `json:"identity"`
	Step      int          `json:"step"`
	Title     string       `json:"title"`
	Total     int          `json:"total"`
	Completed bool         `json:"completed"`
	Dirty     bool         `json:"dirty"`
	Errors    steps.Errors `json:"errors"`
	// Dangling lists menu options whose transfer target names no
	// department.
	Dangling []string `json:"dangling,omitempty"`
}

// Progress reports where the session stands.
func (s *Session) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.store.Draft()
	var dangling []string
	for _, n := range d.CallMenu.Nodes.DanglingTargets(d.DepartmentNames()) {
		dangling = append(dangling, n.ID)
	}
	return Progress{
		Identity:  s.identity,
		Step:      s.step,
		Title:     steps.Title(s.step),
		Total:     steps.Count,
		Completed: s.completed,
		Dirty:     s.store.Dirty(),
		Errors:    maps.Clone(s.errs),
		Dangling:  dangling,
	}
}
