package fields

import (
	"fmt"
	"slices"
	"sort"

	"github.com/HendryAvila/Receptionist/internal/apperr"
	"github.com/HendryAvila/Receptionist/internal/menu"
)

// Observer is notified after every successful mutation with the field
// that changed and a private copy of its new value.
type Observer func(field Field, value any)

// Store owns one draft for one wizard session. It is not safe for
// concurrent writers; a session has a single logical owner.
type Store struct {
	draft     *Draft
	dirty     bool
	observers []Observer
}

// NewStore wraps a draft. A nil draft starts from defaults.
func NewStore(d *Draft) *Store {
	if d == nil {
		d = NewDraft()
	}
	d.normalize()
	return &Store{draft: d}
}

// Observe registers an observer. Observers run synchronously, in
// registration order, after the mutation is applied.
func (s *Store) Observe(o Observer) {
	s.observers = append(s.observers, o)
}

// Draft exposes the live draft for read-only consumers such as the step
// validators. Callers must not mutate it; use Set instead.
func (s *Store) Draft() *Draft { return s.draft }

// Dirty reports whether the draft changed since the last MarkClean.
func (s *Store) Dirty() bool { return s.dirty }

// MarkClean clears the dirty flag, typically after a durable write.
func (s *Store) MarkClean() { s.dirty = false }

// Get returns a copy of the field's current value.
func (s *Store) Get(f Field) (any, error) {
	sp, ok := schema[f]
	if !ok {
		return nil, fmt.Errorf("fields: get %q: %w", f, apperr.ErrUnknownField)
	}
	return sp.get(s.draft), nil
}

// Set replaces a field's value. Loosely typed input (JSON-decoded maps,
// numbers for strings) is coerced to the field's kind.
func (s *Store) Set(f Field, v any) error {
	sp, ok := schema[f]
	if !ok {
		return fmt.Errorf("fields: set %q: %w", f, apperr.ErrUnknownField)
	}
	if err := sp.set(s.draft, v); err != nil {
		return fmt.Errorf("fields: set %q: %w", f, err)
	}
	s.changed(f)
	return nil
}

// SetNested merges one subfield into an object-valued field, leaving its
// siblings untouched.
func (s *Store) SetNested(f Field, sub string, v any) error {
	sp, ok := schema[f]
	if !ok {
		return fmt.Errorf("fields: set %q.%s: %w", f, sub, apperr.ErrUnknownField)
	}
	if sp.nested == nil {
		return fmt.Errorf("fields: %q is not an object field: %w", f, apperr.ErrUnknownField)
	}
	if err := sp.nested(s.draft, sub, v); err != nil {
		return fmt.Errorf("fields: set %q.%s: %w", f, sub, err)
	}
	s.changed(f)
	return nil
}

// EditMenu runs a mutation against the call-menu tree. The edit counts as
// a change of the callMenu field only when fn reports it changed
// something; a failed or no-op edit notifies nobody.
func (s *Store) EditMenu(fn func(t *menu.Tree) (bool, error)) (bool, error) {
	changed, err := fn(s.draft.CallMenu.Nodes)
	if err != nil || !changed {
		return changed, err
	}
	s.changed(CallMenuField)
	return true, nil
}

// Snapshot returns a copy of every schema field keyed by name, ready to
// be written as a merge payload.
func (s *Store) Snapshot() map[string]any {
	out := make(map[string]any, len(schema))
	for f, sp := range schema {
		out[string(f)] = sp.get(s.draft)
	}
	return out
}

func (s *Store) changed(f Field) {
	s.dirty = true
	if len(s.observers) == 0 {
		return
	}
	v := schema[f].get(s.draft)
	for _, o := range s.observers {
		o(f, v)
	}
}

// Known reports whether f belongs to the schema.
func Known(f Field) bool {
	_, ok := schema[f]
	return ok
}

// All returns every field name, sorted.
func All() []Field {
	out := make([]Field, 0, len(schema))
	for f := range schema {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Subfields returns the subfield names of an object field, or nil.
func Subfields(f Field) []string {
	return slices.Clone(subfieldNames[f])
}

// Structured reports whether f takes a list or an object rather than a
// single text, number or boolean value. The agent voice counts: it may be
// given as {name, accent, tone}.
func Structured(f Field) bool {
	switch f {
	case ContactInfoField, BusinessHoursField, CallMenuField,
		Services, BookingServices, Departments, AgentVoice:
		return true
	}
	return false
}
