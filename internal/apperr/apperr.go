// Package apperr holds the sentinel errors shared by the configuration
// engine. Packages wrap them with context via fmt.Errorf("...: %w") and
// callers match with errors.Is.
//
// Validation problems are NOT errors: they travel as steps.Errors data.
package apperr

import "errors"

// Programmer errors. They should never happen in a correct call
// sequence, but must fail loudly instead of corrupting state.
var (
	// ErrUnknownField is returned for a field or subfield name outside
	// the closed schema.
	ErrUnknownField = errors.New("unknown field")

	// ErrNodeNotFound is returned when a menu parent id does not resolve.
	ErrNodeNotFound = errors.New("menu node not found")

	// ErrInvalidValue is returned when a value cannot be coerced to the
	// kind a field expects.
	ErrInvalidValue = errors.New("invalid value")
)

// Persistence errors.
var (
	// ErrTransient marks a failed debounced write. It is reported as a
	// status and retried by the next mutation's debounce cycle.
	ErrTransient = errors.New("transient persistence failure")

	// ErrFatal marks a failed synchronous final write. The wizard stays
	// at the review step, not completed.
	ErrFatal = errors.New("fatal persistence failure")
)

// Wizard lifecycle errors.
var (
	// ErrCompleted is returned for any edit or transition attempted on a
	// session that already completed.
	ErrCompleted = errors.New("wizard session already completed")

	// ErrNotFinalStep is returned when Submit is called before the last step.
	ErrNotFinalStep = errors.New("submit is only allowed at the final step")

	// ErrNoIdentity is returned when no user identifier is available.
	ErrNoIdentity = errors.New("no identity available")
)
