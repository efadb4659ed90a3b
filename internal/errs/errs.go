// Package errs holds the shared error taxonomy of the workflow engine.
// Sentinels are matched with errors.Is so callers can branch on the class of
// failure without string comparison.
package errs

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition means the transition's origin state does not match
	// the instance's current state. Never retried automatically.
	ErrInvalidTransition = errors.New("invalid transition for current state")
	// ErrConditionNotMet means a transition condition rendered false. This is
	// a normal negative result, not a system fault.
	ErrConditionNotMet = errors.New("transition condition not met")
	// ErrLockTimeout means the per-instance lock could not be acquired in
	// time. Safe to retry.
	ErrLockTimeout = errors.New("workflow instance lock timeout")
	// ErrRetryable marks transient store failures. Safe to retry.
	ErrRetryable = errors.New("retryable failure")
	// ErrAlreadyLaunched means an instance for the (template, document) pair
	// exists. The launcher swallows it.
	ErrAlreadyLaunched = errors.New("workflow already launched for document")
)

// IsRetryable reports whether the caller may safely retry the operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockTimeout) || errors.Is(err, ErrRetryable)
}
