package model

import "errors"

// Engine error taxonomy. Sentinel variables allow callers to detect
// conditions via errors.Is instead of brittle string comparisons.

var (
	// ErrInsufficientResources is returned when a reservation cannot be
	// satisfied, or at admission time when a demand exceeds the player's
	// total capacity on any dimension and could therefore never run.
	ErrInsufficientResources = errors.New("insufficient resources")

	// ErrProcessNotFound is returned when the referenced process does not
	// exist for the calling player.
	ErrProcessNotFound = errors.New("process not found")

	// ErrInvalidStateTransition is returned when the requested operation is
	// not legal in the process's current state.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrNotCancellable is returned when a running process's type forbids
	// interruption.
	ErrNotCancellable = errors.New("process not cancellable")

	// ErrTargetInvalid is returned when the target reference cannot be
	// resolved to a live target.
	ErrTargetInvalid = errors.New("target invalid")

	// ErrConcurrencyConflict signals a lost race on an optimistic
	// precondition, e.g. cancelling a process that just completed. Safe to
	// retry after re-querying state.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)
