package workflow

import "errors"

var (
	// ErrValidation is returned when an input is malformed or a required
	// payload field is missing
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized is returned when the actor lacks rights for a transition
	ErrUnauthorized = errors.New("actor not authorized")

	// ErrInvalidState is returned when the request is terminal, in a state
	// incompatible with the transition, or was modified concurrently
	ErrInvalidState = errors.New("invalid state for transition")

	// ErrNotFound is returned when the request does not exist
	ErrNotFound = errors.New("purchase request not found")

	// ErrStorage is returned when the persistence layer fails; the whole
	// transition is safe to retry
	ErrStorage = errors.New("storage failure")

	// ErrInvalidTransition is returned when a state transition is not configured
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrGuardFailed is returned when all guard conditions for a trigger fail
	ErrGuardFailed = errors.New("guard condition failed")
)
