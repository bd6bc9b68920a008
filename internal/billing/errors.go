package billing

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the document does not exist.
	ErrNotFound = errors.New("billing: document not found")
	// ErrStaleState indicates a concurrent write changed the document between
	// the precondition check and the update. The caller must re-fetch.
	ErrStaleState = errors.New("billing: stale state, re-fetch required")
	// ErrInvalidTransition is the sentinel wrapped by InvalidTransitionError.
	ErrInvalidTransition = errors.New("billing: invalid transition")
	// ErrNotEditable indicates a field edit on a non-draft document.
	ErrNotEditable = errors.New("billing: only draft documents can be edited")
	// ErrUnknownParent indicates parent_id does not reference an existing
	// document owned by the same user.
	ErrUnknownParent = errors.New("billing: unknown parent document")
	// ErrParentCycle indicates the parent link would make a document its own
	// ancestor.
	ErrParentCycle = errors.New("billing: parent chain cycle")
)

// InvalidTransitionError identifies the attempted operation and the status it
// was attempted from. It unwraps to ErrInvalidTransition.
type InvalidTransitionError struct {
	Op   TransitionOp
	From Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("billing: invalid transition %s from status %s", e.Op, e.From)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

func invalidTransition(op TransitionOp, from Status) error {
	return &InvalidTransitionError{Op: op, From: from}
}
