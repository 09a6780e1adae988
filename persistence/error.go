package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/tum-esm/hermes/message"
)

// UnknownMessageError is the error returned when a message referenced by its ID
// does not exist.
type UnknownMessageError struct {
	ID uint64
}

// Error returns a string representation of UnknownMessageError.
func (e UnknownMessageError) Error() string {
	return fmt.Sprintf(
		"message with ID %d does not exist",
		e.ID,
	)
}

// InvalidTransitionError is returned when an attempt is made to move a
// message to a status that does not come after its current status.
//
// It always indicates a bug, as statuses only ever move forward.
type InvalidTransitionError struct {
	ID   uint64
	From message.Status
	To   message.Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf(
		"can not change status of message %d from %s to %s",
		e.ID,
		e.From,
		e.To,
	)
}

// StaleRevisionError is returned when an attempt is made to save a
// configuration revision that is not newer than the current revision.
type StaleRevisionError struct {
	Current   uint32
	Requested uint32
}

func (e *StaleRevisionError) Error() string {
	return fmt.Sprintf(
		"revision %d is not newer than the current revision (%d)",
		e.Requested,
		e.Current,
	)
}

// PersistenceError indicates that the underlying storage failed.
//
// The station can not make progress without its store, so these errors are
// treated as fatal.
type PersistenceError struct {
	// Op is the name of the data-store operation that failed.
	Op string

	// Cause is the error reported by the storage layer.
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("unable to %s: %s", e.Op, e.Cause)
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

// WrapError wraps err in a *PersistenceError, unless it is nil, one of the
// errors defined by this package, or a context error.
//
// It is intended for use by Provider implementations.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}

	var (
		unknown    UnknownMessageError
		transition *InvalidTransitionError
		stale      *StaleRevisionError
		wrapped    *PersistenceError
	)

	switch {
	case errors.Is(err, ErrDataStoreClosed),
		errors.Is(err, ErrDataStoreLocked),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &unknown),
		errors.As(err, &transition),
		errors.As(err, &stale),
		errors.As(err, &wrapped):
		return err
	}

	var verr *message.ValidationError
	if errors.As(err, &verr) {
		return err
	}

	return &PersistenceError{op, err}
}
