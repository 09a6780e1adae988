package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/tum-esm/hermes/message"
)

// ErrDataStoreClosed is returned when performing any persistence operation on a
// closed data-store.
var ErrDataStoreClosed = errors.New("data store is closed")

// DataStore is an interface used by the station to persist and retrieve its
// data.
//
// Every write is durable by the time the method returns.
type DataStore interface {
	// Append adds a new message to the outbound queue.
	//
	// The store assigns the message's ID, stamps it with the current time and
	// the current configuration revision, and persists it with a status of
	// message.Pending.
	Append(ctx context.Context, b message.Body) (message.Message, error)

	// UpdateStatus moves a message to a later status.
	//
	// It returns an *InvalidTransitionError if s does not come after the
	// message's current status, or an UnknownMessageError if there is no such
	// message. When s is message.Delivered the message's DeliveredAt time is
	// set to the current time.
	UpdateStatus(ctx context.Context, id uint64, s message.Status) (message.Message, error)

	// ListPending returns every message that has not been delivered, in the
	// order they were appended.
	ListPending(ctx context.Context) ([]message.Message, error)

	// Remove deletes a message from the queue, regardless of its status.
	//
	// It returns an UnknownMessageError if there is no such message.
	Remove(ctx context.Context, id uint64) error

	// LoadRevision returns the station's current configuration revision.
	//
	// It returns zero if no revision has been saved.
	LoadRevision(ctx context.Context) (uint32, error)

	// SaveRevision sets the station's current configuration revision.
	//
	// It returns a *StaleRevisionError unless r is greater than the current
	// revision.
	SaveRevision(ctx context.Context, r uint32) error

	// Compact removes delivered messages that were delivered before the given
	// time. It returns the number of messages removed.
	//
	// IDs of removed messages are never reassigned.
	Compact(ctx context.Context, deliveredBefore time.Time) (int, error)

	// Close closes the data store.
	//
	// Closing a data-store causes any future calls to return
	// ErrDataStoreClosed, and releases the station's lock so that the
	// data-store may be opened again.
	Close() error
}
