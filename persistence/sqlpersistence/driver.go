package sqlpersistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/tum-esm/hermes/message"
)

// Driver is used to interface with the underlying SQL database.
type Driver interface {
	LeaseDriver
	MessageDriver
	RevisionDriver

	// IsCompatibleWith returns nil if this driver can be used with db.
	IsCompatibleWith(ctx context.Context, db *sql.DB) error

	// Begin starts a transaction.
	Begin(ctx context.Context, db *sql.DB) (*sql.Tx, error)

	// CreateSchema creates any SQL schema elements required by the driver.
	CreateSchema(ctx context.Context, db *sql.DB) error

	// DropSchema removes any SQL schema elements created by CreateSchema().
	DropSchema(ctx context.Context, db *sql.DB) error
}

// MessageDriver is the subset of the Driver interface that is concerned with
// the outbound queue.
type MessageDriver interface {
	// InsertMessage inserts a message and returns its newly assigned ID.
	//
	// m.Header.ID is ignored. IDs are never reused, even after the message is
	// deleted.
	InsertMessage(
		ctx context.Context,
		tx *sql.Tx,
		station string,
		m message.Message,
	) (uint64, error)

	// SelectMessage selects a single message by its ID.
	//
	// It returns false if there is no such message.
	SelectMessage(
		ctx context.Context,
		tx *sql.Tx,
		station string,
		id uint64,
	) (message.Message, bool, error)

	// UpdateMessageStatus sets the status of an existing message.
	//
	// deliveredAt is the zero-value unless s is message.Delivered. It returns
	// false if there is no such message.
	UpdateMessageStatus(
		ctx context.Context,
		tx *sql.Tx,
		station string,
		id uint64,
		s message.Status,
		deliveredAt time.Time,
	) (bool, error)

	// DeleteMessage deletes a single message.
	//
	// It returns false if there is no such message.
	DeleteMessage(
		ctx context.Context,
		tx *sql.Tx,
		station string,
		id uint64,
	) (bool, error)

	// SelectPendingMessages selects all messages that have not been delivered,
	// in ID order.
	SelectPendingMessages(
		ctx context.Context,
		tx *sql.Tx,
		station string,
	) ([]message.Message, error)

	// DeleteDeliveredMessages deletes the messages that were delivered before
	// the given time, and returns the number of messages deleted.
	DeleteDeliveredMessages(
		ctx context.Context,
		tx *sql.Tx,
		station string,
		before time.Time,
	) (int, error)
}

// RevisionDriver is the subset of the Driver interface that is concerned with
// the station's configuration revision.
type RevisionDriver interface {
	// SelectRevision selects the station's current revision.
	//
	// It returns zero if no revision has been stored.
	SelectRevision(
		ctx context.Context,
		tx *sql.Tx,
		station string,
	) (uint32, error)

	// UpdateRevision sets the station's current revision.
	//
	// It returns false, leaving the revision unchanged, if r is not greater
	// than the current revision.
	UpdateRevision(
		ctx context.Context,
		tx *sql.Tx,
		station string,
		r uint32,
	) (bool, error)
}
