package sqlpersistence

import (
	"context"
	"database/sql"
	"time"
)

// LeaseDriver is the subset of the Driver interface that is concerned with
// exclusive access to a station's data.
//
// A lease is held by whoever presents the token it was acquired with. It
// lapses if it is not renewed before its TTL elapses.
type LeaseDriver interface {
	// AcquireLease takes out a lease on a station's data.
	//
	// It returns false if another holder has a lease that has not yet lapsed.
	AcquireLease(
		ctx context.Context,
		db *sql.DB,
		station, token string,
		ttl time.Duration,
	) (bool, error)

	// RenewLease extends a lease that is held with the given token.
	//
	// It returns false if the lease has lapsed.
	RenewLease(
		ctx context.Context,
		db *sql.DB,
		station, token string,
		ttl time.Duration,
	) (bool, error)

	// ReleaseLease gives up a lease that is held with the given token.
	//
	// It is not an error if the lease has already lapsed.
	ReleaseLease(
		ctx context.Context,
		db *sql.DB,
		station, token string,
	) error
}
