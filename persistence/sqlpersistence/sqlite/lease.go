package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/tum-esm/hermes/internal/x/sqlx"
)

// AcquireLease takes out a lease on a station's data.
func (driver) AcquireLease(
	ctx context.Context,
	db *sql.DB,
	station, token string,
	ttl time.Duration,
) (_ bool, err error) {
	defer sqlx.Recover(&err)

	now := time.Now()

	// A lapsed lease is taken over in place. The WHERE clause leaves an
	// unexpired lease untouched, in which case no rows are affected.
	return sqlx.TryExecRow(
		ctx,
		db,
		`INSERT INTO hermes_lease (
			station,
			token,
			expires_at
		) VALUES (
			$1, $2, $3
		) ON CONFLICT (station) DO UPDATE SET
			token = excluded.token,
			expires_at = excluded.expires_at
		WHERE hermes_lease.expires_at <= $4`,
		station,
		token,
		now.Add(ttl).UnixNano(),
		now.UnixNano(),
	), nil
}

// RenewLease extends a lease that is held with the given token.
//
// A lease that has expired but not been taken over is still renewed. Another
// process taking it over replaces the token.
func (driver) RenewLease(
	ctx context.Context,
	db *sql.DB,
	station, token string,
	ttl time.Duration,
) (_ bool, err error) {
	defer sqlx.Recover(&err)

	return sqlx.TryExecRow(
		ctx,
		db,
		`UPDATE hermes_lease SET
			expires_at = $1
		WHERE station = $2
		AND token = $3`,
		time.Now().Add(ttl).UnixNano(),
		station,
		token,
	), nil
}

// ReleaseLease gives up a lease that is held with the given token.
func (driver) ReleaseLease(
	ctx context.Context,
	db *sql.DB,
	station, token string,
) (err error) {
	defer sqlx.Recover(&err)

	sqlx.Exec(
		ctx,
		db,
		`DELETE FROM hermes_lease
		WHERE station = $1
		AND token = $2`,
		station,
		token,
	)

	return nil
}

func createLeaseSchema(ctx context.Context, db sqlx.DB) {
	sqlx.Exec(
		ctx,
		db,
		`CREATE TABLE IF NOT EXISTS hermes_lease (
			station    TEXT NOT NULL PRIMARY KEY,
			token      TEXT NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
	)
}

func dropLeaseSchema(ctx context.Context, db sqlx.DB) {
	sqlx.Exec(ctx, db, `DROP TABLE IF EXISTS hermes_lease`)
}
