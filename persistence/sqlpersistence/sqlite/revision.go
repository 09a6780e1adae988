package sqlite

import (
	"context"
	"database/sql"

	"github.com/tum-esm/hermes/internal/x/sqlx"
)

// SelectRevision selects the station's current revision.
func (driver) SelectRevision(
	ctx context.Context,
	tx *sql.Tx,
	station string,
) (r uint32, err error) {
	defer sqlx.Recover(&err)

	sqlx.TryQueryInto(
		ctx,
		tx,
		`SELECT revision
		FROM hermes_station
		WHERE station = $1`,
		[]interface{}{station},
		&r,
	)

	return r, nil
}

// UpdateRevision sets the station's current revision if r is greater than the
// current revision.
func (driver) UpdateRevision(
	ctx context.Context,
	tx *sql.Tx,
	station string,
	r uint32,
) (_ bool, err error) {
	defer sqlx.Recover(&err)

	return sqlx.TryExecRow(
		ctx,
		tx,
		`INSERT INTO hermes_station (
			station,
			revision
		) VALUES (
			$1, $2
		) ON CONFLICT (station) DO UPDATE SET
			revision = excluded.revision
		WHERE hermes_station.revision < excluded.revision`,
		station,
		r,
	), nil
}

// createRevisionSchema creates the schema elements for station revisions.
func createRevisionSchema(ctx context.Context, db sqlx.DB) {
	sqlx.Exec(
		ctx,
		db,
		`CREATE TABLE IF NOT EXISTS hermes_station (
			station  TEXT NOT NULL PRIMARY KEY,
			revision INTEGER NOT NULL
		) WITHOUT ROWID`,
	)
}

// dropRevisionSchema drops the schema elements for station revisions.
func dropRevisionSchema(ctx context.Context, db sqlx.DB) {
	sqlx.Exec(ctx, db, `DROP TABLE IF EXISTS hermes_station`)
}
