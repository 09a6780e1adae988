package sqlpersistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tum-esm/hermes/persistence/sqlpersistence/sqlite"
)

// CreateSchema creates the tables used to store station data in db.
//
// Tables that already exist are left as they are. Provider calls CreateSchema
// itself the first time it uses a database.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	d, err := selectDriver(ctx, db)
	if err != nil {
		return err
	}

	return d.CreateSchema(ctx, db)
}

// DropSchema removes the tables created by CreateSchema(), along with any
// station data they contain.
func DropSchema(ctx context.Context, db *sql.DB) error {
	d, err := selectDriver(ctx, db)
	if err != nil {
		return err
	}

	return d.DropSchema(ctx, db)
}

// selectDriver returns the driver to use with db when none is configured.
//
// SQLite is the only database that stations run, so there is nothing to
// choose between. The check exists to report a misconfigured DB early.
func selectDriver(ctx context.Context, db *sql.DB) (Driver, error) {
	if err := sqlite.Driver.IsCompatibleWith(ctx, db); err != nil {
		return nil, fmt.Errorf(
			"%T is not a supported database driver: %w",
			db.Driver(),
			err,
		)
	}

	return sqlite.Driver, nil
}
