package sqlpersistence

import (
	"context"
	"database/sql"

	"github.com/tum-esm/hermes/persistence"
)

// LoadRevision returns the station's current configuration revision.
func (ds *dataStore) LoadRevision(ctx context.Context) (r uint32, err error) {
	err = ds.withTx(
		ctx,
		"load revision",
		func(ctx context.Context, tx *sql.Tx) error {
			r, err = ds.driver.SelectRevision(ctx, tx, ds.station)
			return err
		},
	)

	return r, err
}

// SaveRevision sets the station's current configuration revision.
func (ds *dataStore) SaveRevision(ctx context.Context, r uint32) error {
	return ds.withTx(
		ctx,
		"save revision",
		func(ctx context.Context, tx *sql.Tx) error {
			ok, err := ds.driver.UpdateRevision(ctx, tx, ds.station, r)
			if err != nil {
				return err
			}

			if ok {
				return nil
			}

			current, err := ds.driver.SelectRevision(ctx, tx, ds.station)
			if err != nil {
				return err
			}

			return &persistence.StaleRevisionError{
				Current:   current,
				Requested: r,
			}
		},
	)
}
