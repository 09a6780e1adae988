package boltpersistence

import (
	"context"
	"sync"

	"github.com/tum-esm/hermes/internal/x/bboltx"
	"github.com/tum-esm/hermes/persistence"
	"go.etcd.io/bbolt"
)

// dataStore is an implementation of persistence.DataStore for BoltDB.
type dataStore struct {
	db      *bbolt.DB
	station []byte

	m       sync.RWMutex
	release func(string) error
}

// Close closes the data store.
//
// Closing a data-store causes any future operations to return
// ErrDataStoreClosed. Close() blocks until any in-flight operations return.
func (ds *dataStore) Close() error {
	ds.m.Lock()
	defer ds.m.Unlock()

	if ds.release == nil {
		return persistence.ErrDataStoreClosed
	}

	r := ds.release
	ds.db = nil
	ds.release = nil

	return r(string(ds.station))
}

// update calls fn with the station's root bucket inside a read-write
// transaction.
//
// fn reports errors by panicking via bboltx.Must(), which rolls the
// transaction back.
func (ds *dataStore) update(
	ctx context.Context,
	op string,
	fn func(root *bbolt.Bucket),
) (err error) {
	ds.m.RLock()
	defer ds.m.RUnlock()

	if ds.release == nil {
		return persistence.ErrDataStoreClosed
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	defer func() {
		err = persistence.WrapError(op, err)
	}()
	defer bboltx.Recover(&err)

	bboltx.Update(
		ds.db,
		func(tx *bbolt.Tx) {
			fn(bboltx.CreateBucketIfNotExists(tx, ds.station))
		},
	)

	return nil
}

// view calls fn with the station's root bucket inside a read-only
// transaction.
//
// root is nil if nothing has been written for this station.
func (ds *dataStore) view(
	ctx context.Context,
	op string,
	fn func(root *bbolt.Bucket),
) (err error) {
	ds.m.RLock()
	defer ds.m.RUnlock()

	if ds.release == nil {
		return persistence.ErrDataStoreClosed
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	defer func() {
		err = persistence.WrapError(op, err)
	}()
	defer bboltx.Recover(&err)

	bboltx.View(
		ds.db,
		func(tx *bbolt.Tx) {
			fn(tx.Bucket(ds.station))
		},
	)

	return nil
}
