package sqlpersistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dogmatiq/linger"
	"github.com/tum-esm/hermes/persistence"
	"go.uber.org/multierr"
)

// dataStore is an implementation of persistence.DataStore for SQL databases.
type dataStore struct {
	db      *sql.DB
	driver  Driver
	station string
	token   string
	ttl     time.Duration

	closeM     sync.Mutex
	closed     bool
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	closeCause error
	release    func() error
}

// newDataStore returns a new data-store.
func newDataStore(
	db *sql.DB,
	d Driver,
	station string,
	token string,
	ttl time.Duration,
	r func() error,
) *dataStore {
	ctx, cancel := context.WithCancel(context.Background())

	ds := &dataStore{
		db:      db,
		driver:  d,
		station: station,
		token:   token,
		ttl:     ttl,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		release: r,
	}

	go ds.maintainLease()

	return ds
}

// Close closes the data store.
//
// Closing a data-store causes any future operations to return
// ErrDataStoreClosed, and gives up the lease on the station's data.
func (ds *dataStore) Close() error {
	ds.closeM.Lock()
	defer ds.closeM.Unlock()

	if ds.closed {
		return persistence.ErrDataStoreClosed
	}

	ds.closed = true
	ds.cancel()
	<-ds.done

	// The lease lapses by itself after the TTL, so there is no point trying
	// to release it for any longer than that.
	ctx, cancel := context.WithTimeout(context.Background(), ds.ttl)
	defer cancel()

	// ds.release() may close the DB, so the lease must be released first.
	err := ds.driver.ReleaseLease(ctx, ds.db, ds.station, ds.token)

	return multierr.Append(
		err,
		ds.release(),
	)
}

// withTx calls fn within a transaction, which is committed if fn succeeds.
//
// Errors are wrapped using persistence.WrapError(), with op describing the
// operation.
func (ds *dataStore) withTx(
	ctx context.Context,
	op string,
	fn func(ctx context.Context, tx *sql.Tx) error,
) error {
	err := ds.withDB(
		ctx,
		func(ctx context.Context, db *sql.DB) error {
			tx, err := ds.driver.Begin(ctx, db)
			if err != nil {
				return err
			}
			defer tx.Rollback() // nolint:errcheck

			if err := fn(ctx, tx); err != nil {
				return err
			}

			return tx.Commit()
		},
	)

	return persistence.WrapError(op, err)
}

// withDB calls fn with the data-store's database.
//
// The context passed to fn is canceled if the data-store is closed while fn
// is running, in which case the cause of the closure is returned in place of
// the cancelation error.
func (ds *dataStore) withDB(
	ctx context.Context,
	fn func(ctx context.Context, db *sql.DB) error,
) error {
	select {
	case <-ds.done:
		return ds.closeCause
	default:
	}

	fnCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := context.AfterFunc(ds.ctx, cancel)
	defer stop()

	err := fn(fnCtx, ds.db)

	if errors.Is(err, context.Canceled) && ctx.Err() == nil && ds.ctx.Err() != nil {
		<-ds.done
		return ds.closeCause
	}

	return err
}

// maintainLease renews the data-store's lease on the station's data at half
// the TTL. The data-store is closed if the lease can not be renewed.
func (ds *dataStore) maintainLease() {
	defer close(ds.done)
	defer ds.cancel()

	for {
		if err := linger.Sleep(ds.ctx, ds.ttl/2); err != nil {
			ds.closeCause = persistence.ErrDataStoreClosed
			return
		}

		ok, err := ds.driver.RenewLease(
			ds.ctx,
			ds.db,
			ds.station,
			ds.token,
			ds.ttl,
		)

		if errors.Is(err, context.Canceled) {
			ds.closeCause = persistence.ErrDataStoreClosed
			return
		}

		if err != nil {
			ds.closeCause = fmt.Errorf("unable to renew data-store lease: %w", err)
			return
		}

		if !ok {
			ds.closeCause = errors.New("data-store lease has lapsed")
			return
		}
	}
}
