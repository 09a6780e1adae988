package sqlpersistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tum-esm/hermes/persistence"
)

var (
	// DefaultMaxOpenConns is the default maximum number of open connections
	// in a database pool opened by the provider.
	//
	// SQLite serializes writers, so there is little to gain from a large
	// pool.
	DefaultMaxOpenConns = 2

	// DefaultMaxConnLifetime is the default maximum lifetime of connections
	// in a database pool opened by the provider.
	DefaultMaxConnLifetime = 10 * time.Minute

	// DefaultLeaseTTL is the default duration of a lease on a station's data.
	DefaultLeaseTTL = 10 * time.Second
)

// Provider is an implementation of persistence.Provider that stores station
// data in an SQL database.
//
// If DB is set, the provider uses that pool and never closes it. Otherwise it
// opens a pool using DriverName and DSN when the first data-store is opened,
// and closes it again when the last data-store is closed.
type Provider struct {
	// DB is an existing database pool to use.
	DB *sql.DB

	// DriverName is the name of the database/sql driver to open, such as
	// "sqlite3". It is ignored if DB is set.
	DriverName string

	// DSN is the data-source name to open. It is ignored if DB is set.
	DSN string

	// Driver is the implementation used to query the database. If it is nil,
	// it is chosen automatically.
	Driver Driver

	// LeaseTTL is the duration of a lease on a station's data. The lease is
	// renewed while the data-store is open. If it is zero, DefaultLeaseTTL is
	// used.
	LeaseTTL time.Duration

	// MaxOpenConns is the maximum number of open connections in a pool opened
	// by the provider. If it is zero, DefaultMaxOpenConns is used.
	MaxOpenConns int

	// MaxConnLifetime is the maximum lifetime of connections in a pool opened
	// by the provider. If it is zero, DefaultMaxConnLifetime is used.
	MaxConnLifetime time.Duration

	m      sync.Mutex
	db     *sql.DB
	driver Driver
	refs   int
}

// Open returns a data-store for a specific station.
//
// Data stores are opened for exclusive use. If the station's data-store is
// already open, persistence.ErrDataStoreLocked is returned.
func (p *Provider) Open(ctx context.Context, station string) (persistence.DataStore, error) {
	p.m.Lock()
	defer p.m.Unlock()

	if p.db == nil {
		if err := p.connect(ctx); err != nil {
			return nil, err
		}
	}

	ttl := p.LeaseTTL
	if ttl == 0 {
		ttl = DefaultLeaseTTL
	}

	token := uuid.NewString()

	ok, err := p.driver.AcquireLease(ctx, p.db, station, token, ttl)
	if err != nil {
		return nil, p.releaseIfUnused(err)
	}

	if !ok {
		return nil, p.releaseIfUnused(persistence.ErrDataStoreLocked)
	}

	p.refs++

	return newDataStore(
		p.db,
		p.driver,
		station,
		token,
		ttl,
		p.release,
	), nil
}

// connect prepares the database for use by the first data-store.
//
// It assumes p.m is already locked.
func (p *Provider) connect(ctx context.Context) error {
	db := p.DB

	if db == nil {
		if p.DriverName == "" {
			return errors.New("no database configured, set either DB or DriverName and DSN")
		}

		var err error
		db, err = sql.Open(p.DriverName, p.DSN)
		if err != nil {
			return err
		}

		n := p.MaxOpenConns
		if n == 0 {
			n = DefaultMaxOpenConns
		}
		db.SetMaxOpenConns(n)
		db.SetMaxIdleConns(n)

		ttl := p.MaxConnLifetime
		if ttl == 0 {
			ttl = DefaultMaxConnLifetime
		}
		db.SetConnMaxLifetime(ttl)
	}

	d := p.Driver
	if d == nil {
		var err error
		d, err = selectDriver(ctx, db)
		if err != nil {
			// Report the causal error, not any error from closing.
			p.closeDB(db) // nolint:errcheck
			return err
		}
	}

	if err := d.CreateSchema(ctx, db); err != nil {
		p.closeDB(db) // nolint:errcheck
		return fmt.Errorf("unable to create schema: %w", err)
	}

	p.db = db
	p.driver = d

	return nil
}

// releaseIfUnused closes the database if no data-stores are using it, then
// returns cause.
//
// It assumes p.m is already locked.
func (p *Provider) releaseIfUnused(cause error) error {
	if p.refs == 0 {
		p.closeDB(p.db) // nolint:errcheck
		p.db = nil
	}

	return cause
}

// release releases a data-store's reference to the database.
func (p *Provider) release() error {
	p.m.Lock()
	defer p.m.Unlock()

	p.refs--

	if p.refs > 0 {
		return nil
	}

	db := p.db
	p.db = nil

	return p.closeDB(db)
}

// closeDB closes db unless it was supplied by the user.
func (p *Provider) closeDB(db *sql.DB) error {
	if db == p.DB {
		return nil
	}

	return db.Close()
}
