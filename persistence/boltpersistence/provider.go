package boltpersistence

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/tum-esm/hermes/internal/x/bboltx"
	"github.com/tum-esm/hermes/persistence"
	"go.etcd.io/bbolt"
)

// Provider is an implementation of persistence.Provider that stores station
// data in a BoltDB database.
//
// If DB is set, the provider uses that database and never closes it.
// Otherwise it opens the file at Path when the first data-store is opened, and
// closes it when the last data-store is closed. BoltDB locks the file while it
// is open, so no two processes may use the same file at the same time.
type Provider struct {
	// DB is an existing database to use.
	DB *bbolt.DB

	// Path is the path to the database file to open, or create if it does not
	// exist. It is ignored if DB is set.
	Path string

	// Mode is the file mode used when the file is created. If it is zero, 0600
	// is used.
	Mode os.FileMode

	// Options is the BoltDB options used when opening the file. If it is nil,
	// bbolt.DefaultOptions is used.
	Options *bbolt.Options

	m        sync.Mutex
	db       *bbolt.DB
	stations map[string]struct{}
}

// Open returns a data-store for a specific station.
//
// Data stores are opened for exclusive use. If the station's data-store is
// already open, persistence.ErrDataStoreLocked is returned.
func (p *Provider) Open(ctx context.Context, station string) (persistence.DataStore, error) {
	p.m.Lock()
	defer p.m.Unlock()

	if _, ok := p.stations[station]; ok {
		return nil, persistence.ErrDataStoreLocked
	}

	if p.db == nil {
		db, err := p.openDB(ctx)
		if err != nil {
			return nil, err
		}

		p.db = db
		p.stations = map[string]struct{}{}
	}

	p.stations[station] = struct{}{}

	return &dataStore{
		db:      p.db,
		station: []byte(station),
		release: p.release,
	}, nil
}

func (p *Provider) openDB(ctx context.Context) (*bbolt.DB, error) {
	if p.DB != nil {
		return p.DB, nil
	}

	if p.Path == "" {
		return nil, errors.New("no database configured, set either DB or Path")
	}

	return bboltx.Open(ctx, p.Path, p.Mode, p.Options)
}

// release marks a station's data-store as closed, allowing it to be opened
// again.
func (p *Provider) release(station string) error {
	p.m.Lock()
	defer p.m.Unlock()

	delete(p.stations, station)

	if len(p.stations) > 0 {
		return nil
	}

	db := p.db
	p.db = nil

	if db == p.DB {
		return nil
	}

	return db.Close()
}
