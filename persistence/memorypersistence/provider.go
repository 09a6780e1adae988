package memorypersistence

import (
	"context"
	"sync"

	"github.com/tum-esm/hermes/persistence"
)

// Provider is an implementation of persistence.Provider that stores station
// data in memory.
//
// Data survives closing and re-opening a data-store, but not the provider
// itself. It is intended for testing.
type Provider struct {
	m         sync.Mutex
	databases map[string]*database
}

// Open returns a data-store for a specific station.
//
// Data stores are opened for exclusive use. If the station's data-store is
// already open, ErrDataStoreLocked is returned.
func (p *Provider) Open(_ context.Context, station string) (persistence.DataStore, error) {
	p.m.Lock()
	defer p.m.Unlock()

	if p.databases == nil {
		p.databases = map[string]*database{}
	}

	db, ok := p.databases[station]

	if !ok {
		db = &database{}
		p.databases[station] = db
	}

	if db.TryOpen() {
		return &dataStore{db: db}, nil
	}

	return nil, persistence.ErrDataStoreLocked
}
