package memorypersistence

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/tum-esm/hermes/message"
	"github.com/tum-esm/hermes/persistence"
)

// dataStore is an implementation of persistence.DataStore that stores data in
// memory.
type dataStore struct {
	db     *database
	closed atomic.Bool
}

// Append adds a new message to the outbound queue.
func (ds *dataStore) Append(
	ctx context.Context,
	b message.Body,
) (message.Message, error) {
	if err := ds.check(ctx); err != nil {
		return message.Message{}, err
	}

	// Encoding the body catches the same errors that a durable store would
	// report.
	if _, err := message.MarshalBody(b); err != nil {
		return message.Message{}, err
	}

	ds.db.mutex.Lock()
	defer ds.db.mutex.Unlock()

	ds.db.lastID++

	m := message.Message{
		Header: message.Header{
			ID:       ds.db.lastID,
			Status:   message.Pending,
			Revision: ds.db.revision,
			IssuedAt: message.Timestamp(time.Now()),
		},
		Body: b,
	}

	ds.db.messages = append(ds.db.messages, m)

	return m, nil
}

// UpdateStatus moves a message to a later status.
func (ds *dataStore) UpdateStatus(
	ctx context.Context,
	id uint64,
	s message.Status,
) (message.Message, error) {
	if err := ds.check(ctx); err != nil {
		return message.Message{}, err
	}

	ds.db.mutex.Lock()
	defer ds.db.mutex.Unlock()

	i, ok := ds.db.find(id)
	if !ok {
		return message.Message{}, persistence.UnknownMessageError{ID: id}
	}

	m := ds.db.messages[i]

	if !m.Header.Status.Precedes(s) {
		return message.Message{}, &persistence.InvalidTransitionError{
			ID:   id,
			From: m.Header.Status,
			To:   s,
		}
	}

	m.Header.Status = s
	if s == message.Delivered {
		m.Header.DeliveredAt = message.Timestamp(time.Now())
	}

	ds.db.messages[i] = m

	return m, nil
}

// ListPending returns every message that has not been delivered.
func (ds *dataStore) ListPending(ctx context.Context) ([]message.Message, error) {
	if err := ds.check(ctx); err != nil {
		return nil, err
	}

	ds.db.mutex.RLock()
	defer ds.db.mutex.RUnlock()

	var result []message.Message

	for _, m := range ds.db.messages {
		if m.Header.Status != message.Delivered {
			result = append(result, m)
		}
	}

	return result, nil
}

// Remove deletes a message from the queue.
func (ds *dataStore) Remove(ctx context.Context, id uint64) error {
	if err := ds.check(ctx); err != nil {
		return err
	}

	ds.db.mutex.Lock()
	defer ds.db.mutex.Unlock()

	i, ok := ds.db.find(id)
	if !ok {
		return persistence.UnknownMessageError{ID: id}
	}

	ds.db.messages = append(ds.db.messages[:i], ds.db.messages[i+1:]...)

	return nil
}

// LoadRevision returns the station's current configuration revision.
func (ds *dataStore) LoadRevision(ctx context.Context) (uint32, error) {
	if err := ds.check(ctx); err != nil {
		return 0, err
	}

	ds.db.mutex.RLock()
	defer ds.db.mutex.RUnlock()

	return ds.db.revision, nil
}

// SaveRevision sets the station's current configuration revision.
func (ds *dataStore) SaveRevision(ctx context.Context, r uint32) error {
	if err := ds.check(ctx); err != nil {
		return err
	}

	ds.db.mutex.Lock()
	defer ds.db.mutex.Unlock()

	if r <= ds.db.revision {
		return &persistence.StaleRevisionError{
			Current:   ds.db.revision,
			Requested: r,
		}
	}

	ds.db.revision = r

	return nil
}

// Compact removes messages delivered before the given time.
func (ds *dataStore) Compact(ctx context.Context, deliveredBefore time.Time) (int, error) {
	if err := ds.check(ctx); err != nil {
		return 0, err
	}

	ds.db.mutex.Lock()
	defer ds.db.mutex.Unlock()

	kept := ds.db.messages[:0]
	n := 0

	for _, m := range ds.db.messages {
		if m.Header.Status == message.Delivered &&
			m.Header.DeliveredAt.Before(deliveredBefore) {
			n++
			continue
		}

		kept = append(kept, m)
	}

	ds.db.messages = kept

	return n, nil
}

// Close closes the data store.
func (ds *dataStore) Close() error {
	if !ds.closed.CompareAndSwap(false, true) {
		return persistence.ErrDataStoreClosed
	}

	ds.db.Close()

	return nil
}

// check returns an error if the data-store is closed or ctx is done.
func (ds *dataStore) check(ctx context.Context) error {
	if ds.closed.Load() {
		return persistence.ErrDataStoreClosed
	}

	return ctx.Err()
}
