package queue

import (
	"context"
	"sync"

	"github.com/dogmatiq/cosyne"
	"github.com/dogmatiq/dodeca/logging"
	"github.com/tum-esm/hermes/internal/mlog"
	"github.com/tum-esm/hermes/message"
	"github.com/tum-esm/hermes/persistence"
)

// Queue is a station's durable outbound message queue.
//
// It is safe to use from any number of goroutines. All access to the
// underlying data-store is serialized, and the lock is never held while
// communicating with the broker.
type Queue struct {
	// DataStore is the data-store that holds the queued messages.
	//
	// It is expected that no messages will be added to the data-store other
	// than via this Queue.
	DataStore persistence.DataStore

	// Logger is the target for log messages about enqueued and dropped
	// messages. If it is nil, logging.DefaultLogger is used.
	Logger logging.Logger

	m     cosyne.Mutex
	once  sync.Once
	ready chan struct{}
}

// Enqueue validates b and appends it to the queue with the pending status.
//
// Messages that fail validation are never left in the queue; the returned
// error is a *message.ValidationError. This includes the header stamped by the
// data-store, so a station clock outside the permitted range is reported to the
// caller. Enqueue returns only once the message is durable.
func (q *Queue) Enqueue(ctx context.Context, b message.Body) (message.Message, error) {
	if err := message.ValidateBody(b); err != nil {
		return message.Message{}, err
	}

	if err := q.m.Lock(ctx); err != nil {
		return message.Message{}, err
	}
	defer q.m.Unlock()

	m, err := q.DataStore.Append(ctx, b)
	if err != nil {
		return message.Message{}, err
	}

	if verr := m.Validate(); verr != nil {
		if err := q.DataStore.Remove(context.WithoutCancel(ctx), m.Header.ID); err != nil {
			return message.Message{}, err
		}

		return message.Message{}, verr
	}

	mlog.LogEnqueue(q.Logger, m)
	q.notify()

	return m, nil
}

// Pending returns every message that has not yet been delivered, oldest
// first.
func (q *Queue) Pending(ctx context.Context) ([]message.Message, error) {
	if err := q.m.Lock(ctx); err != nil {
		return nil, err
	}
	defer q.m.Unlock()

	return q.DataStore.ListPending(ctx)
}

// Advance moves the message with the given ID to status s.
func (q *Queue) Advance(
	ctx context.Context,
	id uint64,
	s message.Status,
) (message.Message, error) {
	if err := q.m.Lock(ctx); err != nil {
		return message.Message{}, err
	}
	defer q.m.Unlock()

	return q.DataStore.UpdateStatus(ctx, id, s)
}

// Drop removes a message that can never be delivered from the queue.
//
// cause is the reason the message can not be delivered. It is logged along
// with the message.
func (q *Queue) Drop(ctx context.Context, m message.Message, cause error) error {
	if err := q.m.Lock(ctx); err != nil {
		return err
	}

	err := q.DataStore.Remove(ctx, m.Header.ID)
	q.m.Unlock()

	if err != nil {
		return err
	}

	mlog.LogDrop(q.Logger, m, cause)

	return nil
}

// Ready returns a channel that receives a value after messages are enqueued.
//
// Signals are coalesced. A receive indicates that there may be pending
// messages, not how many.
func (q *Queue) Ready() <-chan struct{} {
	q.init()
	return q.ready
}

// notify wakes a goroutine waiting on Ready(), if any, without blocking.
func (q *Queue) notify() {
	q.init()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *Queue) init() {
	q.once.Do(func() {
		q.ready = make(chan struct{}, 1)
	})
}
