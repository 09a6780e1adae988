package sqlpersistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/tum-esm/hermes/message"
	"github.com/tum-esm/hermes/persistence"
)

// Append adds a new message to the outbound queue.
func (ds *dataStore) Append(
	ctx context.Context,
	b message.Body,
) (m message.Message, err error) {
	// Encode up-front so that malformed bodies are reported as such, rather
	// than as a storage failure.
	if _, err := message.MarshalBody(b); err != nil {
		return message.Message{}, err
	}

	err = ds.withTx(
		ctx,
		"append message",
		func(ctx context.Context, tx *sql.Tx) error {
			r, err := ds.driver.SelectRevision(ctx, tx, ds.station)
			if err != nil {
				return err
			}

			m = message.Message{
				Header: message.Header{
					Status:   message.Pending,
					Revision: r,
					IssuedAt: message.Timestamp(time.Now()),
				},
				Body: b,
			}

			m.Header.ID, err = ds.driver.InsertMessage(ctx, tx, ds.station, m)
			return err
		},
	)

	if err != nil {
		return message.Message{}, err
	}

	return m, nil
}

// UpdateStatus moves a message to a later status.
func (ds *dataStore) UpdateStatus(
	ctx context.Context,
	id uint64,
	s message.Status,
) (m message.Message, err error) {
	err = ds.withTx(
		ctx,
		"update message status",
		func(ctx context.Context, tx *sql.Tx) error {
			var ok bool
			m, ok, err = ds.driver.SelectMessage(ctx, tx, ds.station, id)
			if err != nil {
				return err
			}

			if !ok {
				return persistence.UnknownMessageError{ID: id}
			}

			if !m.Header.Status.Precedes(s) {
				return &persistence.InvalidTransitionError{
					ID:   id,
					From: m.Header.Status,
					To:   s,
				}
			}

			m.Header.Status = s
			if s == message.Delivered {
				m.Header.DeliveredAt = message.Timestamp(time.Now())
			}

			ok, err = ds.driver.UpdateMessageStatus(
				ctx,
				tx,
				ds.station,
				id,
				s,
				m.Header.DeliveredAt,
			)
			if err != nil {
				return err
			}

			if !ok {
				return persistence.UnknownMessageError{ID: id}
			}

			return nil
		},
	)

	if err != nil {
		return message.Message{}, err
	}

	return m, nil
}

// ListPending returns every message that has not been delivered, in ID order.
func (ds *dataStore) ListPending(ctx context.Context) (result []message.Message, err error) {
	err = ds.withTx(
		ctx,
		"list pending messages",
		func(ctx context.Context, tx *sql.Tx) error {
			result, err = ds.driver.SelectPendingMessages(ctx, tx, ds.station)
			return err
		},
	)

	if err != nil {
		return nil, err
	}

	return result, nil
}

// Remove deletes a message from the queue.
func (ds *dataStore) Remove(ctx context.Context, id uint64) error {
	return ds.withTx(
		ctx,
		"remove message",
		func(ctx context.Context, tx *sql.Tx) error {
			ok, err := ds.driver.DeleteMessage(ctx, tx, ds.station, id)
			if err != nil {
				return err
			}

			if !ok {
				return persistence.UnknownMessageError{ID: id}
			}

			return nil
		},
	)
}

// Compact removes messages delivered before the given time.
func (ds *dataStore) Compact(
	ctx context.Context,
	deliveredBefore time.Time,
) (n int, err error) {
	err = ds.withTx(
		ctx,
		"compact messages",
		func(ctx context.Context, tx *sql.Tx) error {
			n, err = ds.driver.DeleteDeliveredMessages(ctx, tx, ds.station, deliveredBefore)
			return err
		},
	)

	if err != nil {
		return 0, err
	}

	return n, nil
}
