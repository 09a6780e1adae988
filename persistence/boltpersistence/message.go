package boltpersistence

import (
	"context"
	"time"

	"github.com/tum-esm/hermes/internal/x/bboltx"
	"github.com/tum-esm/hermes/internal/x/cborx"
	"github.com/tum-esm/hermes/message"
	"github.com/tum-esm/hermes/persistence"
	"go.etcd.io/bbolt"
)

var (
	// messagesBucketKey is the key for a child bucket that contains every
	// stored message.
	//
	// The keys are message IDs, encoded using bboltx.Uint64Key(). The values
	// are records encoded using CBOR. The bucket's sequence is the last
	// assigned message ID.
	messagesBucketKey = []byte("messages")

	// pendingBucketKey is the key for a child bucket that indexes the messages
	// that have not been delivered.
	//
	// The keys are message IDs, encoded using bboltx.Uint64Key(). The values
	// are always empty.
	pendingBucketKey = []byte("pending")
)

// record is the persisted representation of a message.
type record struct {
	Status      message.Status `cbor:"1,keyasint"`
	Revision    uint32         `cbor:"2,keyasint"`
	Kind        message.Kind   `cbor:"3,keyasint"`
	Body        []byte         `cbor:"4,keyasint"`
	IssuedAt    int64          `cbor:"5,keyasint"`
	DeliveredAt int64          `cbor:"6,keyasint,omitempty"`
}

// Append adds a new message to the outbound queue.
func (ds *dataStore) Append(
	ctx context.Context,
	b message.Body,
) (m message.Message, err error) {
	body, err := message.MarshalBody(b)
	if err != nil {
		return message.Message{}, err
	}

	err = ds.update(
		ctx,
		"append message",
		func(root *bbolt.Bucket) {
			messages := bboltx.CreateBucketIfNotExists(root, messagesBucketKey)
			pending := bboltx.CreateBucketIfNotExists(root, pendingBucketKey)

			m = message.Message{
				Header: message.Header{
					ID:       bboltx.NextSequence(messages),
					Status:   message.Pending,
					Revision: loadRevision(root),
					IssuedAt: message.Timestamp(time.Now()),
				},
				Body: b,
			}

			k := bboltx.Uint64Key(m.Header.ID)
			saveRecord(messages, k, m.Header, b.Kind(), body)
			bboltx.Put(pending, k, nil)
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
	err = ds.update(
		ctx,
		"update message status",
		func(root *bbolt.Bucket) {
			messages := bboltx.CreateBucketIfNotExists(root, messagesBucketKey)
			k := bboltx.Uint64Key(id)

			rec, ok := loadRecord(messages, k)
			if !ok {
				bboltx.Must(persistence.UnknownMessageError{ID: id})
			}

			if !rec.Status.Precedes(s) {
				bboltx.Must(&persistence.InvalidTransitionError{
					ID:   id,
					From: rec.Status,
					To:   s,
				})
			}

			m = unmarshalMessage(id, rec)
			m.Header.Status = s

			if s == message.Delivered {
				m.Header.DeliveredAt = message.Timestamp(time.Now())
				bboltx.Delete(
					bboltx.CreateBucketIfNotExists(root, pendingBucketKey),
					k,
				)
			}

			saveRecord(messages, k, m.Header, rec.Kind, rec.Body)
		},
	)

	if err != nil {
		return message.Message{}, err
	}

	return m, nil
}

// ListPending returns every message that has not been delivered, in ID order.
func (ds *dataStore) ListPending(ctx context.Context) (result []message.Message, err error) {
	err = ds.view(
		ctx,
		"list pending messages",
		func(root *bbolt.Bucket) {
			if root == nil {
				return
			}

			pending := root.Bucket(pendingBucketKey)
			messages := root.Bucket(messagesBucketKey)
			if pending == nil || messages == nil {
				return
			}

			cur := pending.Cursor()
			for k, _ := cur.First(); k != nil; k, _ = cur.Next() {
				rec, ok := loadRecord(messages, k)
				if !ok {
					continue
				}

				result = append(
					result,
					unmarshalMessage(bboltx.ParseUint64Key(k), rec),
				)
			}
		},
	)

	if err != nil {
		return nil, err
	}

	return result, nil
}

// Remove deletes a message from the queue.
func (ds *dataStore) Remove(ctx context.Context, id uint64) error {
	return ds.update(
		ctx,
		"remove message",
		func(root *bbolt.Bucket) {
			messages := bboltx.CreateBucketIfNotExists(root, messagesBucketKey)
			k := bboltx.Uint64Key(id)

			if messages.Get(k) == nil {
				bboltx.Must(persistence.UnknownMessageError{ID: id})
			}

			bboltx.Delete(messages, k)
			bboltx.Delete(
				bboltx.CreateBucketIfNotExists(root, pendingBucketKey),
				k,
			)
		},
	)
}

// Compact removes messages delivered before the given time.
func (ds *dataStore) Compact(
	ctx context.Context,
	deliveredBefore time.Time,
) (n int, err error) {
	threshold := deliveredBefore.UnixMilli()

	err = ds.update(
		ctx,
		"compact messages",
		func(root *bbolt.Bucket) {
			messages := root.Bucket(messagesBucketKey)
			if messages == nil {
				return
			}

			var keys [][]byte

			cur := messages.Cursor()
			for k, v := cur.First(); k != nil; k, v = cur.Next() {
				rec := unmarshalRecord(v)

				if rec.Status == message.Delivered && rec.DeliveredAt < threshold {
					// Deleting while iterating skips entries.
					keys = append(keys, k)
				}
			}

			for _, k := range keys {
				bboltx.Delete(messages, k)
			}

			n = len(keys)
		},
	)

	if err != nil {
		return 0, err
	}

	return n, nil
}

// saveRecord writes a message's record to the messages bucket.
func saveRecord(
	messages *bbolt.Bucket,
	k []byte,
	h message.Header,
	kind message.Kind,
	body []byte,
) {
	rec := record{
		Status:   h.Status,
		Revision: h.Revision,
		Kind:     kind,
		Body:     body,
		IssuedAt: h.IssuedAt.UnixMilli(),
	}

	if !h.DeliveredAt.IsZero() {
		rec.DeliveredAt = h.DeliveredAt.UnixMilli()
	}

	data, err := cborx.Marshal(rec)
	bboltx.Must(err)

	bboltx.Put(messages, k, data)
}

// loadRecord reads a message's record from the messages bucket.
func loadRecord(messages *bbolt.Bucket, k []byte) (record, bool) {
	data := messages.Get(k)
	if data == nil {
		return record{}, false
	}

	return unmarshalRecord(data), true
}

func unmarshalRecord(data []byte) record {
	var rec record
	bboltx.Must(cborx.Unmarshal(data, &rec))
	return rec
}

// unmarshalMessage builds a message from its persisted record.
func unmarshalMessage(id uint64, rec record) message.Message {
	body, err := message.UnmarshalBody(rec.Kind, rec.Body)
	bboltx.Must(err)

	m := message.Message{
		Header: message.Header{
			ID:       id,
			Status:   rec.Status,
			Revision: rec.Revision,
			IssuedAt: time.UnixMilli(rec.IssuedAt).UTC(),
		},
		Body: body,
	}

	if rec.DeliveredAt != 0 {
		m.Header.DeliveredAt = time.UnixMilli(rec.DeliveredAt).UTC()
	}

	return m
}
