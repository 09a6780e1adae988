package boltpersistence

import (
	"context"

	"github.com/tum-esm/hermes/internal/x/bboltx"
	"github.com/tum-esm/hermes/persistence"
	"go.etcd.io/bbolt"
)

var (
	// metaBucketKey is the key for a child bucket that contains scalar values
	// about the station.
	metaBucketKey = []byte("meta")

	// revisionKey is the key within the meta bucket that holds the station's
	// current configuration revision as a 4-byte big-endian integer.
	revisionKey = []byte("revision")
)

// LoadRevision returns the station's current configuration revision.
func (ds *dataStore) LoadRevision(ctx context.Context) (r uint32, err error) {
	err = ds.view(
		ctx,
		"load revision",
		func(root *bbolt.Bucket) {
			if root != nil {
				r = loadRevision(root)
			}
		},
	)

	return r, err
}

// SaveRevision sets the station's current configuration revision.
func (ds *dataStore) SaveRevision(ctx context.Context, r uint32) error {
	return ds.update(
		ctx,
		"save revision",
		func(root *bbolt.Bucket) {
			meta := bboltx.CreateBucketIfNotExists(root, metaBucketKey)
			current := bboltx.GetUint32(meta, revisionKey)

			if r <= current {
				bboltx.Must(&persistence.StaleRevisionError{
					Current:   current,
					Requested: r,
				})
			}

			bboltx.PutUint32(meta, revisionKey, r)
		},
	)
}

// loadRevision returns the revision stored in root, or zero if there is none.
func loadRevision(root *bbolt.Bucket) uint32 {
	return bboltx.GetUint32(
		root.Bucket(metaBucketKey),
		revisionKey,
	)
}
