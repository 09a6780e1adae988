package bboltx

import (
	"go.etcd.io/bbolt"
)

// Update runs fn inside a read-write transaction and commits it.
//
// Any panic raised by Must() within fn rolls the transaction back and is
// re-raised to the caller, which is expected to use Recover().
func Update(db *bbolt.DB, fn func(tx *bbolt.Tx)) {
	Must(db.Update(func(tx *bbolt.Tx) error {
		fn(tx)
		return nil
	}))
}

// View runs fn inside a read-only transaction.
func View(db *bbolt.DB, fn func(tx *bbolt.Tx)) {
	Must(db.View(func(tx *bbolt.Tx) error {
		fn(tx)
		return nil
	}))
}
