package memorypersistence

import (
	"sync"

	"github.com/tum-esm/hermes/message"
)

// database is an in-memory collection of a single station's data.
type database struct {
	mutex    sync.RWMutex
	open     bool
	lastID   uint64
	revision uint32

	// messages contains every stored message, in ID order.
	messages []message.Message
}

// TryOpen marks the database as open.
//
// It returns false if it is already open.
func (db *database) TryOpen() bool {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	if db.open {
		return false
	}

	db.open = true
	return true
}

// Close marks the database as closed.
func (db *database) Close() {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	db.open = false
}

// find returns the index of the message with the given ID.
func (db *database) find(id uint64) (int, bool) {
	for i, m := range db.messages {
		if m.Header.ID == id {
			return i, true
		}
	}

	return 0, false
}
