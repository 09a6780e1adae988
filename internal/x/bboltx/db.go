package bboltx

import (
	"context"
	"errors"
	"os"

	"github.com/dogmatiq/linger"
	"go.etcd.io/bbolt"
)

// Open creates and opens a database at the given path.
//
// If mode is zero, 0600 is used.
//
// BoltDB holds an exclusive file lock while the database is open. If another
// process already holds it, Open blocks until the lock is released, ctx's
// deadline passes or opts.Timeout elapses, whichever comes first. A lock
// timeout is reported as context.DeadlineExceeded.
func Open(
	ctx context.Context,
	path string,
	mode os.FileMode,
	opts *bbolt.Options,
) (*bbolt.DB, error) {
	if mode == 0 {
		mode = 0600
	}

	// A non-positive timeout would make BoltDB wait forever, so an already
	// ended context must be caught here.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if timeout, ok := linger.FromContextDeadline(ctx); ok {
		var clone bbolt.Options
		if opts == nil {
			clone = *bbolt.DefaultOptions
		} else {
			clone = *opts
		}

		if clone.Timeout == 0 || clone.Timeout > timeout {
			clone.Timeout = timeout
		}

		opts = &clone
	}

	db, err := bbolt.Open(path, mode, opts)
	if errors.Is(err, bbolt.ErrTimeout) {
		return nil, context.DeadlineExceeded
	}

	return db, err
}
