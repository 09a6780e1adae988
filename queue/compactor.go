package queue

import (
	"context"
	"errors"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/linger"
	"github.com/tum-esm/hermes/persistence"
)

var (
	// DefaultCompactInterval is the default interval at which delivered
	// messages are removed from the data-store.
	DefaultCompactInterval = 1 * time.Hour

	// DefaultCompactTimeout is the default maximum time allowed for a single
	// compaction.
	DefaultCompactTimeout = 1 * time.Minute
)

// Compactor periodically removes delivered messages from a data-store.
type Compactor struct {
	// DataStore is the data-store to compact.
	DataStore persistence.DataStore

	// Interval is the interval at which the data-store is compacted. If it is
	// zero, DefaultCompactInterval is used.
	Interval time.Duration

	// Retention is the time for which delivered messages are kept before they
	// are removed.
	Retention time.Duration

	// Timeout is the maximum time allowed for a single compaction. If it is
	// zero, DefaultCompactTimeout is used.
	Timeout time.Duration

	// Logger is the target for log messages produced about compaction.
	// If it is nil, logging.DefaultLogger is used.
	Logger logging.Logger
}

// Run periodically compacts the data-store until ctx is canceled or an error
// occurs.
func (c *Compactor) Run(ctx context.Context) error {
	for {
		if err := c.compact(ctx); err != nil {
			return err
		}

		if err := linger.Sleep(ctx, c.Interval, DefaultCompactInterval); err != nil {
			return err
		}
	}
}

// compact performs compaction. It returns an error if compaction fails for any
// reason other than a timeout.
func (c *Compactor) compact(ctx context.Context) error {
	parent := ctx

	ctx, cancel := linger.ContextWithTimeout(ctx, c.Timeout, DefaultCompactTimeout)
	defer cancel()

	n, err := c.DataStore.Compact(ctx, time.Now().Add(-c.Retention))
	if err != nil {
		if !errors.Is(err, context.DeadlineExceeded) || parent.Err() != nil {
			return err
		}

		// The compaction itself timed out, which is allowed.
		logging.Log(c.Logger, "compaction timed out, retrying later")
		return nil
	}

	if n > 0 {
		logging.Log(c.Logger, "compaction removed %d delivered message(s)", n)
	} else {
		logging.Debug(c.Logger, "compaction completed, nothing to remove")
	}

	return nil
}
