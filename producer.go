package hermes

import (
	"context"

	"github.com/tum-esm/hermes/configuration"
	"github.com/tum-esm/hermes/queue"
)

// Producer generates messages for a station's outbound queue.
type Producer interface {
	// Produce adds messages to q until ctx is canceled or a fatal error
	// occurs.
	//
	// r is used to report operational problems to the backend. config returns
	// the configuration that is currently in force.
	Produce(
		ctx context.Context,
		q *queue.Queue,
		r *queue.Reporter,
		config func() configuration.Config,
	) error
}

// ProducerFunc is an adaptor to allow the use of an ordinary function as a
// Producer.
type ProducerFunc func(
	ctx context.Context,
	q *queue.Queue,
	r *queue.Reporter,
	config func() configuration.Config,
) error

// Produce calls fn(ctx, q, r, config).
func (fn ProducerFunc) Produce(
	ctx context.Context,
	q *queue.Queue,
	r *queue.Reporter,
	config func() configuration.Config,
) error {
	return fn(ctx, q, r, config)
}
