package sender

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/linger"
	"github.com/dogmatiq/linger/backoff"
	"github.com/tum-esm/hermes/internal/mlog"
	"github.com/tum-esm/hermes/message"
	"github.com/tum-esm/hermes/queue"
	"github.com/tum-esm/hermes/transport"
)

var (
	// DefaultBackoffStrategy is the default strategy used to delay retries
	// after a transient failure.
	DefaultBackoffStrategy backoff.Strategy = backoff.WithTransforms(
		backoff.Exponential(time.Second),
		linger.FullJitter,
		linger.Limiter(0, 5*time.Minute),
	)

	// DefaultRetryInterval is the default interval at which an idle sender
	// re-checks the queue for pending messages.
	DefaultRetryInterval = 30 * time.Second

	// DefaultAckTimeout is the default maximum time to wait for the broker to
	// acknowledge a published message.
	DefaultAckTimeout = 10 * time.Second
)

// ErrAlreadyRunning is returned by Sender.Run() if the sender is already
// running.
var ErrAlreadyRunning = errors.New("sender is already running")

// Sender publishes the messages in a station's outbound queue to the broker,
// oldest first.
type Sender struct {
	// Queue is the queue of messages to publish.
	Queue *queue.Queue

	// Transport is the connection to the broker. It is owned by the sender;
	// nothing else may publish via this transport.
	Transport transport.Transport

	// Topics is the set of topics that messages are published to.
	Topics transport.Topics

	// BackoffStrategy is the strategy used to delay reconnects and retries. If
	// it is nil, DefaultBackoffStrategy is used.
	BackoffStrategy backoff.Strategy

	// RetryInterval is the interval at which the queue is re-checked while
	// idle. If it is zero, DefaultRetryInterval is used.
	RetryInterval time.Duration

	// AckTimeout is the maximum time to wait for the broker to acknowledge a
	// published message. If it is zero, DefaultAckTimeout is used.
	AckTimeout time.Duration

	// Logger is the target for log messages. If it is nil,
	// logging.DefaultLogger is used.
	Logger logging.Logger

	// Metrics is an optional set of metrics to update.
	Metrics *Metrics

	running  uint32
	failures uint
}

// Run publishes messages until ctx is canceled or a fatal error occurs.
//
// Transient transport failures are retried indefinitely. Messages that fail
// validation are dropped. Any other error, including a failure of the
// underlying data-store, is returned.
func (s *Sender) Run(ctx context.Context) error {
	if !atomic.CompareAndSwapUint32(&s.running, 0, 1) {
		return ErrAlreadyRunning
	}
	defer atomic.StoreUint32(&s.running, 0)

	s.failures = 0

	for {
		if err := s.tick(ctx); err != nil {
			return err
		}
	}
}

// tick publishes pending messages until the queue is empty or a message can
// not be delivered.
func (s *Sender) tick(ctx context.Context) error {
	pending, err := s.Queue.Pending(ctx)
	if err != nil {
		return err
	}

	s.Metrics.pending(len(pending))

	if len(pending) == 0 {
		return s.wait(ctx)
	}

	if err := s.connect(ctx); err != nil {
		return err
	}

	for _, m := range pending {
		err := s.send(ctx, m)

		var terr *transport.TransientError
		if !errors.As(err, &terr) {
			if err != nil {
				return err
			}

			s.failures = 0
			continue
		}

		// Wait before retrying, then start again from the oldest pending
		// message, which is this one.
		s.failures++
		s.Metrics.transientFailure()

		d := s.strategy()(err, s.failures)
		mlog.LogPublishError(s.Logger, m, err, d)

		return linger.Sleep(ctx, d)
	}

	return nil
}

// wait blocks until a message is enqueued, the retry interval elapses, or ctx
// is canceled.
func (s *Sender) wait(ctx context.Context) error {
	d := s.RetryInterval
	if d == 0 {
		d = DefaultRetryInterval
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.Queue.Ready():
		return nil
	case <-timer.C:
		return nil
	}
}

// connect establishes a connection to the broker if there is not one
// already, backing off between attempts.
func (s *Sender) connect(ctx context.Context) error {
	counter := backoff.Counter{
		Strategy: s.strategy(),
	}

	for !s.Transport.IsConnected() {
		err := s.Transport.Connect(ctx)
		if err == nil {
			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.Metrics.transientFailure()
		logging.Log(s.Logger, "%s unable to connect to the broker: %s", mlog.ErrorIcon, err)

		if err := counter.Sleep(ctx, err); err != nil {
			return err
		}
	}

	return nil
}

// send publishes a single message and waits for the broker to acknowledge it.
//
// It returns a *transport.TransientError if the message should be retried.
func (s *Sender) send(ctx context.Context, m message.Message) error {
	// Status changes are made even if ctx is canceled, so that an
	// acknowledgment that has already arrived is recorded.
	storeCtx := context.WithoutCancel(ctx)

	payload, err := encode(m)
	if err != nil {
		var verr *message.ValidationError
		if !errors.As(err, &verr) {
			return err
		}

		if err := s.Queue.Drop(storeCtx, m, err); err != nil {
			return err
		}

		s.Metrics.dropped()

		return nil
	}

	// Don't start another publish once shutdown has begun.
	if err := ctx.Err(); err != nil {
		return err
	}

	topic := s.Topics.For(m.Body)
	mlog.LogPublish(s.Logger, m, topic, s.failures)

	ack, err := s.Transport.Publish(ctx, topic, payload)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		return transport.Transient("publish", err)
	}

	s.Metrics.published()

	if m.Header.Status == message.Pending {
		m, err = s.Queue.Advance(storeCtx, m.Header.ID, message.Sent)
		if err != nil {
			return err
		}
	}

	timeout := s.AckTimeout
	if timeout == 0 {
		timeout = DefaultAckTimeout
	}

	ackCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := ack.Wait(ackCtx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		return transport.Transient("await acknowledgment", err)
	}

	m, err = s.Queue.Advance(storeCtx, m.Header.ID, message.Delivered)
	if err != nil {
		return err
	}

	s.Metrics.delivered()
	mlog.LogDelivered(s.Logger, m)

	return nil
}

func (s *Sender) strategy() backoff.Strategy {
	if s.BackoffStrategy != nil {
		return s.BackoffStrategy
	}

	return DefaultBackoffStrategy
}

// encode validates m and returns its wire representation.
func encode(m message.Message) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	return json.Marshal(m)
}
