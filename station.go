package hermes

import (
	"context"
	"errors"
	"fmt"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/tum-esm/hermes/configuration"
	"github.com/tum-esm/hermes/internal/mlog"
	"github.com/tum-esm/hermes/internal/x/loggingx"
	"github.com/tum-esm/hermes/queue"
	"github.com/tum-esm/hermes/sender"
	"github.com/tum-esm/hermes/transport"
	"golang.org/x/sync/errgroup"
)

// ErrRestartRequired is returned by Station.Run() when a configuration change
// has been applied and the station was configured with
// WithRestartOnApply(true).
var ErrRestartRequired = errors.New("configuration changed, restart required")

// requestBufferSize is the number of configuration requests that may be
// received while a previous request is still being applied.
const requestBufferSize = 16

// Station is a sensor station that reports to the backend via a message
// broker.
type Station struct {
	id   string
	opts *stationOptions
}

// New returns a new station with the given identifier.
func New(id string, options ...StationOption) *Station {
	return &Station{
		id:   id,
		opts: resolveStationOptions(options...),
	}
}

// Run runs the station until ctx is canceled or an error occurs.
func Run(ctx context.Context, id string, options ...StationOption) error {
	return New(id, options...).Run(ctx)
}

// Run runs the station until ctx is canceled or an error occurs.
//
// Messages that have not been delivered when Run() returns remain in the
// data-store and are sent the next time the station runs.
func (s *Station) Run(ctx context.Context) error {
	defer s.opts.Transport.Close()

	topics, err := transport.NewTopics(*s.opts.BaseTopic, s.id)
	if err != nil {
		return err
	}

	ds, err := s.opts.PersistenceProvider.Open(ctx, s.id)
	if err != nil {
		return fmt.Errorf(
			"unable to open data-store for station %s: %w",
			s.id,
			err,
		)
	}
	defer ds.Close()

	restored, err := configuration.RecoverBackup(s.opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("unable to recover configuration backup: %w", err)
	}

	q := &queue.Queue{
		DataStore: ds,
		Logger:    s.opts.Logger,
	}

	r := &queue.Reporter{
		Queue:  q,
		Logger: s.opts.Logger,
	}

	gate := &configuration.Gate{
		DataStore: ds,
		Reporter:  r,
		Procedure: s.opts.Procedure,
		Path:      s.opts.ConfigPath,
		Logger:    s.opts.Logger,
	}

	cfg, err := gate.Load(ctx)
	if err != nil {
		return fmt.Errorf("unable to load configuration: %w", err)
	}

	if restored {
		if err := r.Warning(
			ctx,
			"configuration restored",
			fmt.Sprintf(
				"an interrupted configuration change was undone, continuing with revision %d",
				cfg.Revision,
			),
		); err != nil {
			return err
		}
	}

	logging.Log(
		s.opts.Logger,
		"%s station %s running configuration revision %d, version %s",
		mlog.SystemIcon,
		s.id,
		gate.Revision(),
		cfg.Version,
	)

	requests := make(chan []byte, requestBufferSize)

	if err := s.opts.Transport.Subscribe(
		ctx,
		topics.Config(),
		func(payload []byte) {
			select {
			case requests <- payload:
			default:
				logging.Log(
					s.opts.Logger,
					"%s configuration request discarded, too many requests are pending",
					mlog.ErrorIcon,
				)
			}
		},
	); err != nil {
		return fmt.Errorf("unable to subscribe to %s: %w", topics.Config(), err)
	}

	var metrics *sender.Metrics
	if s.opts.Registerer != nil {
		metrics, err = sender.NewMetrics(s.opts.Registerer, s.id)
		if err != nil {
			return err
		}
	}

	parent := ctx
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		snd := &sender.Sender{
			Queue:           q,
			Transport:       s.opts.Transport,
			Topics:          topics,
			BackoffStrategy: s.opts.BackoffStrategy,
			RetryInterval:   s.opts.RetryInterval,
			AckTimeout:      s.opts.AckTimeout,
			Logger:          s.opts.Logger,
			Metrics:         metrics,
		}

		return snd.Run(ctx)
	})

	g.Go(func() error {
		return s.control(ctx, gate, requests)
	})

	g.Go(func() error {
		c := &queue.Compactor{
			DataStore: ds,
			Interval:  s.opts.CompactInterval,
			Retention: s.opts.Retention,
			Logger:    loggingx.WithPrefix(s.opts.Logger, "[compactor] "),
		}

		return c.Run(ctx)
	})

	for _, p := range s.opts.Producers {
		p := p

		g.Go(func() error {
			return p.Produce(ctx, q, r, gate.Current)
		})
	}

	err = g.Wait()

	if parent.Err() != nil {
		return parent.Err()
	}

	return err
}

// control applies configuration requests in the order they are received.
func (s *Station) control(
	ctx context.Context,
	gate *configuration.Gate,
	requests <-chan []byte,
) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload := <-requests:
			ok, err := gate.Handle(ctx, payload)

			var aerr *configuration.ConfigApplyError
			if errors.As(err, &aerr) {
				// The failure has already been reported and the previous
				// configuration remains in force.
				continue
			}

			if err != nil {
				return err
			}

			if ok && s.opts.RestartOnApply {
				return ErrRestartRequired
			}
		}
	}
}

// ID returns the station's identifier.
func (s *Station) ID() string {
	return s.id
}
