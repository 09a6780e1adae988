package hermes

import (
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/linger/backoff"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tum-esm/hermes/configuration"
	"github.com/tum-esm/hermes/persistence"
	"github.com/tum-esm/hermes/persistence/boltpersistence"
	"github.com/tum-esm/hermes/queue"
	"github.com/tum-esm/hermes/sender"
	"github.com/tum-esm/hermes/transport"
)

var (
	// DefaultPersistenceProvider is the default persistence provider.
	//
	// It is overridden by the WithPersistence() option.
	DefaultPersistenceProvider persistence.Provider = &boltpersistence.Provider{
		Path: "/var/lib/hermes/hermes.boltdb",
	}

	// DefaultBaseTopic is the default prefix of the topics used to
	// communicate with the backend.
	//
	// It is overridden by the WithBaseTopic() option.
	DefaultBaseTopic = ""

	// DefaultConfigPath is the default location of the station's
	// configuration document.
	//
	// It is overridden by the WithConfigPath() option.
	DefaultConfigPath = "/etc/hermes/config.json"

	// DefaultRetention is the default time for which delivered messages are
	// kept in the data-store.
	//
	// It is overridden by the WithRetention() option.
	DefaultRetention = 7 * 24 * time.Hour

	// DefaultLogger is the default target for log messages produced by the
	// station.
	//
	// It is overridden by the WithLogger() option.
	DefaultLogger = logging.DefaultLogger
)

// StationOption configures the behavior of a station.
type StationOption func(*stationOptions)

// WithPersistence returns a station option that sets the persistence provider
// used to store the outbound queue and the configuration revision.
//
// If this option is omitted or p is nil, DefaultPersistenceProvider is used.
func WithPersistence(p persistence.Provider) StationOption {
	return func(opts *stationOptions) {
		opts.PersistenceProvider = p
	}
}

// WithTransport returns a station option that sets the transport used to
// communicate with the broker.
//
// This option is required. The station takes ownership of t and closes it when
// Run() returns.
func WithTransport(t transport.Transport) StationOption {
	return func(opts *stationOptions) {
		opts.Transport = t
	}
}

// WithBaseTopic returns a station option that sets the prefix of the topics
// used to communicate with the backend.
//
// If this option is omitted, DefaultBaseTopic is used.
func WithBaseTopic(base string) StationOption {
	return func(opts *stationOptions) {
		opts.BaseTopic = &base
	}
}

// WithConfigPath returns a station option that sets the location of the
// station's configuration document.
//
// If this option is omitted or path is empty, DefaultConfigPath is used.
func WithConfigPath(path string) StationOption {
	return func(opts *stationOptions) {
		opts.ConfigPath = path
	}
}

// WithProcedure returns a station option that sets the procedure used to apply
// configuration changes.
//
// If this option is omitted or p is nil, a configuration.Installer that writes
// to the configuration document is used.
func WithProcedure(p configuration.Procedure) StationOption {
	return func(opts *stationOptions) {
		opts.Procedure = p
	}
}

// WithBackoffStrategy returns a station option that sets the strategy used to
// delay reconnects and publish retries.
//
// If this option is omitted or s is nil, sender.DefaultBackoffStrategy is
// used.
func WithBackoffStrategy(s backoff.Strategy) StationOption {
	return func(opts *stationOptions) {
		opts.BackoffStrategy = s
	}
}

// WithRetryInterval returns a station option that sets the interval at which
// an idle sender re-checks the outbound queue.
//
// If this option is omitted or d is zero, sender.DefaultRetryInterval is used.
func WithRetryInterval(d time.Duration) StationOption {
	if d < 0 {
		panic("duration must not be negative")
	}

	return func(opts *stationOptions) {
		opts.RetryInterval = d
	}
}

// WithAckTimeout returns a station option that sets the maximum time to wait
// for the broker to acknowledge a published message.
//
// If this option is omitted or d is zero, sender.DefaultAckTimeout is used.
func WithAckTimeout(d time.Duration) StationOption {
	if d < 0 {
		panic("duration must not be negative")
	}

	return func(opts *stationOptions) {
		opts.AckTimeout = d
	}
}

// WithCompactInterval returns a station option that sets the interval at
// which delivered messages are removed from the data-store.
//
// If this option is omitted or d is zero, queue.DefaultCompactInterval is
// used.
func WithCompactInterval(d time.Duration) StationOption {
	if d < 0 {
		panic("duration must not be negative")
	}

	return func(opts *stationOptions) {
		opts.CompactInterval = d
	}
}

// WithRetention returns a station option that sets the time for which
// delivered messages are kept in the data-store.
//
// If this option is omitted or d is zero, DefaultRetention is used.
func WithRetention(d time.Duration) StationOption {
	if d < 0 {
		panic("duration must not be negative")
	}

	return func(opts *stationOptions) {
		opts.Retention = d
	}
}

// WithProducer returns a station option that adds a producer of outbound
// messages, such as a measurement procedure.
func WithProducer(p Producer) StationOption {
	return func(opts *stationOptions) {
		opts.Producers = append(opts.Producers, p)
	}
}

// WithRestartOnApply returns a station option that causes Run() to return
// ErrRestartRequired after a configuration change has been applied.
//
// This allows the station software to be replaced as part of a configuration
// change.
func WithRestartOnApply(restart bool) StationOption {
	return func(opts *stationOptions) {
		opts.RestartOnApply = restart
	}
}

// WithMetrics returns a station option that registers the station's metrics
// with r.
//
// If this option is omitted or r is nil, no metrics are collected.
func WithMetrics(r prometheus.Registerer) StationOption {
	return func(opts *stationOptions) {
		opts.Registerer = r
	}
}

// WithLogger returns a station option that sets the target for log messages
// produced by the station.
//
// If this option is omitted or l is nil DefaultLogger is used.
func WithLogger(l logging.Logger) StationOption {
	return func(opts *stationOptions) {
		opts.Logger = l
	}
}

// stationOptions is a container for a fully-resolved set of station options.
type stationOptions struct {
	PersistenceProvider persistence.Provider
	Transport           transport.Transport
	BaseTopic           *string
	ConfigPath          string
	Procedure           configuration.Procedure
	BackoffStrategy     backoff.Strategy
	RetryInterval       time.Duration
	AckTimeout          time.Duration
	CompactInterval     time.Duration
	Retention           time.Duration
	Producers           []Producer
	RestartOnApply      bool
	Registerer          prometheus.Registerer
	Logger              logging.Logger
}

// resolveStationOptions returns a fully-populated set of station options built
// from the given set of option functions.
func resolveStationOptions(options ...StationOption) *stationOptions {
	opts := &stationOptions{}

	for _, o := range options {
		o(opts)
	}

	if opts.Transport == nil {
		panic("no transport configured, see hermes.WithTransport()")
	}

	if opts.PersistenceProvider == nil {
		opts.PersistenceProvider = DefaultPersistenceProvider
	}

	if opts.BaseTopic == nil {
		base := DefaultBaseTopic
		opts.BaseTopic = &base
	}

	if opts.ConfigPath == "" {
		opts.ConfigPath = DefaultConfigPath
	}

	if opts.BackoffStrategy == nil {
		opts.BackoffStrategy = sender.DefaultBackoffStrategy
	}

	if opts.RetryInterval == 0 {
		opts.RetryInterval = sender.DefaultRetryInterval
	}

	if opts.AckTimeout == 0 {
		opts.AckTimeout = sender.DefaultAckTimeout
	}

	if opts.CompactInterval == 0 {
		opts.CompactInterval = queue.DefaultCompactInterval
	}

	if opts.Retention == 0 {
		opts.Retention = DefaultRetention
	}

	if opts.Logger == nil {
		opts.Logger = DefaultLogger
	}

	if opts.Procedure == nil {
		opts.Procedure = &configuration.Installer{
			Path:   opts.ConfigPath,
			Logger: opts.Logger,
		}
	}

	return opts
}
