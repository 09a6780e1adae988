// Package main runs a hermes station, reporting to the backend via MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dogmatiq/dodeca/config"
	"github.com/dogmatiq/dodeca/logging"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"github.com/tum-esm/hermes"
	"github.com/tum-esm/hermes/configuration"
	"github.com/tum-esm/hermes/internal/x/loggingx"
	"github.com/tum-esm/hermes/measurement"
	"github.com/tum-esm/hermes/persistence"
	"github.com/tum-esm/hermes/persistence/boltpersistence"
	"github.com/tum-esm/hermes/persistence/sqlpersistence"
	"github.com/tum-esm/hermes/transport/mqtttransport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// options is the set of command-line flags.
type options struct {
	ConfigPath     string
	Storage        string
	BoltPath       string
	SQLiteDSN      string
	MQTTScheme     string
	MetricsAddress string
	SelfTest       []string
	Simulate       bool
	RestartOnApply bool
	Debug          bool
}

func parseFlags(args []string) (options, error) {
	var opts options

	flags := pflag.NewFlagSet("hermes-station", pflag.ContinueOnError)
	flags.StringVar(&opts.ConfigPath, "config", hermes.DefaultConfigPath, "path to the station's configuration document")
	flags.StringVar(&opts.Storage, "storage", "bolt", `data-store to use, either "bolt" or "sqlite"`)
	flags.StringVar(&opts.BoltPath, "bolt-path", "/var/lib/hermes/hermes.boltdb", "path to the BoltDB data-store")
	flags.StringVar(&opts.SQLiteDSN, "sqlite-dsn", "file:/var/lib/hermes/hermes.sqlite?mode=rwc", "data-source name of the SQLite data-store")
	flags.StringVar(&opts.MQTTScheme, "mqtt-scheme", "ssl", `scheme used to connect to the broker, such as "tcp" or "ssl"`)
	flags.StringVar(&opts.MetricsAddress, "metrics-address", ":9100", "address to serve Prometheus metrics on, empty to disable")
	flags.StringSliceVar(&opts.SelfTest, "self-test", nil, "command used to verify a new configuration")
	flags.BoolVar(&opts.Simulate, "simulate", false, "take measurements using simulated sensors")
	flags.BoolVar(&opts.RestartOnApply, "restart-on-apply", true, "restart the process after a configuration change")
	flags.BoolVar(&opts.Debug, "debug", false, "enable debug logging")

	if err := flags.Parse(args); err != nil {
		return options{}, err
	}

	switch opts.Storage {
	case "bolt", "sqlite":
	default:
		return options{}, fmt.Errorf("unknown storage %q", opts.Storage)
	}

	return opts, nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := run(ctx, os.Args[1:])

	if errors.Is(err, hermes.ErrRestartRequired) {
		err = restart()
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	env, err := loadEnvironment(config.Environment())
	if err != nil {
		return err
	}

	z, err := newZap(opts.Debug)
	if err != nil {
		return err
	}
	defer z.Sync() // nolint:errcheck

	logger := loggingx.Zap(z.With(zap.String("station", env.StationID)))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	stationOptions := []hermes.StationOption{
		hermes.WithPersistence(newProvider(opts)),
		hermes.WithTransport(&mqtttransport.Transport{
			Broker:   env.BrokerURL(opts.MQTTScheme),
			ClientID: env.StationID,
			Username: env.MQTTUsername,
			Password: env.MQTTPassword,
			Logger:   loggingx.WithPrefix(logger, "[mqtt] "),
		}),
		hermes.WithBaseTopic(env.BaseTopic),
		hermes.WithConfigPath(opts.ConfigPath),
		hermes.WithProcedure(&configuration.Installer{
			Path:     opts.ConfigPath,
			SelfTest: opts.SelfTest,
			Logger:   logger,
		}),
		hermes.WithRestartOnApply(opts.RestartOnApply),
		hermes.WithMetrics(reg),
		hermes.WithLogger(logger),
	}

	if opts.Simulate {
		logging.Log(logger, "measuring with simulated sensors")

		stationOptions = append(stationOptions, hermes.WithProducer(&measurement.Procedure{
			Hardware: measurement.NewSimulator(time.Now().UnixNano()).Hardware(),
			Logger:   loggingx.WithPrefix(logger, "[measurement] "),
		}))
	}

	g, ctx := errgroup.WithContext(ctx)

	if opts.MetricsAddress != "" {
		g.Go(func() error {
			return serveMetrics(ctx, opts.MetricsAddress, reg)
		})
	}

	g.Go(func() error {
		return hermes.Run(ctx, env.StationID, stationOptions...)
	})

	return g.Wait()
}

// newZap returns the zap logger that backs the station's log output.
func newZap(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	return cfg.Build()
}

// newProvider returns the persistence provider selected by opts.
func newProvider(opts options) persistence.Provider {
	if opts.Storage == "sqlite" {
		return &sqlpersistence.Provider{
			DriverName: "sqlite3",
			DSN:        opts.SQLiteDSN,
		}
	}

	return &boltpersistence.Provider{
		Path: opts.BoltPath,
	}
}

// serveMetrics serves the metrics in reg over HTTP until ctx is canceled.
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		server.Shutdown(shutdownCtx) // nolint:errcheck
	}()

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}

// restart replaces the current process with a new instance of the station
// binary, which picks up the new configuration and software version.
func restart() error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}

	return syscall.Exec(exe, os.Args, os.Environ())
}
