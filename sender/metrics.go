package sender

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
)

// Metrics is a set of Prometheus metrics that describe the progress of a
// Sender.
type Metrics struct {
	Published         prometheus.Counter
	Delivered         prometheus.Counter
	Dropped           prometheus.Counter
	TransientFailures prometheus.Counter
	Pending           prometheus.Gauge
}

// NewMetrics returns a new set of metrics for a station's sender, registered
// with r.
func NewMetrics(r prometheus.Registerer, station string) (*Metrics, error) {
	labels := prometheus.Labels{"station": station}

	m := &Metrics{
		Published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "hermes",
			Subsystem:   "sender",
			Name:        "published_total",
			Help:        "Total number of publish attempts accepted by the transport.",
			ConstLabels: labels,
		}),
		Delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "hermes",
			Subsystem:   "sender",
			Name:        "delivered_total",
			Help:        "Total number of messages acknowledged by the broker.",
			ConstLabels: labels,
		}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "hermes",
			Subsystem:   "sender",
			Name:        "dropped_total",
			Help:        "Total number of malformed messages removed from the queue.",
			ConstLabels: labels,
		}),
		TransientFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "hermes",
			Subsystem:   "sender",
			Name:        "transient_failures_total",
			Help:        "Total number of failed connection, publish or acknowledgment attempts.",
			ConstLabels: labels,
		}),
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "hermes",
			Subsystem:   "sender",
			Name:        "pending_messages",
			Help:        "Number of messages that have not been delivered.",
			ConstLabels: labels,
		}),
	}

	var err error
	for _, c := range []prometheus.Collector{
		m.Published,
		m.Delivered,
		m.Dropped,
		m.TransientFailures,
		m.Pending,
	} {
		err = multierr.Append(err, r.Register(c))
	}

	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) published() {
	if m != nil {
		m.Published.Inc()
	}
}

func (m *Metrics) delivered() {
	if m != nil {
		m.Delivered.Inc()
	}
}

func (m *Metrics) dropped() {
	if m != nil {
		m.Dropped.Inc()
	}
}

func (m *Metrics) transientFailure() {
	if m != nil {
		m.TransientFailures.Inc()
	}
}

func (m *Metrics) pending(n int) {
	if m != nil {
		m.Pending.Set(float64(n))
	}
}
