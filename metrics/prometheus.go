// Package metrics exports server events as Prometheus metrics.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "memkv"

// Prometheus implements server.Metrics through method set compatibility,
// without importing the server package.
type Prometheus struct {
	commandsTotal     *prometheus.CounterVec
	commandDuration   *prometheus.HistogramVec
	connectionsActive prometheus.Gauge
	connectionsTotal  prometheus.Counter
	protocolErrors    prometheus.Counter
	reg               prometheus.Registerer
}

// NewPrometheus creates the collectors and registers them on reg, or on the
// default registerer when reg is nil. Collectors already registered by a
// previous instance are reused.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Prometheus{
		commandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Commands handled, by command name and result.",
			},
			[]string{"command", "result"},
		),
		commandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "command_duration_seconds",
				Help:      "Time spent executing a command against the store.",
				Buckets:   []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
			},
			[]string{"command"},
		),
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Currently open client connections.",
		}),
		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Client connections accepted since start.",
		}),
		protocolErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "protocol_errors_total",
			Help:      "Connections closed because of malformed RESP input.",
		}),
		reg: reg,
	}

	if err := m.register(reg); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Prometheus) register(reg prometheus.Registerer) error {
	if err := registerOrReuse(reg, &m.commandsTotal); err != nil {
		return fmt.Errorf("register commands counter: %w", err)
	}
	if err := registerOrReuse(reg, &m.commandDuration); err != nil {
		return fmt.Errorf("register command duration histogram: %w", err)
	}
	if err := registerOrReuse(reg, &m.connectionsActive); err != nil {
		return fmt.Errorf("register active connections gauge: %w", err)
	}
	if err := registerOrReuse(reg, &m.connectionsTotal); err != nil {
		return fmt.Errorf("register connections counter: %w", err)
	}
	if err := registerOrReuse(reg, &m.protocolErrors); err != nil {
		return fmt.Errorf("register protocol errors counter: %w", err)
	}
	return nil
}

func registerOrReuse[C prometheus.Collector](reg prometheus.Registerer, c *C) error {
	if err := reg.Register(*c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return err
		}
		existing, ok := already.ExistingCollector.(C)
		if !ok {
			return fmt.Errorf("collector type mismatch for %T", *c)
		}
		*c = existing
	}
	return nil
}

// TrackKeys exports fn as the memkv_keys gauge, evaluated at scrape time
func (m *Prometheus) TrackKeys(fn func() int64) error {
	g := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "keys",
		Help:      "Number of keys in the store.",
	}, func() float64 { return float64(fn()) })

	if err := m.reg.Register(g); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return nil
		}
		return fmt.Errorf("register keys gauge: %w", err)
	}
	return nil
}

// ConnectionOpened counts a new connection and marks it active
func (m *Prometheus) ConnectionOpened() {
	m.connectionsActive.Inc()
	m.connectionsTotal.Inc()
}

// ConnectionClosed marks a connection inactive
func (m *Prometheus) ConnectionClosed() {
	m.connectionsActive.Dec()
}

// CommandProcessed counts an executed command and observes its latency
func (m *Prometheus) CommandProcessed(cmd string, d time.Duration) {
	m.commandsTotal.WithLabelValues(cmd, "ok").Inc()
	m.commandDuration.WithLabelValues(cmd).Observe(d.Seconds())
}

// CommandFailed counts a rejected command; the kind becomes the result label
func (m *Prometheus) CommandFailed(kind string) {
	m.commandsTotal.WithLabelValues("invalid", kind).Inc()
}

// ProtocolError counts a connection closed by a framing error
func (m *Prometheus) ProtocolError() {
	m.protocolErrors.Inc()
}
