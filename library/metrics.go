package library

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Metrics counts history and persistence activity. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry     *prometheus.Registry
	recorded     *prometheus.CounterVec
	undone       prometheus.Counter
	redone       prometheus.Counter
	saveFailures *prometheus.CounterVec
}

// NewMetrics registers the library collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		recorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "library",
			Name:      "commands_recorded_total",
			Help:      "Commands recorded in the history log, by entity and action of their primary change.",
		}, []string{"entity", "action"}),
		undone: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "library",
			Name:      "undo_total",
			Help:      "Successful undo operations.",
		}),
		redone: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "library",
			Name:      "redo_total",
			Help:      "Successful redo operations.",
		}),
		saveFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "library",
			Name:      "persistence_save_failures_total",
			Help:      "Backend saves that failed and were swallowed.",
		}, []string{"store"}),
	}
	m.registry.MustRegister(m.recorded, m.undone, m.redone, m.saveFailures)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// WriteText writes all metrics in the Prometheus text exposition format.
func (m *Metrics) WriteText(w io.Writer) error {
	if m == nil {
		return nil
	}
	families, err := m.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) commandRecorded(cmd Command) {
	if m == nil {
		return
	}
	c, ok := primaryChange(cmd)
	if !ok {
		return
	}
	m.recorded.WithLabelValues(string(c.Entity), string(c.Action)).Inc()
}

func (m *Metrics) undo() {
	if m != nil {
		m.undone.Inc()
	}
}

func (m *Metrics) redo() {
	if m != nil {
		m.redone.Inc()
	}
}

func (m *Metrics) saveFailed(store string) {
	if m != nil {
		m.saveFailures.WithLabelValues(store).Inc()
	}
}
