package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics records counters for the cart store and its persistence.
type CartMetrics struct {
	dispatches  *prometheus.CounterVec
	events      *prometheus.CounterVec
	saves       prometheus.Counter
	saveFailure prometheus.Counter
	sessions    prometheus.Gauge
	bursts      prometheus.Counter
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	dispatches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_dispatches_total",
		Help: "Cart store dispatches by action kind.",
	}, []string{"action"})
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_events_total",
		Help: "Domain events emitted by cart stores.",
	}, []string{"event"})
	saves := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_snapshot_saves_total",
		Help: "Debounced snapshot writes that reached storage.",
	})
	saveFailure := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_snapshot_save_failures_total",
		Help: "Snapshot writes that failed.",
	})
	sessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cart_active_sessions",
		Help: "Cart sessions currently held in memory.",
	})
	bursts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_add_bursts_total",
		Help: "Add-burst activations across all sessions.",
	})
	reg.MustRegister(dispatches, events, saves, saveFailure, sessions, bursts)
	return &CartMetrics{
		dispatches:  dispatches,
		events:      events,
		saves:       saves,
		saveFailure: saveFailure,
		sessions:    sessions,
		bursts:      bursts,
	}
}

// IncDispatch counts one dispatch of the named action.
func (c *CartMetrics) IncDispatch(action string) {
	if c == nil || c.dispatches == nil {
		return
	}
	c.dispatches.WithLabelValues(normalizeLabel(action)).Inc()
}

// IncEvent counts one emitted domain event.
func (c *CartMetrics) IncEvent(event string) {
	if c == nil || c.events == nil {
		return
	}
	c.events.WithLabelValues(normalizeLabel(event)).Inc()
}

// IncSave counts a successful snapshot write.
func (c *CartMetrics) IncSave() {
	if c == nil || c.saves == nil {
		return
	}
	c.saves.Inc()
}

// IncSaveFailure counts a failed snapshot write.
func (c *CartMetrics) IncSaveFailure() {
	if c == nil || c.saveFailure == nil {
		return
	}
	c.saveFailure.Inc()
}

// SessionOpened bumps the active session gauge.
func (c *CartMetrics) SessionOpened() {
	if c == nil || c.sessions == nil {
		return
	}
	c.sessions.Inc()
}

// SessionClosed lowers the active session gauge.
func (c *CartMetrics) SessionClosed() {
	if c == nil || c.sessions == nil {
		return
	}
	c.sessions.Dec()
}

// IncBurst counts one add-burst activation.
func (c *CartMetrics) IncBurst() {
	if c == nil || c.bursts == nil {
		return
	}
	c.bursts.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
