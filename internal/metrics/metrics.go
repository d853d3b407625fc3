package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Fetch outcomes used as the "outcome" label.
const (
	OutcomeSuccess      = "success"
	OutcomeFailure      = "failure"
	OutcomeUnauthorized = "unauthorized"
	OutcomeStale        = "stale"
)

// Collector groups the calendar's Prometheus metrics. A nil *Collector is
// valid and records nothing, which keeps tests and the -once mode simple.
type Collector struct {
	fetches       *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	events        *prometheus.GaugeVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "monthcal",
			Name:      "fetches_total",
			Help:      "Event window fetches by outcome.",
		}, []string{"outcome"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "monthcal",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of event window fetches.",
			Buckets:   prometheus.DefBuckets,
		}),
		events: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "monthcal",
			Name:      "events",
			Help:      "Events currently held in the session store.",
		}, []string{"origin"}),
	}
	reg.MustRegister(c.fetches, c.fetchDuration, c.events)
	return c
}

// ObserveFetch records one completed fetch.
func (c *Collector) ObserveFetch(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.fetches.WithLabelValues(outcome).Inc()
	c.fetchDuration.Observe(d.Seconds())
}

// SetEvents publishes the store size split by origin.
func (c *Collector) SetEvents(remote, local int) {
	if c == nil {
		return
	}
	c.events.WithLabelValues("remote").Set(float64(remote))
	c.events.WithLabelValues("local").Set(float64(local))
}
