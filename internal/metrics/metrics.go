package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/example/gymbook/internal/scheduler"
)

// Metrics holds the booking collectors. It is a scheduler.Recorder and its
// ObservePortal method fits portal.Observer.
type Metrics struct {
	cycles      *prometheus.CounterVec
	retriesLeft prometheus.Gauge
	nextRun     prometheus.Gauge
	portalCalls *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		cycles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gymbook_cycles_total",
			Help: "Booking cycles by the action they ended with.",
		}, []string{"action"}),
		retriesLeft: f.NewGauge(prometheus.GaugeOpts{
			Name: "gymbook_retries_remaining",
			Help: "Same-day retries left after the last cycle.",
		}),
		nextRun: f.NewGauge(prometheus.GaugeOpts{
			Name: "gymbook_next_run_timestamp_seconds",
			Help: "Unix time of the pending scheduled cycle.",
		}),
		portalCalls: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gymbook_portal_request_duration_seconds",
			Help:    "Latency of calls to the gym portal.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "outcome"}),
	}
}

func (m *Metrics) Record(_ context.Context, r scheduler.Report) error {
	m.cycles.WithLabelValues(string(r.Action)).Inc()
	m.retriesLeft.Set(float64(r.RetriesLeft))
	m.nextRun.Set(float64(r.NextRunAt.Unix()))
	return nil
}

func (m *Metrics) ObservePortal(op string, elapsed time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.portalCalls.WithLabelValues(op, outcome).Observe(elapsed.Seconds())
}
