package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// PollCycles counts server poll cycles started.
	PollCycles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nocwall",
			Name:      "poll_cycles_total",
			Help:      "Total number of server poll cycles started",
		},
	)

	// PollErrors counts cycles that produced no usable device list.
	PollErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nocwall",
			Name:      "poll_errors_total",
			Help:      "Total number of poll cycles that failed outright",
		},
	)

	// DevicesObserved is the monitored device count of the last cycle.
	DevicesObserved = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "nocwall",
			Name:      "devices_observed",
			Help:      "Monitored devices seen in the most recent poll cycle",
		},
	)

	// NotificationsTotal counts dispatch attempts by category and result.
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nocwall",
			Name:      "notifications_total",
			Help:      "Notification dispatch attempts by category and result",
		},
		[]string{"category", "result"},
	)

	// SourceFetches counts per-source fetch attempts by outcome.
	SourceFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nocwall",
			Name:      "source_fetches_total",
			Help:      "Telemetry source fetch attempts by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	once sync.Once
)

// InitMetrics registers all metrics with the default registry. It is
// idempotent so tests and repeated bootstraps do not panic.
func InitMetrics() {
	once.Do(func() {
		prometheus.DefaultRegisterer.Register(PollCycles)
		prometheus.DefaultRegisterer.Register(PollErrors)
		prometheus.DefaultRegisterer.Register(DevicesObserved)
		prometheus.DefaultRegisterer.Register(NotificationsTotal)
		prometheus.DefaultRegisterer.Register(SourceFetches)
	})
}
