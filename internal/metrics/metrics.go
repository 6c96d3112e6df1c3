// Package metrics exposes the replay engine's user-visible counters and
// gauges in Prometheus exposition format, grounded on the coinbase bot's
// prometheus/client_golang registration pattern (package-level vars
// registered in init, served by promhttp.Handler at /metrics).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EmittedTotal counts records successfully published to the broker.
	EmittedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "replay_emitted_total",
		Help: "Quotation records successfully published to the broker.",
	})

	// DroppedTotal counts records that exhausted publish retries and were
	// discarded, per spec's PublishError terminal-failure path.
	DroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "replay_dropped_total",
		Help: "Quotation records dropped after exhausting publish retries.",
	})

	// BufferDepth is the live record count in the bounded buffer.
	BufferDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "replay_buffer_depth",
		Help: "Current depth of the bounded buffer between loader and pacer.",
	})

	// VirtualLagSeconds is how far behind (positive) or ahead (negative)
	// the pacer's virtual clock is relative to the speed-scaled wall clock.
	// It is registered and exported, but no component of the engine sets it,
	// so it always reports 0.
	VirtualLagSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "replay_virtual_lag_seconds",
		Help: "Seconds the virtual clock lags the speed-scaled wall clock.",
	})

	// PublishTotal counts publish attempts per topic and outcome.
	PublishTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "replay_publish_total",
		Help: "Publish attempts by topic and outcome (ok|dropped).",
	}, []string{"topic", "outcome"})

	// PreheatTaskDuration records how long each preheat task took, so slow
	// tasks (> the 60s coordinator threshold) show up in a histogram rather
	// than only a log line.
	PreheatTaskDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "replay_preheat_task_duration_seconds",
		Help:    "Duration of each preheat task run.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 0.1s .. ~205s
	}, []string{"task_id", "outcome"})
)

func init() {
	prometheus.MustRegister(EmittedTotal, DroppedTotal, BufferDepth, VirtualLagSeconds)
	prometheus.MustRegister(PublishTotal, PreheatTaskDuration)
}

// Handler returns the promhttp handler to mount at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordPublish increments the per-topic publish counter for either a
// successful publish or a dropped record.
func RecordPublish(topic string, dropped bool) {
	outcome := "ok"
	if dropped {
		outcome = "dropped"
	}
	PublishTotal.WithLabelValues(topic, outcome).Inc()
}
