package capture

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "airlog",
		Subsystem: "capture",
		Name:      "runs_total",
		Help:      "Capture runs by final status.",
	}, []string{"status"})

	entriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "airlog",
		Subsystem: "capture",
		Name:      "entries_total",
		Help:      "Feed entries processed, by outcome.",
	}, []string{"outcome"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "airlog",
		Subsystem: "capture",
		Name:      "run_duration_seconds",
		Help:      "Wall time of a full capture run.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	})
)

func recordRun(r Result) {
	status := "success"
	if !r.Success {
		status = "failure"
	}
	runsTotal.WithLabelValues(status).Inc()
	runDuration.Observe(float64(r.DurationMS) / 1000)
}

func recordEntry(outcome string) {
	entriesTotal.WithLabelValues(outcome).Inc()
}
