// Package prometheus exposes transition engine metrics to Prometheus.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bst"

var (
	// transitionsTotal counts transition attempts per definition and outcome.
	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Total number of transition attempts",
		},
		[]string{"def_tag", "status", "forced"}, // status: allowed, rejected, error
	)

	// transitionDuration is a histogram of transition processing duration in
	// seconds, including the backend write.
	transitionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transition_duration_seconds",
			Help:      "Histogram of transition processing duration in seconds",
			Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
		},
		[]string{"def_tag", "status"},
	)

	// massBatchSize is a histogram of mass transition batch sizes.
	massBatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mass_batch_size",
			Help:      "Histogram of mass transition batch sizes",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	// allMetrics is a list of all metrics for registration.
	allMetrics = []prometheus.Collector{
		transitionsTotal,
		transitionDuration,
		massBatchSize,
	}
)

// RecordTransition records a single transition attempt.
func RecordTransition(defTag, status string, forced bool, durationSeconds float64) {
	forcedLabel := "false"
	if forced {
		forcedLabel = "true"
	}
	transitionsTotal.WithLabelValues(defTag, status, forcedLabel).Inc()
	transitionDuration.WithLabelValues(defTag, status).Observe(durationSeconds)
}

// RecordMassBatch records the size of a mass transition batch.
func RecordMassBatch(size int) {
	massBatchSize.Observe(float64(size))
}
