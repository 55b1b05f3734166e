// Package observability exposes prometheus metrics for pipeline stages and
// engine operations.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stageDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "categorize_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
		},
		[]string{"stage", "status"},
	)

	engineOpSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "categorize_engine_op_seconds",
			Help:    "Duration of feature-store engine operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"op", "status"},
	)

	storeOpSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "categorize_store_op_seconds",
			Help:    "Duration of workspace store operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op", "status"},
	)

	categoriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "categorize_categories_total",
			Help: "Total number of category partitions processed.",
		},
	)

	featuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "categorize_features_total",
			Help: "Features flowing through a pipeline stage.",
		},
		[]string{"stage"},
	)
)

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func ObserveStage(stage string, err error, seconds float64) {
	stageDurationSeconds.WithLabelValues(stage, status(err)).Observe(seconds)
}

func ObserveEngineOp(op string, err error, seconds float64) {
	engineOpSeconds.WithLabelValues(op, status(err)).Observe(seconds)
}

func ObserveStoreOp(op string, err error, seconds float64) {
	storeOpSeconds.WithLabelValues(op, status(err)).Observe(seconds)
}

func AddCategories(n int) {
	if n > 0 {
		categoriesTotal.Add(float64(n))
	}
}

func AddFeatures(stage string, n int) {
	if n > 0 {
		featuresTotal.WithLabelValues(stage).Add(float64(n))
	}
}
