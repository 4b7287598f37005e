package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueriesEvaluated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nzgdmap_queries_evaluated_total",
			Help: "User filter queries evaluated, by validation outcome",
		},
		[]string{"status"},
	)

	Vs30Computations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nzgdmap_vs30_computations_total",
			Help: "Per-record Vs30 computations, by outcome",
		},
		[]string{"outcome"},
	)

	DatasetReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nzgdmap_dataset_reloads_total",
			Help: "Dataset snapshot reloads, by status",
		},
		[]string{"status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nzgdmap_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
)
