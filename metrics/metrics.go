// Package metrics exposes retrieval activity as Prometheus metrics.
//
// Collectors are package-level and registered with Register. Monitor plugs
// them into a retrieval.Retriever:
//
//	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
//	    return err
//	}
//	r, err := retrieval.NewRetriever(gen, retrieval.WithMonitor(metrics.NewMonitor("docs")))
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "multiquery"

// Retrieval Prometheus metrics.
var (
	RetrievalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrievals_total",
			Help:      "Total number of multi-query retrievals",
		},
		[]string{"index", "status"},
	)

	RetrievalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "End-to-end retrieval duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"index"},
	)

	QueriesPerRetrieval = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "queries_per_retrieval",
			Help:      "Number of queries searched per retrieval, original included",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		},
		[]string{"index"},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Similarity search duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"index"},
	)

	SearchHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_hits_total",
			Help:      "Documents returned by similarity searches before deduplication",
		},
		[]string{"index"},
	)

	ResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_total",
			Help:      "Unique documents returned by retrievals",
		},
		[]string{"index"},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		RetrievalsTotal,
		RetrievalDuration,
		QueriesPerRetrieval,
		SearchDuration,
		SearchHitsTotal,
		ResultsTotal,
	}
}

// Register registers the retrieval metrics with reg. Registering twice with
// the same registerer is not an error.
func Register(reg prometheus.Registerer) error {
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}
