package indexer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	indexRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ragd_index_runs_total",
		Help: "Indexing runs by operation (add, reindex, remove) and status (ok, error).",
	}, []string{"operation", "status"})

	chunksIndexedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ragd_chunks_indexed_total",
		Help: "Code chunks upserted into the vector store.",
	})

	indexDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ragd_index_duration_seconds",
		Help:    "Wall-clock duration of indexing runs by operation.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"operation"})
)

func observeRun(operation string, seconds float64, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	indexRunsTotal.WithLabelValues(operation, status).Inc()
	indexDuration.WithLabelValues(operation).Observe(seconds)
}
