package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/poiesic/multiquery/core"
	"github.com/poiesic/multiquery/expand"
	"github.com/poiesic/multiquery/retrieval"
)

// Retrieval outcomes used as the status label.
const (
	StatusSuccess    = "success"
	StatusGeneration = "generation_error"
	StatusSearch     = "search_error"
	StatusCanceled   = "canceled"
	StatusError      = "error"
)

// Monitor records retrieval activity for one index. It implements
// retrieval.Monitor and is safe for concurrent use.
type Monitor struct {
	index string
}

var _ retrieval.Monitor = (*Monitor)(nil)

// NewMonitor creates a Monitor whose series carry the given index label.
func NewMonitor(index string) *Monitor {
	if index == "" {
		index = "default"
	}
	return &Monitor{index: index}
}

// Start is a no-op; durations are measured by the retriever.
func (m *Monitor) Start(string) {}

// Expanded records how many queries will be searched.
func (m *Monitor) Expanded(queries []string) {
	QueriesPerRetrieval.WithLabelValues(m.index).Observe(float64(len(queries)))
}

// Searched records the latency and hit count of one search.
func (m *Monitor) Searched(_ int, _ string, hits int, elapsed time.Duration) {
	SearchDuration.WithLabelValues(m.index).Observe(elapsed.Seconds())
	SearchHitsTotal.WithLabelValues(m.index).Add(float64(hits))
}

// Finished records a successful retrieval.
func (m *Monitor) Finished(results []core.Document, elapsed time.Duration) {
	RetrievalsTotal.WithLabelValues(m.index, StatusSuccess).Inc()
	RetrievalDuration.WithLabelValues(m.index).Observe(elapsed.Seconds())
	ResultsTotal.WithLabelValues(m.index).Add(float64(len(results)))
}

// Failed records a failed retrieval under its status label.
func (m *Monitor) Failed(err error) {
	RetrievalsTotal.WithLabelValues(m.index, Status(err)).Inc()
}

// Status classifies a retrieval error into a status label value.
func Status(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return StatusCanceled
	case errors.Is(err, expand.ErrGeneration):
		return StatusGeneration
	case errors.Is(err, retrieval.ErrSearch):
		return StatusSearch
	default:
		return StatusError
	}
}
