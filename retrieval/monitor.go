package retrieval

import (
	"time"

	"github.com/poiesic/multiquery/core"
)

// Monitor provides hooks to observe a retrieval.
// Searched is called from pool workers and must be safe for concurrent use.
type Monitor interface {
	Start(query string)
	Expanded(queries []string)
	Searched(index int, query string, hits int, elapsed time.Duration)
	Finished(results []core.Document, elapsed time.Duration)
	Failed(err error)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = noopMonitor{}

func (noopMonitor) Start(string)                             {}
func (noopMonitor) Expanded([]string)                        {}
func (noopMonitor) Searched(int, string, int, time.Duration) {}
func (noopMonitor) Finished([]core.Document, time.Duration)  {}
func (noopMonitor) Failed(error)                             {}
