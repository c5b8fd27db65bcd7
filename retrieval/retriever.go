package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/multiquery/ai"
	"github.com/poiesic/multiquery/core"
	"github.com/poiesic/multiquery/expand"
	"github.com/poiesic/multiquery/index"
)

// DefaultConcurrency is the default number of searches run at once.
const DefaultConcurrency = 10

// Retriever runs multi-query retrievals. It is safe for concurrent use;
// concurrent retrievals share one worker pool.
type Retriever struct {
	expander    *expand.Expander
	pool        *ants.Pool
	concurrency int
	monitor     Monitor
	logger      *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithConcurrency sets how many searches may run at once.
// Default is DefaultConcurrency.
func WithConcurrency(n int) Option {
	return func(r *Retriever) error {
		if n < 1 {
			return fmt.Errorf("%w: got %d", ErrInvalidConcurrency, n)
		}
		r.concurrency = n
		return nil
	}
}

// WithMonitor installs a Monitor. A nil monitor disables monitoring.
func WithMonitor(m Monitor) Option {
	return func(r *Retriever) error {
		if m == nil {
			m = noopMonitor{}
		}
		r.monitor = m
		return nil
	}
}

// NewRetriever creates a Retriever that expands queries with gen.
// Call Release when the retriever is no longer needed.
func NewRetriever(gen ai.Generator, opts ...Option) (*Retriever, error) {
	if gen == nil {
		return nil, ErrGeneratorRequired
	}

	r := &Retriever{
		concurrency: DefaultConcurrency,
		monitor:     noopMonitor{},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	expander, err := expand.NewExpander(gen, expand.WithLogger(r.logger))
	if err != nil {
		return nil, err
	}
	r.expander = expander
	r.logger = r.logger.With("component", "retriever")

	pool, err := ants.NewPool(r.concurrency)
	if err != nil {
		return nil, err
	}
	r.pool = pool

	return r, nil
}

// Release frees the worker pool. The retriever must not be used afterwards.
func (r *Retriever) Release() {
	if r.pool != nil {
		r.pool.Release()
	}
}

// Retrieve expands query, searches idx once per resulting query and returns
// the merged, deduplicated documents.
//
// A blank query returns an empty result without calling the model or the
// index. A nil idx fails with *index.UnsupportedIndexError before anything
// else happens. Model failures surface as *expand.GenerationError and search
// failures as *SearchError; either way no documents are returned.
func (r *Retriever) Retrieve(ctx context.Context, query string, idx index.SimilaritySearchClient, cfg core.RetrievalConfig) ([]core.Document, error) {
	if strings.TrimSpace(query) == "" {
		return []core.Document{}, nil
	}

	client, err := index.Resolve(idx)
	if err != nil {
		return nil, err
	}

	return r.retrieve(ctx, query, client, cfg)
}

// RetrieveFrom is Retrieve for any value index.Resolve accepts, such as a
// langchaingo vector store or retriever.
func (r *Retriever) RetrieveFrom(ctx context.Context, query string, v any, cfg core.RetrievalConfig) ([]core.Document, error) {
	if strings.TrimSpace(query) == "" {
		return []core.Document{}, nil
	}

	client, err := index.Resolve(v)
	if err != nil {
		return nil, err
	}

	return r.retrieve(ctx, query, client, cfg)
}

// RetrieveRecords is Retrieve with the result flattened to records.
func (r *Retriever) RetrieveRecords(ctx context.Context, query string, idx index.SimilaritySearchClient, cfg core.RetrievalConfig) ([]core.Record, error) {
	docs, err := r.Retrieve(ctx, query, idx, cfg)
	if err != nil {
		return nil, err
	}
	return core.ToRecords(docs), nil
}

func (r *Retriever) retrieve(ctx context.Context, query string, idx index.SimilaritySearchClient, cfg core.RetrievalConfig) ([]core.Document, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	started := time.Now()
	logger := r.logger.With("retrieval_id", uuid.NewString())
	r.monitor.Start(query)

	queries, err := r.expander.Expand(ctx, query, cfg)
	if err != nil {
		logger.Debug("query expansion failed", "err", err)
		r.monitor.Failed(err)
		return nil, err
	}
	r.monitor.Expanded(queries)
	logger.Debug("searching", "queries", len(queries), "k", cfg.NumberOfResultsPerQuery)

	if len(queries) == 0 {
		logger.Warn("no queries to search", "query", query)
		results := []core.Document{}
		r.monitor.Finished(results, time.Since(started))
		return results, nil
	}

	slots, err := r.searchAll(ctx, idx, queries, cfg.NumberOfResultsPerQuery)
	if err != nil {
		logger.Debug("retrieval failed", "err", err)
		r.monitor.Failed(err)
		return nil, err
	}

	total := 0
	for _, slot := range slots {
		total += len(slot)
	}
	merged := make([]core.Document, 0, total)
	for _, slot := range slots {
		merged = append(merged, slot...)
	}
	results := core.Dedupe(merged)

	elapsed := time.Since(started)
	logger.Info("retrieval finished", "queries", len(queries), "hits", total, "unique", len(results), "elapsed", elapsed)
	r.monitor.Finished(results, elapsed)
	return results, nil
}

// searchAll runs one search per query on the pool and returns the results
// indexed like queries. The first failure cancels the remaining searches.
func (r *Retriever) searchAll(ctx context.Context, idx index.SimilaritySearchClient, queries []string, k int) ([][]core.Document, error) {
	searchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		slots    = make([][]core.Document, len(queries))
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for i, q := range queries {
		if searchCtx.Err() != nil {
			break
		}

		wg.Add(1)
		err := r.pool.Submit(func() {
			defer wg.Done()

			start := time.Now()
			docs, err := idx.Search(searchCtx, q, k)
			if err != nil {
				fail(&SearchError{Index: i, Query: q, Err: err})
				return
			}
			if len(docs) > k {
				docs = docs[:k]
			}
			slots[i] = docs
			r.monitor.Searched(i, q, len(docs), time.Since(start))
		})
		if err != nil {
			wg.Done()
			fail(fmt.Errorf("scheduling search %d: %w", i, err))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("retrieval interrupted: %w", err)
	}
	return slots, nil
}
