package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/multiquery/chunking"
	"github.com/poiesic/multiquery/core"
	"github.com/poiesic/multiquery/index"
	"github.com/poiesic/multiquery/reembed"
)

// Defaults for Pipeline.
const (
	DefaultBatchSize  = 32
	DefaultMaxRetries = 3
	DefaultRetryDelay = 500 * time.Millisecond
)

// Pipeline indexes documents in concurrent batches.
type Pipeline struct {
	indexer    index.Indexer
	chunker    *chunking.Chunker
	pool       *ants.Pool
	batchSize  int
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithWorkers sets how many batches are indexed at once.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithWorkers(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if p.pool != nil {
			p.pool.Release()
		}
		p.pool = pool
		return nil
	}
}

// WithBatchSize sets the number of chunks per AddDocuments call.
// Default is DefaultBatchSize.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) error {
		if n < 1 {
			return fmt.Errorf("%w: got %d", ErrInvalidBatchSize, n)
		}
		p.batchSize = n
		return nil
	}
}

// WithMaxRetries sets the number of attempts per batch.
// Default is DefaultMaxRetries.
func WithMaxRetries(n int) Option {
	return func(p *Pipeline) error {
		if n < 1 {
			return fmt.Errorf("%w: got %d", reembed.ErrInvalidMaxAttempts, n)
		}
		p.maxRetries = n
		return nil
	}
}

// WithRetryDelay sets the base backoff delay.
func WithRetryDelay(d time.Duration) Option {
	return func(p *Pipeline) error {
		p.retryDelay = d
		return nil
	}
}

// WithChunker splits documents before they are indexed. Without a chunker
// documents are indexed whole.
func WithChunker(c *chunking.Chunker) Option {
	return func(p *Pipeline) error {
		p.chunker = c
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a pipeline that writes to indexer.
func NewPipeline(indexer index.Indexer, opts ...Option) (*Pipeline, error) {
	if indexer == nil {
		return nil, ErrIndexerRequired
	}

	p := &Pipeline{
		indexer:    indexer,
		batchSize:  DefaultBatchSize,
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			p.Release()
			return nil, err
		}
	}

	if p.pool == nil {
		pool, err := ants.NewPool(max(runtime.NumCPU()/2, 1))
		if err != nil {
			return nil, err
		}
		p.pool = pool
	}
	p.logger = p.logger.With("component", "ingestion")

	return p, nil
}

// Ingest chunks and indexes docs, blocking until every batch has finished.
// It returns the number of chunks indexed. Failed batches do not stop the
// others; their errors are joined into the returned error.
func (p *Pipeline) Ingest(ctx context.Context, docs []core.Document) (int, error) {
	if len(docs) == 0 {
		return 0, ErrNoDocuments
	}

	chunks := docs
	if p.chunker != nil {
		var err error
		chunks, err = p.chunker.SplitDocuments(docs)
		if err != nil {
			p.logger.Error("failed to chunk documents", "err", err)
			return 0, err
		}
	}

	for i := range chunks {
		if err := core.ValidateDocument(&chunks[i]); err != nil {
			p.logger.Error("invalid chunk", "chunk", i, "err", err)
			return 0, fmt.Errorf("chunk %d: %w", i, err)
		}
	}

	p.logger.Info("ingesting documents", "documents", len(docs), "chunks", len(chunks), "batch_size", p.batchSize)

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		indexed int
		errs    []error
	)
	record := func(offset int, batch []core.Document, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			errs = append(errs, &BatchError{Offset: offset, Size: len(batch), Err: err})
			return
		}
		indexed += len(batch)
	}

	for offset := 0; offset < len(chunks); offset += p.batchSize {
		batch := chunks[offset:min(offset+p.batchSize, len(chunks))]

		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			record(offset, batch, p.indexBatch(ctx, batch))
		})
		if err != nil {
			wg.Done()
			record(offset, batch, err)
		}
	}
	wg.Wait()

	if len(errs) > 0 {
		err := errors.Join(errs...)
		p.logger.Error("ingestion finished with failures", "indexed", indexed, "failed_batches", len(errs), "err", err)
		return indexed, err
	}

	p.logger.Info("ingestion finished", "indexed", indexed)
	return indexed, nil
}

func (p *Pipeline) indexBatch(ctx context.Context, batch []core.Document) error {
	return reembed.RetryWithBackoff(ctx, func() error {
		err := p.indexer.AddDocuments(ctx, batch)
		if errors.Is(err, index.ErrInvalidEmbedding) || errors.Is(err, core.ErrInvalidDocument) {
			return reembed.Permanent(err)
		}
		return err
	}, p.maxRetries, p.retryDelay)
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
