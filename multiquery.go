// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package multiquery wires a model provider, an index and a multi-query
// retriever together from one configuration.
package multiquery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/multiquery/ai"
	"github.com/poiesic/multiquery/ai/openai"
	"github.com/poiesic/multiquery/chunking"
	"github.com/poiesic/multiquery/config"
	"github.com/poiesic/multiquery/core"
	"github.com/poiesic/multiquery/index"
	"github.com/poiesic/multiquery/index/local"
	"github.com/poiesic/multiquery/index/qdrant"
	"github.com/poiesic/multiquery/ingestion"
	"github.com/poiesic/multiquery/reembed"
	"github.com/poiesic/multiquery/retrieval"
	"github.com/poiesic/multiquery/storage"
	"github.com/poiesic/multiquery/storage/badger"
)

var (
	// ErrNotLocal is returned for operations that need the local index.
	ErrNotLocal = errors.New("operation requires the local index")

	// ErrNotQdrant is returned for operations that need the Qdrant index.
	ErrNotQdrant = errors.New("operation requires the qdrant index")
)

// Engine owns the components configured by a config.Config.
type Engine struct {
	cfg         config.Config
	provider    ai.AIProvider
	backend     *badger.Backend
	docs        storage.DocumentRepository
	checkpoints storage.CheckpointRepository
	store       index.Store
	retriever   *retrieval.Retriever
	logger      *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	provider ai.AIProvider
	monitor  retrieval.Monitor
	inMemory bool
	logger   *slog.Logger
}

// WithProvider uses provider instead of an OpenAI-compatible one built from
// the ai section. The engine closes it.
func WithProvider(provider ai.AIProvider) EngineOption {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithMonitor installs a retrieval monitor.
func WithMonitor(m retrieval.Monitor) EngineOption {
	return func(o *engineOptions) {
		o.monitor = m
	}
}

// WithInMemoryIndex keeps the local index in memory instead of index.path.
func WithInMemoryIndex() EngineOption {
	return func(o *engineOptions) {
		o.inMemory = true
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// NewEngine builds the provider, index and retriever described by cfg.
func NewEngine(cfg config.Config, opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{cfg: cfg, provider: options.provider, logger: options.logger.With("component", "engine")}
	if e.provider == nil {
		provider, err := openai.NewProvider(cfg.ToAI())
		if err != nil {
			return nil, fmt.Errorf("failed to create AI provider: %w", err)
		}
		e.provider = provider
	}

	if err := e.openIndex(options); err != nil {
		e.Close()
		return nil, err
	}

	retriever, err := retrieval.NewRetriever(e.provider.Generator(),
		retrieval.WithConcurrency(cfg.Retrieval.Concurrency),
		retrieval.WithMonitor(options.monitor),
		retrieval.WithLogger(options.logger),
	)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.retriever = retriever

	return e, nil
}

func (e *Engine) openIndex(options *engineOptions) error {
	embedder := e.provider.Embedder()

	switch e.cfg.Index.Backend {
	case config.BackendQdrant:
		store, err := qdrant.New(e.cfg.Qdrant, embedder, qdrant.WithLogger(options.logger))
		if err != nil {
			return err
		}
		e.store = store
		return nil

	default:
		backend, err := badger.OpenBackend(e.cfg.Index.Path, options.inMemory, badger.WithLogger(options.logger))
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		e.backend = backend

		docs, err := badger.NewDocumentRepository(backend)
		if err != nil {
			return err
		}
		e.docs = docs
		e.checkpoints = badger.NewCheckpointRepository(backend)

		localOpts := []local.Option{local.WithLogger(options.logger)}
		if m := e.cfg.Index.MinSimilarity; m != nil {
			localOpts = append(localOpts, local.WithMinSimilarity(*m))
		}
		store, err := local.New(docs, embedder, localOpts...)
		if err != nil {
			return err
		}
		e.store = store
		return nil
	}
}

// Config returns the effective configuration.
func (e *Engine) Config() config.Config {
	return e.cfg
}

// Index returns the configured index.
func (e *Engine) Index() index.Store {
	return e.store
}

// Retrieve runs a multi-query retrieval with the configured parameters.
func (e *Engine) Retrieve(ctx context.Context, query string) ([]core.Document, error) {
	return e.RetrieveWith(ctx, query, e.cfg.ToRetrieval())
}

// RetrieveWith runs a multi-query retrieval with explicit parameters.
func (e *Engine) RetrieveWith(ctx context.Context, query string, rc core.RetrievalConfig) ([]core.Document, error) {
	return e.retriever.Retrieve(ctx, query, e.store, rc)
}

// RetrieveRecords is RetrieveWith with the result flattened to records.
func (e *Engine) RetrieveRecords(ctx context.Context, query string, rc core.RetrievalConfig) ([]core.Record, error) {
	return e.retriever.RetrieveRecords(ctx, query, e.store, rc)
}

// NewIngestionPipeline returns a pipeline that chunks with the chunking
// section and writes to the configured index. Release it when done.
func (e *Engine) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	chunker, err := chunking.NewChunker(e.cfg.ToChunking(), chunking.WithLogger(e.logger))
	if err != nil {
		return nil, err
	}

	defaults := []ingestion.Option{
		ingestion.WithChunker(chunker),
		ingestion.WithBatchSize(e.cfg.Ingestion.BatchSize),
		ingestion.WithMaxRetries(e.cfg.Ingestion.MaxRetries),
		ingestion.WithRetryDelay(e.cfg.Ingestion.RetryDelay),
		ingestion.WithLogger(e.logger),
	}
	if e.cfg.Ingestion.Workers > 0 {
		defaults = append(defaults, ingestion.WithWorkers(e.cfg.Ingestion.Workers))
	}
	return ingestion.NewPipeline(e.store, append(defaults, opts...)...)
}

// NewReembedder returns a re-embedder for the local index. Progress lines
// go to progress.
func (e *Engine) NewReembedder(rc *reembed.Config, progress io.Writer) (*reembed.Reembedder, error) {
	if e.docs == nil {
		return nil, ErrNotLocal
	}
	if rc == nil {
		rc = e.cfg.ToReembed()
	}
	return reembed.NewReembedder(e.docs, e.provider.Embedder(), rc, progress,
		reembed.WithCheckpoints(e.checkpoints),
		reembed.WithLogger(e.logger),
	)
}

// EnsureCollection creates the Qdrant collection if it is missing and
// reports whether it did.
func (e *Engine) EnsureCollection(ctx context.Context) (bool, error) {
	if e.cfg.Index.Backend != config.BackendQdrant {
		return false, ErrNotQdrant
	}
	return qdrant.EnsureCollection(ctx, e.cfg.Qdrant, e.provider.Embedder(), qdrant.WithLogger(e.logger))
}

// Close releases every component. It returns the first error encountered.
func (e *Engine) Close() error {
	var errs []error

	if e.retriever != nil {
		e.retriever.Release()
	}
	if e.provider != nil {
		if err := e.provider.Close(); err != nil {
			e.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if e.docs != nil {
		if err := e.docs.Close(); err != nil {
			e.logger.Error("error closing document repository", "err", err)
			errs = append(errs, err)
		}
	}
	if e.backend != nil {
		if err := e.backend.Close(); err != nil {
			e.logger.Error("error closing backend storage", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
