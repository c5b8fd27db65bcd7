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


package reembed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/multiquery/ai"
	"github.com/poiesic/multiquery/core"
	"github.com/poiesic/multiquery/storage"
)

// CheckpointType identifies re-embedding checkpoints.
const CheckpointType = "reembed"

// Config holds the re-embedding parameters.
type Config struct {
	// BatchSize is the number of documents embedded per call.
	BatchSize int

	// ReportInterval is how often to report progress, in documents.
	ReportInterval int

	// MaxRetries is the maximum number of attempts per embedding call.
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff.
	RetryDelay time.Duration

	// Resume continues from the saved checkpoint, if any. Requires
	// WithCheckpoints.
	Resume bool
}

// DefaultConfig returns the default re-embedding parameters.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Reembedder recomputes every stored vector.
type Reembedder struct {
	repo        storage.DocumentRepository
	checkpoints storage.CheckpointRepository
	config      *Config
	progress    io.Writer
	processor   *BatchProcessor
	logger      *slog.Logger
}

// Option configures a Reembedder.
type Option func(*Reembedder)

// WithCheckpoints saves a checkpoint after every batch so a failed run can be
// resumed with Config.Resume.
func WithCheckpoints(repo storage.CheckpointRepository) Option {
	return func(r *Reembedder) {
		r.checkpoints = repo
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reembedder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewReembedder creates a Reembedder. Progress lines go to progress; a nil
// writer discards them. A nil config selects DefaultConfig.
func NewReembedder(repo storage.DocumentRepository, embedder ai.Embedder, config *Config, progress io.Writer, opts ...Option) (*Reembedder, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxRetries <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMaxAttempts, config.MaxRetries)
	}
	if progress == nil {
		progress = io.Discard
	}

	r := &Reembedder{
		repo:      repo,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(repo, embedder, config.MaxRetries, config.RetryDelay),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "reembedder")

	return r, nil
}

// Run re-embeds every document and returns the number processed in this run.
// Cancellation is honored between batches; batches already written keep
// their new vectors.
func (r *Reembedder) Run(ctx context.Context) (int, error) {
	total, err := r.repo.CountDocuments(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	if total == 0 {
		fmt.Fprintln(r.progress, "No documents to re-embed")
		return 0, nil
	}

	iterator := NewRecordIterator(r.repo, r.config.BatchSize)
	done := 0
	if r.config.Resume && r.checkpoints != nil {
		checkpoint, err := r.checkpoints.LoadCheckpoint(ctx, CheckpointType)
		if err != nil {
			return 0, fmt.Errorf("failed to load checkpoint: %w", err)
		}
		if checkpoint != nil {
			iterator.StartAfter(checkpoint.LastId)
			done = min(checkpoint.Processed, total)
			r.logger.Info("resuming from checkpoint", "last_id", checkpoint.LastId, "processed", checkpoint.Processed)
		}
	}

	fmt.Fprintf(r.progress, "Re-embedding %d documents (batch size: %d)\n", total-done, r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()
	tracker.Update(done)

	processed := 0
	err = iterator.ForEach(ctx, func(docs []*core.StoredDocument) error {
		if err := r.processor.Process(ctx, docs); err != nil {
			return fmt.Errorf("batch starting at %d: %w", docs[0].Id, err)
		}
		processed += len(docs)
		tracker.Update(done + processed)

		if r.checkpoints == nil {
			return nil
		}
		return r.checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{
			ProcessorType: CheckpointType,
			LastId:        docs[len(docs)-1].Id,
			Processed:     done + processed,
		})
	})
	if err != nil {
		r.logger.Error("re-embedding stopped", "processed", processed, "err", err)
		return processed, err
	}

	if r.checkpoints != nil {
		if err := r.checkpoints.DeleteCheckpoint(ctx, CheckpointType); err != nil {
			return processed, fmt.Errorf("failed to clear checkpoint: %w", err)
		}
	}

	tracker.Finish()
	elapsed := tracker.Elapsed()
	r.logger.Info("re-embedding complete", "processed", processed, "elapsed", elapsed)
	fmt.Fprintf(r.progress, "Re-embedding complete. Processed %d documents in %v (%.1f docs/sec)\n",
		processed, elapsed.Round(time.Millisecond), float64(processed)/max(elapsed.Seconds(), 1e-9))

	return processed, nil
}
