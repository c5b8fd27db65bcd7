package qdrant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/multiquery/ai"
	"github.com/poiesic/multiquery/core"
	"github.com/poiesic/multiquery/index"
	lcqdrant "github.com/tmc/langchaingo/vectorstores/qdrant"
)

// Option configures a Store or Collections.
type Option func(*settings)

type settings struct {
	logger *slog.Logger
}

// WithLogger sets a custom logger.
// If not provided, the default logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

func applyOptions(component string, opts []Option) settings {
	s := settings{}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", component)
	return s
}

// Store is an index.Store backed by a Qdrant collection.
// It is safe for concurrent use.
type Store struct {
	index  *index.VectorStoreIndex
	cfg    Config
	logger *slog.Logger
}

var _ index.Store = (*Store)(nil)

// New builds a Store for cfg that embeds text with embedder.
//
// A nil embedder fails with index.ErrInvalidEmbedding and an unusable
// configuration with index.ErrInvalidVectorStore. New does not contact the
// server; use Collections.Ensure to create the collection.
func New(cfg Config, embedder ai.Embedder, opts ...Option) (*Store, error) {
	s := applyOptions("qdrant-store", opts)

	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is nil", index.ErrInvalidEmbedding)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	restURL, err := cfg.RESTURL()
	if err != nil {
		return nil, err
	}

	store, err := lcqdrant.New(
		lcqdrant.WithURL(restURL),
		lcqdrant.WithAPIKey(cfg.APIKey),
		lcqdrant.WithCollectionName(cfg.CollectionName),
		lcqdrant.WithEmbedder(ai.AsLangchainEmbedder(embedder)),
		lcqdrant.WithContentKey(cfg.ContentPayloadKey),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", index.ErrInvalidVectorStore, err)
	}

	s.logger.Debug("qdrant store ready", "url", restURL.Redacted(), "collection", cfg.CollectionName)

	return &Store{
		index: index.NewVectorStoreIndex(store,
			index.WithMetadataKey(cfg.MetadataPayloadKey),
			index.WithVectorStoreLogger(s.logger),
		),
		cfg:    cfg,
		logger: s.logger,
	}, nil
}

// Config returns the effective configuration.
func (s *Store) Config() Config {
	return s.cfg
}

// Search returns up to k documents similar to query.
func (s *Store) Search(ctx context.Context, query string, k int) ([]core.Document, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.index.Search(ctx, query, k)
}

// AddDocuments embeds docs and upserts them as new points.
func (s *Store) AddDocuments(ctx context.Context, docs []core.Document) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.index.AddDocuments(ctx, docs)
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, s.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}
