package qdrant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/multiquery/ai"
	"github.com/poiesic/multiquery/index"
	"github.com/qdrant/go-client/qdrant"
)

// collectionAPI is the subset of *qdrant.Client used for collection management.
type collectionAPI interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	DeleteCollection(ctx context.Context, collectionName string) error
	Count(ctx context.Context, request *qdrant.CountPoints) (uint64, error)
	Close() error
}

// Collections manages the configured collection over gRPC.
type Collections struct {
	api    collectionAPI
	cfg    Config
	logger *slog.Logger
}

// NewCollections connects to the gRPC endpoint described by cfg.
func NewCollections(cfg Config, opts ...Option) (*Collections, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:                   cfg.GRPCHost(),
		Port:                   cfg.GRPCPort,
		APIKey:                 cfg.APIKey,
		UseTLS:                 cfg.HTTPS,
		SkipCompatibilityCheck: true,
		PoolSize:               1,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", index.ErrInvalidVectorStore, err)
	}

	return newCollections(client, cfg, opts...), nil
}

func newCollections(api collectionAPI, cfg Config, opts ...Option) *Collections {
	s := applyOptions("qdrant-collections", opts)
	return &Collections{api: api, cfg: cfg, logger: s.logger}
}

// Ensure creates the collection if it does not exist and reports whether it
// did. The vector size comes from the configuration or, when unset, from the
// length of a probe embedding.
func (c *Collections) Ensure(ctx context.Context, embedder ai.Embedder) (bool, error) {
	exists, err := c.api.CollectionExists(ctx, c.cfg.CollectionName)
	if err != nil {
		c.logger.Error("failed to check collection", "collection", c.cfg.CollectionName, "err", err)
		return false, err
	}
	if exists {
		c.logger.Debug("collection exists", "collection", c.cfg.CollectionName)
		return false, nil
	}

	size, err := c.vectorSize(ctx, embedder)
	if err != nil {
		return false, err
	}

	distance, err := ParseDistance(c.cfg.Distance)
	if err != nil {
		return false, err
	}

	err = c.api.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: c.cfg.CollectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     size,
			Distance: distance,
		}),
	})
	if err != nil {
		c.logger.Error("failed to create collection", "collection", c.cfg.CollectionName, "err", err)
		return false, err
	}

	c.logger.Info("created collection", "collection", c.cfg.CollectionName, "size", size, "distance", distance.String())
	return true, nil
}

func (c *Collections) vectorSize(ctx context.Context, embedder ai.Embedder) (uint64, error) {
	if c.cfg.VectorSize > 0 {
		return uint64(c.cfg.VectorSize), nil
	}
	if embedder == nil {
		return 0, fmt.Errorf("%w: vector size unset and no embedder to probe", index.ErrInvalidEmbedding)
	}

	probe, err := embedder.EmbedText(ctx, "dimension probe")
	if err != nil {
		return 0, fmt.Errorf("%w: probing embedding size: %w", index.ErrInvalidEmbedding, err)
	}
	if len(probe) == 0 {
		return 0, fmt.Errorf("%w: embedder returned an empty vector", index.ErrInvalidEmbedding)
	}
	return uint64(len(probe)), nil
}

// Count returns the exact number of points in the collection.
func (c *Collections) Count(ctx context.Context) (uint64, error) {
	return c.api.Count(ctx, &qdrant.CountPoints{
		CollectionName: c.cfg.CollectionName,
		Exact:          qdrant.PtrOf(true),
	})
}

// Delete drops the collection.
func (c *Collections) Delete(ctx context.Context) error {
	if err := c.api.DeleteCollection(ctx, c.cfg.CollectionName); err != nil {
		c.logger.Error("failed to delete collection", "collection", c.cfg.CollectionName, "err", err)
		return err
	}
	c.logger.Info("deleted collection", "collection", c.cfg.CollectionName)
	return nil
}

// Close closes the gRPC connection.
func (c *Collections) Close() error {
	return c.api.Close()
}

// EnsureCollection connects to the gRPC endpoint of cfg, creates the
// collection if needed and disconnects. It reports whether the collection
// was created.
func EnsureCollection(ctx context.Context, cfg Config, embedder ai.Embedder, opts ...Option) (bool, error) {
	c, err := NewCollections(cfg, opts...)
	if err != nil {
		return false, err
	}
	defer c.Close()

	return c.Ensure(ctx, embedder)
}
