package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/multiquery"
	"github.com/poiesic/multiquery/config"
	"github.com/poiesic/multiquery/core"
	"github.com/poiesic/multiquery/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
)

// sourceKey is the metadata key holding the ingested file path.
const sourceKey = "source"

type runner struct {
	engineOptions []multiquery.EngineOption
}

// loadConfig reads --config and applies the index flags of the current
// command.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return config.Config{}, err
	}
	if c.IsSet("index") {
		cfg.Index.Backend = c.String("index")
	}
	if c.IsSet("db") {
		cfg.Index.Path = c.String("db")
	}
	return cfg, nil
}

func (r *runner) openEngine(cfg config.Config, opts ...multiquery.EngineOption) (*multiquery.Engine, error) {
	all := append(append([]multiquery.EngineOption{}, r.engineOptions...), opts...)
	engine, err := multiquery.NewEngine(cfg, all...)
	if err != nil {
		return nil, fmt.Errorf("failed to open engine: %w", err)
	}
	return engine, nil
}

func (r *runner) searchCommand(c *cli.Context) error {
	ctx := c.Context

	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("a query is required")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("queries") {
		cfg.Retrieval.Queries = c.Int("queries")
	}
	if c.IsSet("results") {
		cfg.Retrieval.ResultsPerQuery = c.Int("results")
	}
	if c.Bool("no-original") {
		include := false
		cfg.Retrieval.IncludeOriginal = &include
	}
	if c.Bool("original-last") {
		cfg.Retrieval.OriginalPlacement = core.PlaceOriginalLast.String()
	}
	if c.IsSet("prompt") {
		cfg.Retrieval.PromptTemplate = c.String("prompt")
	}

	var opts []multiquery.EngineOption
	registry := prometheus.NewRegistry()
	metricsFile := c.String("metrics-file")
	if metricsFile != "" {
		if err := metrics.Register(registry); err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
		opts = append(opts, multiquery.WithMonitor(metrics.NewMonitor(cfg.Index.Backend)))
	}

	engine, err := r.openEngine(cfg, opts...)
	if err != nil {
		return err
	}
	defer engine.Close()

	records, err := engine.RetrieveRecords(ctx, query, cfg.ToRetrieval())
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	enc := json.NewEncoder(c.App.Writer)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}

	if metricsFile != "" {
		if err := prometheus.WriteToTextfile(metricsFile, registry); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}

func (r *runner) ingestCommand(c *cli.Context) error {
	ctx := c.Context

	files := c.Args().Slice()
	if len(files) == 0 {
		return fmt.Errorf("at least one file is required")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("chunk-size") {
		cfg.Chunking.ChunkSize = c.Int("chunk-size")
	}
	if c.IsSet("chunk-overlap") {
		cfg.Chunking.ChunkOverlap = c.Int("chunk-overlap")
	}

	docs := make([]core.Document, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			fmt.Fprintf(c.App.ErrWriter, "Skipping empty file: %s\n", path)
			continue
		}
		docs = append(docs, core.Document{
			Content:  string(data),
			Metadata: core.Metadata{sourceKey: path},
		})
	}
	if len(docs) == 0 {
		return fmt.Errorf("no content to ingest")
	}

	engine, err := r.openEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	pipeline, err := engine.NewIngestionPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Release()

	n, err := pipeline.Ingest(ctx, docs)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Fprintf(c.App.ErrWriter, "Ingested %d chunks from %d files\n", n, len(docs))
	return nil
}

func (r *runner) reembedCommand(c *cli.Context) error {
	ctx := c.Context

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.Index.Backend != config.BackendLocal {
		return fmt.Errorf("reembed requires the %s index, got %s", config.BackendLocal, cfg.Index.Backend)
	}

	rc := cfg.ToReembed()
	if c.IsSet("batch-size") {
		rc.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("report-interval") {
		rc.ReportInterval = c.Int("report-interval")
	}
	if c.IsSet("max-retries") {
		rc.MaxRetries = c.Int("max-retries")
	}
	if c.IsSet("retry-delay") {
		rc.RetryDelay = c.Duration("retry-delay")
	}
	rc.Resume = c.Bool("resume")

	if rc.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if rc.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if rc.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	engine, err := r.openEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	reembedder, err := engine.NewReembedder(rc, c.App.ErrWriter)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.ErrWriter, "Database: %s\n", cfg.Index.Path)
	fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n", cfg.AI.EmbeddingModel)
	fmt.Fprintln(c.App.ErrWriter)

	if _, err := reembedder.Run(ctx); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	return nil
}

func (r *runner) collectionCommand(c *cli.Context) error {
	ctx := c.Context

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	cfg.Index.Backend = config.BackendQdrant
	if c.IsSet("name") {
		cfg.Qdrant.CollectionName = c.String("name")
	}

	engine, err := r.openEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	created, err := engine.EnsureCollection(ctx)
	if err != nil {
		return fmt.Errorf("failed to ensure collection: %w", err)
	}
	if created {
		fmt.Fprintf(c.App.ErrWriter, "Created collection %s\n", cfg.Qdrant.CollectionName)
	} else {
		fmt.Fprintf(c.App.ErrWriter, "Collection %s already exists\n", cfg.Qdrant.CollectionName)
	}
	return nil
}
