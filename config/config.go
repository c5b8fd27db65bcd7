// Package config loads the YAML configuration of the multiquery command.
//
// Values of the form ${VAR} or ${VAR:-default} are replaced with environment
// variables before parsing, so secrets such as API keys can stay out of the
// file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/poiesic/multiquery/ai"
	"github.com/poiesic/multiquery/chunking"
	"github.com/poiesic/multiquery/core"
	"github.com/poiesic/multiquery/index/qdrant"
	"github.com/poiesic/multiquery/ingestion"
	"github.com/poiesic/multiquery/reembed"
	"github.com/poiesic/multiquery/retrieval"
	"gopkg.in/yaml.v3"
)

// Index backends.
const (
	BackendLocal  = "local"
	BackendQdrant = "qdrant"
)

// Config holds the multiquery configuration.
type Config struct {
	AI        AIConfig        `yaml:"ai"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Index     IndexConfig     `yaml:"index"`
	Qdrant    qdrant.Config   `yaml:"qdrant"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Reembed   ReembedConfig   `yaml:"reembed"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AIConfig holds the OpenAI-compatible endpoints.
type AIConfig struct {
	Host           string  `yaml:"host"`
	EmbeddingHost  string  `yaml:"embedding_host"` // overrides host for embeddings
	GeneratorHost  string  `yaml:"generator_host"` // overrides host for generation
	EmbeddingModel string  `yaml:"embedding_model"`
	GeneratorModel string  `yaml:"generator_model"`
	APIKey         string  `yaml:"api_key"`
	Temperature    float64 `yaml:"temperature"`
}

// RetrievalConfig holds the multi-query parameters.
type RetrievalConfig struct {
	Queries           int    `yaml:"queries"`
	ResultsPerQuery   int    `yaml:"results_per_query"`
	IncludeOriginal   *bool  `yaml:"include_original"` // default: true
	OriginalPlacement string `yaml:"original_placement"`
	PromptTemplate    string `yaml:"prompt_template"`
	Concurrency       int    `yaml:"concurrency"`
}

// IndexConfig selects the index backend.
type IndexConfig struct {
	Backend       string   `yaml:"backend"` // local, qdrant (default: local)
	Path          string   `yaml:"path"`    // local database directory
	MinSimilarity *float32 `yaml:"min_similarity"`
}

// ChunkingConfig holds text splitting settings. A zero overlap selects the
// default overlap, capped at half the chunk size.
type ChunkingConfig struct {
	ChunkSize    int      `yaml:"chunk_size"`
	ChunkOverlap int      `yaml:"chunk_overlap"`
	Separators   []string `yaml:"separators"`
	TextKey      string   `yaml:"text_key"`
}

// IngestionConfig holds ingestion pipeline settings.
type IngestionConfig struct {
	Workers    int           `yaml:"workers"`
	BatchSize  int           `yaml:"batch_size"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// ReembedConfig holds re-embedding settings.
type ReembedConfig struct {
	BatchSize      int           `yaml:"batch_size"`
	ReportInterval int           `yaml:"report_interval"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: info)
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var cfg Config
	cfg.ApplyDefaults()
	return cfg
}

// Load reads, expands, defaults and validates the YAML file at path. An empty
// path yields Default().
func Load(path string) (Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration from data.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	aiDefaults := ai.DefaultConfig()
	if c.AI.Host == "" {
		c.AI.Host = aiDefaults.GeneratorHost
	}
	if c.AI.EmbeddingModel == "" {
		c.AI.EmbeddingModel = aiDefaults.EmbeddingModel
	}
	if c.AI.GeneratorModel == "" {
		c.AI.GeneratorModel = aiDefaults.GeneratorModel
	}
	if c.AI.APIKey == "" {
		c.AI.APIKey = aiDefaults.APIKey
	}
	if c.AI.Temperature == 0 {
		c.AI.Temperature = aiDefaults.Temperature
	}

	if c.Retrieval.Queries <= 0 {
		c.Retrieval.Queries = core.DefaultNumberOfQueries
	}
	if c.Retrieval.ResultsPerQuery <= 0 {
		c.Retrieval.ResultsPerQuery = core.DefaultNumberOfResultsPerQuery
	}
	if c.Retrieval.IncludeOriginal == nil {
		include := true
		c.Retrieval.IncludeOriginal = &include
	}
	if c.Retrieval.OriginalPlacement == "" {
		c.Retrieval.OriginalPlacement = core.PlaceOriginalFirst.String()
	}
	if c.Retrieval.Concurrency <= 0 {
		c.Retrieval.Concurrency = retrieval.DefaultConcurrency
	}

	if c.Index.Backend == "" {
		c.Index.Backend = BackendLocal
	}
	if c.Index.Path == "" {
		c.Index.Path = "multiquery.db"
	}

	c.Qdrant.ApplyDefaults()

	if c.Chunking.ChunkSize <= 0 {
		c.Chunking.ChunkSize = chunking.DefaultChunkSize
	}
	if c.Chunking.ChunkOverlap == 0 {
		c.Chunking.ChunkOverlap = min(chunking.DefaultChunkOverlap, c.Chunking.ChunkSize/2)
	}
	if len(c.Chunking.Separators) == 0 {
		c.Chunking.Separators = chunking.DefaultSeparators
	}
	if c.Chunking.TextKey == "" {
		c.Chunking.TextKey = core.TextField
	}

	if c.Ingestion.BatchSize <= 0 {
		c.Ingestion.BatchSize = ingestion.DefaultBatchSize
	}
	if c.Ingestion.MaxRetries <= 0 {
		c.Ingestion.MaxRetries = ingestion.DefaultMaxRetries
	}
	if c.Ingestion.RetryDelay <= 0 {
		c.Ingestion.RetryDelay = ingestion.DefaultRetryDelay
	}

	reembedDefaults := reembed.DefaultConfig()
	if c.Reembed.BatchSize <= 0 {
		c.Reembed.BatchSize = reembedDefaults.BatchSize
	}
	if c.Reembed.ReportInterval <= 0 {
		c.Reembed.ReportInterval = reembedDefaults.ReportInterval
	}
	if c.Reembed.MaxRetries <= 0 {
		c.Reembed.MaxRetries = reembedDefaults.MaxRetries
	}
	if c.Reembed.RetryDelay <= 0 {
		c.Reembed.RetryDelay = reembedDefaults.RetryDelay
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if err := c.ToAI().Validate(); err != nil {
		return err
	}
	if err := c.ToRetrieval().Validate(); err != nil {
		return fmt.Errorf("retrieval: %w", err)
	}
	if _, err := core.ParseOriginalPlacement(c.Retrieval.OriginalPlacement); err != nil {
		return fmt.Errorf("retrieval.original_placement: %w", err)
	}

	switch c.Index.Backend {
	case BackendLocal:
		if m := c.Index.MinSimilarity; m != nil && (*m < -1 || *m > 1) {
			return fmt.Errorf("index.min_similarity must be between -1 and 1, got %v", *m)
		}
	case BackendQdrant:
		if err := c.Qdrant.Validate(); err != nil {
			return fmt.Errorf("qdrant: %w", err)
		}
	default:
		return fmt.Errorf("index.backend must be %q or %q, got %q", BackendLocal, BackendQdrant, c.Index.Backend)
	}

	chunkCfg := c.ToChunking()
	if err := chunkCfg.Validate(); err != nil {
		return fmt.Errorf("chunking: %w", err)
	}

	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// ToAI converts the ai section to an ai.Config.
func (c *Config) ToAI() *ai.Config {
	embeddingHost := c.AI.EmbeddingHost
	if embeddingHost == "" {
		embeddingHost = c.AI.Host
	}
	generatorHost := c.AI.GeneratorHost
	if generatorHost == "" {
		generatorHost = c.AI.Host
	}
	return ai.NewConfig(
		ai.WithEmbeddingHost(embeddingHost),
		ai.WithGeneratorHost(generatorHost),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithGeneratorModel(c.AI.GeneratorModel),
		ai.WithAPIKey(c.AI.APIKey),
		ai.WithTemperature(c.AI.Temperature),
	)
}

// ToRetrieval converts the retrieval section to a core.RetrievalConfig.
// An invalid placement falls back to first; Validate reports it.
func (c *Config) ToRetrieval() core.RetrievalConfig {
	placement, _ := core.ParseOriginalPlacement(c.Retrieval.OriginalPlacement)
	include := c.Retrieval.IncludeOriginal == nil || *c.Retrieval.IncludeOriginal
	return core.NewRetrievalConfig(
		core.WithNumberOfQueries(c.Retrieval.Queries),
		core.WithNumberOfResultsPerQuery(c.Retrieval.ResultsPerQuery),
		core.WithIncludeOriginal(include),
		core.WithOriginalPlacement(placement),
		core.WithPromptTemplate(c.Retrieval.PromptTemplate),
	)
}

// ToChunking converts the chunking section to a chunking.Config.
func (c *Config) ToChunking() chunking.Config {
	return chunking.Config{
		ChunkSize:    c.Chunking.ChunkSize,
		ChunkOverlap: c.Chunking.ChunkOverlap,
		Separators:   c.Chunking.Separators,
		TextKey:      c.Chunking.TextKey,
	}
}

// ToReembed converts the reembed section to a reembed.Config.
func (c *Config) ToReembed() *reembed.Config {
	return &reembed.Config{
		BatchSize:      c.Reembed.BatchSize,
		ReportInterval: c.Reembed.ReportInterval,
		MaxRetries:     c.Reembed.MaxRetries,
		RetryDelay:     c.Reembed.RetryDelay,
	}
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
