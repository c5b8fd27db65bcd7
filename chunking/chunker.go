// Package chunking splits documents into overlapping chunks before they are
// indexed. Splitting is recursive: text is cut on paragraph breaks first,
// then line breaks, then spaces, and adjacent pieces are merged back up to
// the chunk size.
package chunking

import (
	"fmt"
	"log/slog"

	"github.com/poiesic/multiquery/core"
	"github.com/tmc/langchaingo/textsplitter"
)

// Defaults for Config.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// DefaultSeparators are tried in order when splitting.
var DefaultSeparators = []string{"\n\n", "\n", " "}

// Config controls chunk sizes. Sizes are measured in characters.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
	// TextKey is the record column holding text in SplitRecords.
	TextKey string
}

// DefaultConfig returns the default chunking parameters.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
		Separators:   DefaultSeparators,
		TextKey:      core.TextField,
	}
}

// Validate checks the chunk sizes and fills in missing separators and text key.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d", ErrInvalidConfig, c.ChunkSize, c.ChunkOverlap)
	}
	if len(c.Separators) == 0 {
		c.Separators = DefaultSeparators
	}
	if c.TextKey == "" {
		c.TextKey = core.TextField
	}
	return nil
}

// Chunker splits documents with a langchaingo text splitter.
type Chunker struct {
	splitter textsplitter.TextSplitter
	textKey  string
	logger   *slog.Logger
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Chunker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSplitter replaces the recursive character splitter.
func WithSplitter(s textsplitter.TextSplitter) Option {
	return func(c *Chunker) {
		if s != nil {
			c.splitter = s
		}
	}
}

// NewChunker creates a Chunker for cfg.
func NewChunker(cfg Config, opts ...Option) (*Chunker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Chunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(cfg.ChunkSize),
			textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
			textsplitter.WithSeparators(cfg.Separators),
		),
		textKey: cfg.TextKey,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "chunker")
	return c, nil
}

// SplitText splits one text. Every chunk gets its own copy of metadata.
func (c *Chunker) SplitText(text string, metadata core.Metadata) ([]core.Document, error) {
	pieces, err := c.splitter.SplitText(text)
	if err != nil {
		c.logger.Error("failed to split text", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrSplit, err)
	}

	chunks := make([]core.Document, 0, len(pieces))
	for _, piece := range pieces {
		chunks = append(chunks, core.Document{Content: piece, Metadata: metadata.Clone()})
	}
	return chunks, nil
}

// SplitDocuments splits every document, keeping input order.
func (c *Chunker) SplitDocuments(docs []core.Document) ([]core.Document, error) {
	if len(docs) == 0 {
		return nil, ErrNoInput
	}

	var chunks []core.Document
	for i, doc := range docs {
		split, err := c.SplitText(doc.Content, doc.Metadata)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		chunks = append(chunks, split...)
	}

	c.logger.Debug("split documents", "documents", len(docs), "chunks", len(chunks))
	return chunks, nil
}

// SplitRecords splits record rows. The text column is taken from the
// configured TextKey and every other column becomes chunk metadata. The
// returned rows carry chunk text under core.TextField.
func (c *Chunker) SplitRecords(records []core.Record) ([]core.Record, error) {
	if len(records) == 0 {
		return nil, ErrEmptyRecords
	}

	docs := make([]core.Document, 0, len(records))
	for i, rec := range records {
		doc, ok := rec.ToDocument(c.textKey)
		if !ok {
			return nil, fmt.Errorf("%w: row %d, column %q", ErrMissingText, i, c.textKey)
		}
		docs = append(docs, doc)
	}

	chunks, err := c.SplitDocuments(docs)
	if err != nil {
		return nil, err
	}
	return core.ToRecords(chunks), nil
}
