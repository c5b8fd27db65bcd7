package expand

import (
	"context"
	"log/slog"

	"github.com/poiesic/multiquery/ai"
	"github.com/poiesic/multiquery/core"
)

// Expander derives alternative search queries with a text generation model.
type Expander struct {
	generator ai.Generator
	logger    *slog.Logger
}

// Option is a functional option for configuring an Expander.
type Option func(*Expander) error

// WithLogger sets a custom logger for the expander.
// If not provided, the default logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Expander) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger.With("component", "query-expander")
		return nil
	}
}

// NewExpander creates an Expander that uses gen for query generation.
func NewExpander(gen ai.Generator, opts ...Option) (*Expander, error) {
	if gen == nil {
		return nil, ErrNilGenerator
	}

	e := &Expander{
		generator: gen,
		logger:    slog.Default().With("component", "query-expander"),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Expand returns the ordered list of queries to search for query.
//
// The derived queries keep the order the model produced them in. When
// cfg.IncludeOriginal is set the original query is added first, or last with
// core.PlaceOriginalLast. A failed model call is returned as a *GenerationError.
func (e *Expander) Expand(ctx context.Context, query string, cfg core.RetrievalConfig) ([]string, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	prompt, err := BuildPrompt(cfg.PromptTemplate, query, cfg.NumberOfQueries)
	if err != nil {
		e.logger.Error("failed to build prompt", "err", err)
		return nil, err
	}

	reply, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		genErr := &GenerationError{Query: query, Err: err}
		e.logger.Error("query generation failed", "query", query, "err", err)
		return nil, genErr
	}

	derived := ParseQueries(reply, cfg.NumberOfQueries)
	if len(derived) < cfg.NumberOfQueries {
		e.logger.Debug("model returned fewer queries than requested",
			"requested", cfg.NumberOfQueries, "parsed", len(derived))
	}

	if !cfg.IncludeOriginal {
		return derived, nil
	}

	queries := make([]string, 0, len(derived)+1)
	switch cfg.OriginalPlacement {
	case core.PlaceOriginalLast:
		queries = append(queries, derived...)
		queries = append(queries, query)
	default:
		queries = append(queries, query)
		queries = append(queries, derived...)
	}

	e.logger.Debug("expanded query", "query", query, "queries", len(queries))
	return queries, nil
}
