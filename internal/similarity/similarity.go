// Package similarity provides the pattern cache: pre-embedded trigger
// phrases answering nearest-neighbor queries for the Tier-1 detector.
package similarity

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/scribe/internal/embeddings"
	"github.com/fyrsmithlabs/scribe/internal/patterns"
	"go.uber.org/zap"
)

// Common errors for index operations.
var (
	ErrNotLoaded     = errors.New("similarity index not loaded")
	ErrInvalidConfig = errors.New("invalid similarity config")
)

// Match pairs a pattern entry with its similarity score for a query.
type Match struct {
	// Entry is the matched trigger phrase.
	Entry patterns.Entry `json:"entry"`

	// Score is the cosine similarity in [−1, 1]; stored and query
	// vectors are unit-normalized so this is a plain dot product.
	Score float32 `json:"score"`
}

// Index answers nearest-neighbor queries over loaded patterns.
// Implementations are read-only between Load calls and safe for
// concurrent readers.
type Index interface {
	// Load embeds all pattern texts in one batch call and stores them.
	// An empty input is a soft warning: the count is 0 and no error is
	// returned, but the index stays unloaded.
	Load(ctx context.Context, entries []patterns.Entry) (int, error)

	// FindBestMatch returns the arg-max entry and its score. The second
	// return reports whether the score met the threshold; the match is
	// returned either way for diagnostics. An empty or whitespace-only
	// query yields no match without error.
	FindBestMatch(ctx context.Context, text string, threshold float32) (Match, bool, error)

	// FindTopMatches returns up to k entries at or above threshold,
	// sorted by descending score.
	FindTopMatches(ctx context.Context, text string, k int, threshold float32) ([]Match, error)

	// Loaded reports whether Load has stored at least one pattern.
	Loaded() bool
}

// Config selects and configures the index backend.
type Config struct {
	// Backend is "memory" (default) or "chromem" (persistent embedded store).
	Backend string `koanf:"backend"`

	// Path is the chromem persistence directory.
	Path string `koanf:"path"`

	// Collection is the chromem collection name.
	Collection string `koanf:"collection"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
	if c.Collection == "" {
		c.Collection = "scribe_patterns"
	}
}

// New creates an Index for the configured backend.
func New(cfg Config, embedder embeddings.Provider, logger *zap.Logger) (Index, error) {
	cfg.ApplyDefaults()
	switch cfg.Backend {
	case "memory":
		return NewCache(embedder, logger), nil
	case "chromem":
		return NewChromemIndex(cfg, embedder, logger)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, cfg.Backend)
	}
}
