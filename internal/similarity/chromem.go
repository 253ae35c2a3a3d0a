package similarity

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/scribe/internal/embeddings"
	"github.com/fyrsmithlabs/scribe/internal/patterns"
)

// ChromemIndex is a persistent pattern index backed by chromem-go, an
// embeddable vector database with no external service dependency.
// Pattern vectors survive process restarts; Load replaces the
// collection wholesale so the file on disk always mirrors the
// authoritative pattern source.
type ChromemIndex struct {
	db         *chromem.DB
	embedder   embeddings.Provider
	logger     *zap.Logger
	collection string

	mu     sync.RWMutex
	coll   *chromem.Collection
	loaded bool
}

// NewChromemIndex opens (or creates) the persistent store.
func NewChromemIndex(cfg Config, embedder embeddings.Provider, logger *zap.Logger) (*ChromemIndex, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: chromem backend requires a path", ErrInvalidConfig)
	}

	db, err := chromem.NewPersistentDB(cfg.Path, true)
	if err != nil {
		return nil, fmt.Errorf("opening chromem store: %w", err)
	}

	return &ChromemIndex{
		db:         db,
		embedder:   embedder,
		logger:     logger,
		collection: cfg.Collection,
	}, nil
}

// embeddingFunc adapts the embeddings provider to chromem's interface.
func (ci *ChromemIndex) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return ci.embedder.EmbedQuery(ctx, text)
	}
}

// Load replaces the collection with the given patterns.
func (ci *ChromemIndex) Load(ctx context.Context, entries []patterns.Entry) (int, error) {
	if len(entries) == 0 {
		ci.logger.Warn("no patterns to load, similarity index stays empty")
		return 0, nil
	}

	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Text
	}
	vectors, err := ci.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding patterns: %w", err)
	}

	docs := make([]chromem.Document, len(entries))
	for i, e := range entries {
		docs[i] = chromem.Document{
			ID:        strconv.Itoa(i),
			Content:   e.Text,
			Embedding: embeddings.Normalize(vectors[i]),
			Metadata: map[string]string{
				"category": e.Category,
				"priority": string(e.Priority),
				"domain":   e.Domain,
			},
		}
	}

	ci.mu.Lock()
	defer ci.mu.Unlock()

	// Recreate the collection so removed patterns disappear.
	if err := ci.db.DeleteCollection(ci.collection); err != nil {
		return 0, fmt.Errorf("resetting collection: %w", err)
	}
	coll, err := ci.db.GetOrCreateCollection(ci.collection, nil, ci.embeddingFunc())
	if err != nil {
		return 0, fmt.Errorf("creating collection: %w", err)
	}
	if err := coll.AddDocuments(ctx, docs, 1); err != nil {
		return 0, fmt.Errorf("adding patterns: %w", err)
	}

	ci.coll = coll
	ci.loaded = true
	ci.logger.Info("similarity index loaded",
		zap.String("backend", "chromem"),
		zap.Int("patterns", len(entries)))
	return len(entries), nil
}

// FindBestMatch returns the nearest pattern and its score.
func (ci *ChromemIndex) FindBestMatch(ctx context.Context, text string, threshold float32) (Match, bool, error) {
	matches, err := ci.query(ctx, text, 1)
	if err != nil {
		return Match{}, false, err
	}
	if len(matches) == 0 {
		return Match{}, false, nil
	}
	best := matches[0]
	return best, best.Score >= threshold, nil
}

// FindTopMatches returns up to k patterns at or above threshold.
func (ci *ChromemIndex) FindTopMatches(ctx context.Context, text string, k int, threshold float32) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}
	matches, err := ci.query(ctx, text, k)
	if err != nil {
		return nil, err
	}
	kept := matches[:0]
	for _, m := range matches {
		if m.Score >= threshold {
			kept = append(kept, m)
		}
	}
	return kept, nil
}

// query runs a nearest-neighbor search over the collection.
func (ci *ChromemIndex) query(ctx context.Context, text string, k int) ([]Match, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	ci.mu.RLock()
	coll := ci.coll
	loaded := ci.loaded
	ci.mu.RUnlock()
	if !loaded || coll == nil {
		return nil, ErrNotLoaded
	}

	query, err := ci.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	embeddings.Normalize(query)

	count := coll.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := coll.QueryEmbedding(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying patterns: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, Match{
			Entry: patterns.Entry{
				Text:     r.Content,
				Category: r.Metadata["category"],
				Priority: patterns.Priority(r.Metadata["priority"]),
				Domain:   r.Metadata["domain"],
			},
			Score: r.Similarity,
		})
	}
	return matches, nil
}

// Loaded reports whether the index holds patterns.
func (ci *ChromemIndex) Loaded() bool {
	ci.mu.RLock()
	defer ci.mu.RUnlock()
	return ci.loaded
}

var _ Index = (*ChromemIndex)(nil)
