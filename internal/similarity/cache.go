package similarity

import (
	"container/heap"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/fyrsmithlabs/scribe/internal/embeddings"
	"github.com/fyrsmithlabs/scribe/internal/patterns"
	"go.uber.org/zap"
)

// heapScanThreshold is the candidate-set size above which FindTopMatches
// switches from a full sort to partial selection with a bounded heap.
const heapScanThreshold = 64

// Cache is the in-memory pattern index: one unit-normalized vector per
// pattern, scored by dot product against the embedded query.
type Cache struct {
	embedder embeddings.Provider
	logger   *zap.Logger

	mu      sync.RWMutex
	entries []patterns.Entry
	vectors [][]float32
	loaded  bool
}

// NewCache creates an empty in-memory index.
func NewCache(embedder embeddings.Provider, logger *zap.Logger) *Cache {
	return &Cache{
		embedder: embedder,
		logger:   logger,
	}
}

// Load embeds every pattern text in one batch call and stores the matrix.
func (c *Cache) Load(ctx context.Context, entries []patterns.Entry) (int, error) {
	if len(entries) == 0 {
		c.logger.Warn("no patterns to load, similarity index stays empty")
		return 0, nil
	}

	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Text
	}

	vectors, err := c.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding patterns: %w", err)
	}
	for i := range vectors {
		embeddings.Normalize(vectors[i])
	}

	c.mu.Lock()
	c.entries = entries
	c.vectors = vectors
	c.loaded = true
	c.mu.Unlock()

	c.logger.Info("similarity index loaded", zap.Int("patterns", len(entries)))
	return len(entries), nil
}

// FindBestMatch returns the arg-max entry and score for the query.
func (c *Cache) FindBestMatch(ctx context.Context, text string, threshold float32) (Match, bool, error) {
	if strings.TrimSpace(text) == "" {
		return Match{}, false, nil
	}

	query, err := c.embedQuery(ctx, text)
	if err != nil {
		return Match{}, false, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	best := Match{Score: -1}
	found := false
	for i, vec := range c.vectors {
		score := embeddings.Dot(query, vec)
		if !found || score > best.Score {
			best = Match{Entry: c.entries[i], Score: score}
			found = true
		}
	}
	if !found {
		return Match{}, false, nil
	}
	return best, best.Score >= threshold, nil
}

// FindTopMatches returns up to k entries at or above threshold, sorted
// by descending score. Uses partial selection with a bounded min-heap
// when the candidate set is large.
func (c *Cache) FindTopMatches(ctx context.Context, text string, k int, threshold float32) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	query, err := c.embedQuery(ctx, text)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.vectors) <= heapScanThreshold {
		matches := make([]Match, 0, len(c.vectors))
		for i, vec := range c.vectors {
			score := embeddings.Dot(query, vec)
			if score >= threshold {
				matches = append(matches, Match{Entry: c.entries[i], Score: score})
			}
		}
		sort.Slice(matches, func(i, j int) bool {
			return matches[i].Score > matches[j].Score
		})
		if len(matches) > k {
			matches = matches[:k]
		}
		return matches, nil
	}

	// Partial selection: keep the k best seen so far in a min-heap,
	// evicting the smallest when a better candidate arrives.
	h := &matchHeap{}
	heap.Init(h)
	for i, vec := range c.vectors {
		score := embeddings.Dot(query, vec)
		if score < threshold {
			continue
		}
		m := Match{Entry: c.entries[i], Score: score}
		if h.Len() < k {
			heap.Push(h, m)
		} else if score > (*h)[0].Score {
			(*h)[0] = m
			heap.Fix(h, 0)
		}
	}

	matches := make([]Match, h.Len())
	for i := len(matches) - 1; i >= 0; i-- {
		matches[i] = heap.Pop(h).(Match)
	}
	return matches, nil
}

// Loaded reports whether the index holds patterns.
func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// embedQuery embeds the query text after checking load state.
func (c *Cache) embedQuery(ctx context.Context, text string) ([]float32, error) {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if !loaded {
		return nil, ErrNotLoaded
	}

	query, err := c.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return embeddings.Normalize(query), nil
}

// matchHeap is a min-heap of matches ordered by score.
type matchHeap []Match

func (h matchHeap) Len() int            { return len(h) }
func (h matchHeap) Less(i, j int) bool  { return h[i].Score < h[j].Score }
func (h matchHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *matchHeap) Push(x interface{}) { *h = append(*h, x.(Match)) }
func (h *matchHeap) Pop() interface{} {
	old := *h
	n := len(old)
	m := old[n-1]
	*h = old[:n-1]
	return m
}

var _ Index = (*Cache)(nil)
