package similarity

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/scribe/internal/patterns"
)

// fakeEmbedder maps known texts to fixed vectors.
type fakeEmbedder struct {
	vecs  map[string][]float32
	query []float32
	err   error
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, ok := f.vecs[text]
		if !ok {
			return nil, fmt.Errorf("no fixture vector for %q", text)
		}
		// Copy: the cache normalizes in place.
		out[i] = append([]float32(nil), vec...)
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append([]float32(nil), f.query...), nil
}

func (f *fakeEmbedder) Dimension() int { return len(f.query) }
func (f *fakeEmbedder) Close() error   { return nil }

func axisEmbedder() *fakeEmbedder {
	return &fakeEmbedder{
		vecs: map[string][]float32{
			"alpha": {1, 0, 0},
			"beta":  {0, 1, 0},
			"gamma": {0, 0, 1},
		},
		// Unit vector: alpha scores 0.8, beta 0.6, gamma 0.
		query: []float32{0.8, 0.6, 0},
	}
}

func axisEntries() []patterns.Entry {
	return []patterns.Entry{
		{Text: "alpha", Category: "decision", Priority: patterns.PriorityHigh},
		{Text: "beta", Category: "tradeoff", Priority: patterns.PriorityMedium},
		{Text: "gamma", Category: "outcome", Priority: patterns.PriorityLow},
	}
}

func loadedCache(t *testing.T) *Cache {
	t.Helper()
	c := NewCache(axisEmbedder(), zap.NewNop())
	n, err := c.Load(context.Background(), axisEntries())
	require.NoError(t, err)
	require.Equal(t, 3, n)
	return c
}

func TestCache_QueryBeforeLoad(t *testing.T) {
	c := NewCache(axisEmbedder(), zap.NewNop())
	assert.False(t, c.Loaded())

	_, _, err := c.FindBestMatch(context.Background(), "anything", 0)
	assert.ErrorIs(t, err, ErrNotLoaded)

	_, err = c.FindTopMatches(context.Background(), "anything", 3, 0)
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestCache_LoadEmptyStaysUnloaded(t *testing.T) {
	c := NewCache(axisEmbedder(), zap.NewNop())
	n, err := c.Load(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.False(t, c.Loaded())
}

func TestCache_LoadEmbedderError(t *testing.T) {
	embedder := axisEmbedder()
	embedder.err = errors.New("endpoint down")
	c := NewCache(embedder, zap.NewNop())

	_, err := c.Load(context.Background(), axisEntries())
	require.Error(t, err)
	assert.False(t, c.Loaded())
}

func TestFindBestMatch(t *testing.T) {
	c := loadedCache(t)

	match, found, err := c.FindBestMatch(context.Background(), "query text", 0.75)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "alpha", match.Entry.Text)
	assert.InDelta(t, 0.8, match.Score, 1e-5)
}

func TestFindBestMatch_BelowThresholdStillReturnsMatch(t *testing.T) {
	c := loadedCache(t)

	match, found, err := c.FindBestMatch(context.Background(), "query text", 0.9)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, "alpha", match.Entry.Text, "best match is surfaced for diagnostics even below threshold")
}

func TestFindBestMatch_EmptyQuery(t *testing.T) {
	c := loadedCache(t)

	_, found, err := c.FindBestMatch(context.Background(), "   \n ", 0)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFindTopMatches(t *testing.T) {
	c := loadedCache(t)

	matches, err := c.FindTopMatches(context.Background(), "query text", 2, 0.1)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "alpha", matches[0].Entry.Text)
	assert.Equal(t, "beta", matches[1].Entry.Text)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestFindTopMatches_ThresholdFilters(t *testing.T) {
	c := loadedCache(t)

	matches, err := c.FindTopMatches(context.Background(), "query text", 5, 0.7)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "alpha", matches[0].Entry.Text)
}

func TestFindTopMatches_ZeroK(t *testing.T) {
	c := loadedCache(t)

	matches, err := c.FindTopMatches(context.Background(), "query text", 0, 0)
	require.NoError(t, err)
	assert.Nil(t, matches)
}

func TestFindTopMatches_HeapSelection(t *testing.T) {
	// Enough candidates to take the bounded-heap path. Pattern i gets a
	// one-hot vector at index i; the query weights index i by n-i, so
	// the expected ranking is p000, p001, p002, ...
	const n = heapScanThreshold + 36

	vecs := make(map[string][]float32, n)
	entries := make([]patterns.Entry, n)
	query := make([]float32, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("p%03d", i)
		vec := make([]float32, n)
		vec[i] = 1
		vecs[name] = vec
		entries[i] = patterns.Entry{Text: name, Category: "decision", Priority: patterns.PriorityMedium}
		query[i] = float32(n - i)
	}

	c := NewCache(&fakeEmbedder{vecs: vecs, query: query}, zap.NewNop())
	loaded, err := c.Load(context.Background(), entries)
	require.NoError(t, err)
	require.Equal(t, n, loaded)

	matches, err := c.FindTopMatches(context.Background(), "query text", 3, 0)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, "p000", matches[0].Entry.Text)
	assert.Equal(t, "p001", matches[1].Entry.Text)
	assert.Equal(t, "p002", matches[2].Entry.Text)
	assert.Greater(t, matches[0].Score, matches[1].Score)
	assert.Greater(t, matches[1].Score, matches[2].Score)
}

func TestNew_BackendSelection(t *testing.T) {
	index, err := New(Config{}, axisEmbedder(), zap.NewNop())
	require.NoError(t, err)
	_, ok := index.(*Cache)
	assert.True(t, ok, "default backend is the in-memory cache")

	_, err = New(Config{Backend: "postgres"}, axisEmbedder(), zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
