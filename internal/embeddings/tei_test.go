package embeddings

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTEIServer(t *testing.T, vectors [][]float32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embed", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewEncoder(w).Encode(vectors))
	}))
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(Config{})
	require.NoError(t, err)
	assert.Equal(t, 384, p.Dimension(), "defaults apply when the config is empty")
	require.NoError(t, p.Close())

	_, err = NewProvider(Config{Provider: "ollama"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestEmbedDocuments(t *testing.T) {
	srv := newTEIServer(t, [][]float32{{3, 4}, {0, 2}})
	defer srv.Close()

	p, err := NewProvider(Config{BaseURL: srv.URL, Dimension: 2})
	require.NoError(t, err)

	vectors, err := p.EmbedDocuments(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)

	// Vectors come back unit-normalized.
	assert.InDelta(t, 0.6, vectors[0][0], 1e-6)
	assert.InDelta(t, 0.8, vectors[0][1], 1e-6)
	assert.InDelta(t, 1.0, float64(Dot(vectors[1], vectors[1])), 1e-6)
}

func TestEmbedDocuments_EmptyInput(t *testing.T) {
	p, err := NewProvider(Config{})
	require.NoError(t, err)

	_, err = p.EmbedDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestEmbedDocuments_CountMismatch(t *testing.T) {
	srv := newTEIServer(t, [][]float32{{1, 0}})
	defer srv.Close()

	p, err := NewProvider(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = p.EmbedDocuments(context.Background(), []string{"first", "second"})
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
}

func TestEmbedQuery(t *testing.T) {
	srv := newTEIServer(t, [][]float32{{0, 5}})
	defer srv.Close()

	p, err := NewProvider(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	vec, err := p.EmbedQuery(context.Background(), "query text")
	require.NoError(t, err)
	assert.InDelta(t, 0.0, vec[0], 1e-6)
	assert.InDelta(t, 1.0, vec[1], 1e-6)
}

func TestEmbedQuery_EmptyText(t *testing.T) {
	p, err := NewProvider(Config{})
	require.NoError(t, err)

	_, err = p.EmbedQuery(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestEmbedQuery_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p, err := NewProvider(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = p.EmbedQuery(context.Background(), "query text")
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	assert.InDelta(t, 1.0, math.Sqrt(float64(v[0]*v[0]+v[1]*v[1])), 1e-6)

	zero := Normalize([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, zero)
}

func TestDot(t *testing.T) {
	assert.InDelta(t, 11.0, Dot([]float32{1, 2}, []float32{3, 4}), 1e-6)
	// Mismatched lengths use the shorter vector.
	assert.InDelta(t, 3.0, Dot([]float32{1, 2, 9}, []float32{3}), 1e-6)
}
