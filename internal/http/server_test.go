package http

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/scribe/internal/detector"
	"github.com/fyrsmithlabs/scribe/internal/event"
	"github.com/fyrsmithlabs/scribe/internal/llm"
	"github.com/fyrsmithlabs/scribe/internal/patterns"
	"github.com/fyrsmithlabs/scribe/internal/pipeline"
	"github.com/fyrsmithlabs/scribe/internal/policy"
	"github.com/fyrsmithlabs/scribe/internal/record"
	"github.com/fyrsmithlabs/scribe/internal/redact"
	"github.com/fyrsmithlabs/scribe/internal/review"
	"github.com/fyrsmithlabs/scribe/internal/similarity"
)

// stubIndex scores every query with a fixed value.
type stubIndex struct {
	score  float32
	loaded bool
}

func (s *stubIndex) Load(ctx context.Context, entries []patterns.Entry) (int, error) {
	return len(entries), nil
}

func (s *stubIndex) FindBestMatch(ctx context.Context, text string, threshold float32) (similarity.Match, bool, error) {
	if !s.loaded {
		return similarity.Match{}, false, similarity.ErrNotLoaded
	}
	return similarity.Match{
		Entry: patterns.Entry{Text: "we decided to go with", Category: "decision", Priority: patterns.PriorityHigh, Domain: "engineering"},
		Score: s.score,
	}, true, nil
}

func (s *stubIndex) FindTopMatches(ctx context.Context, text string, k int, threshold float32) ([]similarity.Match, error) {
	return nil, nil
}

func (s *stubIndex) Loaded() bool { return s.loaded }

// stubGenerator approves everything.
type stubGenerator struct{}

func (stubGenerator) Generate(ctx context.Context, req llm.GenerateRequest) (string, error) {
	return `{"should_capture": true, "reason": "decision", "domain": "engineering"}`, nil
}

func (stubGenerator) Available() bool { return true }

type memorySink struct {
	records []*record.DecisionRecord
}

func (m *memorySink) Save(ctx context.Context, rec *record.DecisionRecord) error {
	m.records = append(m.records, rec)
	return nil
}

type serverFixture struct {
	server *Server
	index  *stubIndex
	queue  *review.Queue
	sink   *memorySink
}

func newServerFixture(t *testing.T, score float32, secret string) *serverFixture {
	t.Helper()
	logger := zap.NewNop()

	index := &stubIndex{score: score, loaded: true}
	det, err := detector.New(index, detector.Config{}, logger)
	require.NoError(t, err)

	scrubber, err := redact.New(redact.DefaultRules())
	require.NoError(t, err)

	builder := record.NewBuilder(nil, scrubber, logger)

	queue, err := review.NewQueue(filepath.Join(t.TempDir(), "queue.json"), logger)
	require.NoError(t, err)

	sink := &memorySink{}
	service := pipeline.New(det, policy.New(stubGenerator{}, logger), builder, queue, sink, index.Loaded, logger)

	webhook := event.NewWebhookSource(secret, event.SourceWebhook)
	server, err := NewServer(service, queue, scrubber, webhook, logger, nil)
	require.NoError(t, err)

	return &serverFixture{server: server, index: index, queue: queue, sink: sink}
}

func (fx *serverFixture) do(method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	fx.server.echo.ServeHTTP(rec, req)
	return rec
}

const captureBody = `{"text": "We decided to use PostgreSQL because \"JSONB support is what we need\".", "user": "alice", "channel": "eng"}`

func TestHealth(t *testing.T) {
	fx := newServerFixture(t, 0.9, "")

	rec := fx.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestHealth_Degraded(t *testing.T) {
	fx := newServerFixture(t, 0.9, "")
	fx.index.loaded = false

	rec := fx.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
}

func TestCapture(t *testing.T) {
	fx := newServerFixture(t, 0.95, "")

	rec := fx.do(http.MethodPost, "/api/v1/capture", captureBody, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var outcome pipeline.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	assert.Equal(t, pipeline.DispositionAutoCaptured, outcome.Disposition)
	assert.Len(t, fx.sink.records, 1)
}

func TestCapture_MissingText(t *testing.T) {
	fx := newServerFixture(t, 0.95, "")

	rec := fx.do(http.MethodPost, "/api/v1/capture", `{"user": "alice"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCapture_DetectionUnavailable(t *testing.T) {
	fx := newServerFixture(t, 0.95, "")
	fx.index.loaded = false

	rec := fx.do(http.MethodPost, "/api/v1/capture", captureBody, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWebhook_SignatureRequired(t *testing.T) {
	fx := newServerFixture(t, 0.95, "topsecret")

	rec := fx.do(http.MethodPost, "/api/v1/webhook", captureBody, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhook_SignedPayloadCaptured(t *testing.T) {
	fx := newServerFixture(t, 0.95, "topsecret")

	mac := hmac.New(sha256.New, []byte("topsecret"))
	mac.Write([]byte(captureBody))
	signature := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	rec := fx.do(http.MethodPost, "/api/v1/webhook", captureBody, map[string]string{
		"X-Signature-256": signature,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var outcome pipeline.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	assert.Equal(t, pipeline.DispositionAutoCaptured, outcome.Disposition)
}

func TestWebhook_MalformedBody(t *testing.T) {
	fx := newServerFixture(t, 0.95, "")

	rec := fx.do(http.MethodPost, "/api/v1/webhook", "not json", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScrub(t *testing.T) {
	fx := newServerFixture(t, 0.95, "")

	rec := fx.do(http.MethodPost, "/api/v1/scrub", `{"content": "mail me at alice@example.com"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ScrubResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotContains(t, resp.Content, "alice@example.com")
	assert.Equal(t, 1, resp.FindingsCount)
	assert.Contains(t, resp.Categories, "email")
}

func TestScrub_MissingContent(t *testing.T) {
	fx := newServerFixture(t, 0.95, "")

	rec := fx.do(http.MethodPost, "/api/v1/scrub", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReviewFlow(t *testing.T) {
	// Mid-confidence capture lands in the queue, then gets approved.
	fx := newServerFixture(t, 0.70, "")

	rec := fx.do(http.MethodPost, "/api/v1/capture", captureBody, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var outcome pipeline.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	require.Equal(t, pipeline.DispositionQueued, outcome.Disposition)
	require.Len(t, outcome.Records, 1)
	recordID := outcome.Records[0].ID

	rec = fx.do(http.MethodGet, "/api/v1/review/pending", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var pending PendingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pending))
	require.Len(t, pending.Items, 1)
	assert.Equal(t, recordID, pending.Items[0].RecordID)

	rec = fx.do(http.MethodPost, "/api/v1/review/"+recordID,
		`{"reviewer": "alice", "answers": {"worth_saving": true}}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var submitted SubmitReviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))
	assert.Equal(t, "approved", submitted.Result)
	require.NotNil(t, submitted.Record)
	assert.Len(t, fx.sink.records, 1)

	// A second submission conflicts.
	rec = fx.do(http.MethodPost, "/api/v1/review/"+recordID,
		`{"reviewer": "bob", "answers": {"worth_saving": true}}`, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSubmitReview_UnrecognizedOverrideRejected(t *testing.T) {
	fx := newServerFixture(t, 0.70, "")

	rec := fx.do(http.MethodPost, "/api/v1/capture", captureBody, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var outcome pipeline.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	recordID := outcome.Records[0].ID

	rec = fx.do(http.MethodPost, "/api/v1/review/"+recordID,
		`{"reviewer": "alice", "answers": {"worth_saving": true, "status": "banana", "sensitivity": "ultra-secret"}}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, fx.sink.records, "nothing reaches the sink on invalid answers")

	// The item is still pending.
	rec = fx.do(http.MethodGet, "/api/v1/review/pending", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var pending PendingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pending))
	assert.Len(t, pending.Items, 1)
}

func TestSubmitReview_NotFound(t *testing.T) {
	fx := newServerFixture(t, 0.70, "")

	rec := fx.do(http.MethodPost, "/api/v1/review/dr-missing",
		`{"reviewer": "alice", "answers": {"worth_saving": true}}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRemoveReviewItem(t *testing.T) {
	fx := newServerFixture(t, 0.70, "")

	rec := fx.do(http.MethodPost, "/api/v1/capture", captureBody, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var outcome pipeline.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	recordID := outcome.Records[0].ID

	rec = fx.do(http.MethodDelete, "/api/v1/review/"+recordID, "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = fx.do(http.MethodDelete, "/api/v1/review/"+recordID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClearReviewed(t *testing.T) {
	fx := newServerFixture(t, 0.70, "")

	rec := fx.do(http.MethodPost, "/api/v1/capture", captureBody, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var outcome pipeline.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	recordID := outcome.Records[0].ID

	rec = fx.do(http.MethodPost, "/api/v1/review/"+recordID,
		`{"reviewer": "alice", "answers": {"worth_saving": false}}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = fx.do(http.MethodPost, "/api/v1/review/clear", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var cleared ClearResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cleared))
	assert.Equal(t, 1, cleared.Removed)
}
