package pipeline

import (
	"context"
	"errors"
	"os"
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
	"github.com/fyrsmithlabs/scribe/internal/policy"
	"github.com/fyrsmithlabs/scribe/internal/record"
	"github.com/fyrsmithlabs/scribe/internal/redact"
	"github.com/fyrsmithlabs/scribe/internal/review"
	"github.com/fyrsmithlabs/scribe/internal/similarity"
)

// stubIndex returns a fixed score for every query.
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
		Entry: patterns.Entry{
			Text:     "we decided to go with",
			Category: "decision",
			Priority: patterns.PriorityHigh,
			Domain:   "engineering",
		},
		Score: s.score,
	}, s.score >= threshold, nil
}

func (s *stubIndex) FindTopMatches(ctx context.Context, text string, k int, threshold float32) ([]similarity.Match, error) {
	return nil, nil
}

func (s *stubIndex) Loaded() bool { return s.loaded }

// stubGenerator returns a canned policy response.
type stubGenerator struct {
	available bool
	response  string
	err       error
}

func (g *stubGenerator) Generate(ctx context.Context, req llm.GenerateRequest) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

func (g *stubGenerator) Available() bool { return g.available }

// memorySink collects saved records.
type memorySink struct {
	records []*record.DecisionRecord
}

func (m *memorySink) Save(ctx context.Context, rec *record.DecisionRecord) error {
	m.records = append(m.records, rec)
	return nil
}

type fixture struct {
	service *Service
	index   *stubIndex
	sink    *memorySink
	queue   *review.Queue
}

func newFixture(t *testing.T, score float32, gen llm.Generator) *fixture {
	t.Helper()
	logger := zap.NewNop()

	index := &stubIndex{score: score, loaded: true}
	det, err := detector.New(index, detector.Config{}, logger)
	require.NoError(t, err)

	filter := policy.New(gen, logger)

	scrubber, err := redact.New(nil)
	require.NoError(t, err)
	builder := record.NewBuilder(nil, scrubber, logger)

	queue, err := review.NewQueue(filepath.Join(t.TempDir(), "queue.json"), logger)
	require.NoError(t, err)

	sink := &memorySink{}
	service := New(det, filter, builder, queue, sink, index.Loaded, logger)

	return &fixture{service: service, index: index, sink: sink, queue: queue}
}

func captureWorthyEvent() event.RawEvent {
	return event.RawEvent{
		Text:    `We decided to use PostgreSQL over MySQL because "JSONB support is what we need for the events table".`,
		User:    "alice",
		Channel: "eng-infra",
		Source:  event.SourceChat,
	}
}

func approvingGenerator() *stubGenerator {
	return &stubGenerator{
		available: true,
		response:  `{"should_capture": true, "reason": "technical decision", "domain": "engineering"}`,
	}
}

func TestCapture_DetectionUnavailable(t *testing.T) {
	fx := newFixture(t, 0.9, approvingGenerator())
	fx.index.loaded = false

	_, err := fx.service.Capture(context.Background(), captureWorthyEvent(), "en")
	assert.ErrorIs(t, err, ErrDetectionUnavailable)
	assert.False(t, fx.service.Available())
}

func TestCapture_EmptyTextRejectedTier1(t *testing.T) {
	fx := newFixture(t, 0.9, approvingGenerator())

	outcome, err := fx.service.Capture(context.Background(), event.RawEvent{Text: ""}, "en")
	require.NoError(t, err)
	assert.Equal(t, DispositionRejectedTier1, outcome.Disposition)
}

func TestCapture_BelowThresholdRejectedTier1(t *testing.T) {
	fx := newFixture(t, 0.30, approvingGenerator())

	outcome, err := fx.service.Capture(context.Background(), captureWorthyEvent(), "en")
	require.NoError(t, err)
	assert.Equal(t, DispositionRejectedTier1, outcome.Disposition)
	assert.Empty(t, outcome.Records)
	assert.Empty(t, fx.sink.records)
	assert.Empty(t, fx.queue.Pending())
}

func TestCapture_PolicyRejectsTier2(t *testing.T) {
	gen := &stubGenerator{
		available: true,
		response:  `{"should_capture": false, "reason": "social chatter"}`,
	}
	fx := newFixture(t, 0.70, gen)

	outcome, err := fx.service.Capture(context.Background(), captureWorthyEvent(), "en")
	require.NoError(t, err)
	assert.Equal(t, DispositionRejectedTier2, outcome.Disposition)
	assert.Equal(t, "social chatter", outcome.Reason)
	assert.Empty(t, fx.sink.records)
	assert.Empty(t, fx.queue.Pending())
}

func TestCapture_PolicyFailureFailsOpen(t *testing.T) {
	gen := &stubGenerator{available: true, err: errors.New("model timeout")}
	fx := newFixture(t, 0.70, gen)

	outcome, err := fx.service.Capture(context.Background(), captureWorthyEvent(), "en")
	require.NoError(t, err)
	assert.Equal(t, DispositionQueued, outcome.Disposition,
		"a failing policy filter must not drop candidates")
	assert.Len(t, fx.queue.Pending(), 1)
}

func TestCapture_MidConfidenceQueuedForReview(t *testing.T) {
	fx := newFixture(t, 0.70, approvingGenerator())

	outcome, err := fx.service.Capture(context.Background(), captureWorthyEvent(), "en")
	require.NoError(t, err)
	assert.Equal(t, DispositionQueued, outcome.Disposition)
	require.Len(t, outcome.Records, 1)
	assert.Equal(t, record.ReviewStatePending, outcome.Records[0].Quality.ReviewState)

	pending := fx.queue.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, outcome.Records[0].ID, pending[0].RecordID)
	assert.Empty(t, fx.sink.records)
}

func TestCapture_HighConfidenceAutoCaptured(t *testing.T) {
	fx := newFixture(t, 0.95, approvingGenerator())

	outcome, err := fx.service.Capture(context.Background(), captureWorthyEvent(), "en")
	require.NoError(t, err)
	assert.Equal(t, DispositionAutoCaptured, outcome.Disposition)
	require.Len(t, outcome.Records, 1)
	assert.Equal(t, record.ReviewStateAutoCaptured, outcome.Records[0].Quality.ReviewState)

	require.Len(t, fx.sink.records, 1)
	assert.Empty(t, fx.queue.Pending())
	require.NoError(t, fx.sink.records[0].Validate())
}

func TestSubmitReview_ApprovedRecordFlowsToSink(t *testing.T) {
	fx := newFixture(t, 0.70, approvingGenerator())

	outcome, err := fx.service.Capture(context.Background(), captureWorthyEvent(), "en")
	require.NoError(t, err)
	recordID := outcome.Records[0].ID

	rec, err := fx.service.SubmitReview(context.Background(), recordID, review.Answers{
		WorthSaving: true,
	}, "alice")
	require.NoError(t, err)
	require.NotNil(t, rec)

	require.Len(t, fx.sink.records, 1)
	assert.Equal(t, recordID, fx.sink.records[0].ID)
	assert.Equal(t, record.ReviewStateApproved, fx.sink.records[0].Quality.ReviewState)
}

func TestSubmitReview_RejectionSavesNothing(t *testing.T) {
	fx := newFixture(t, 0.70, approvingGenerator())

	outcome, err := fx.service.Capture(context.Background(), captureWorthyEvent(), "en")
	require.NoError(t, err)

	rec, err := fx.service.SubmitReview(context.Background(), outcome.Records[0].ID, review.Answers{
		WorthSaving: false,
	}, "alice")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Empty(t, fx.sink.records)
}

func TestFileSink_AppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.jsonl")
	sink, err := NewFileSink(path, zap.NewNop())
	require.NoError(t, err)

	rec := &record.DecisionRecord{
		ID:          "dr-1",
		Sensitivity: record.SensitivityInternal,
		Status:      record.StatusProposed,
		Why:         record.Why{Certainty: record.CertaintyUnknown},
	}
	require.NoError(t, sink.Save(context.Background(), rec))
	require.NoError(t, sink.Save(context.Background(), rec))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 2)
}
