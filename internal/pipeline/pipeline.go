// Package pipeline orchestrates the graduated capture flow: cheap
// similarity match, policy judgment, structured extraction, record
// assembly, and routing to auto-capture or human review. Each tier may
// short-circuit the rest; Tiers 2 and 3 are the expensive network calls.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/scribe/internal/detector"
	"github.com/fyrsmithlabs/scribe/internal/event"
	"github.com/fyrsmithlabs/scribe/internal/policy"
	"github.com/fyrsmithlabs/scribe/internal/record"
	"github.com/fyrsmithlabs/scribe/internal/review"
	"go.uber.org/zap"
)

// ErrDetectionUnavailable indicates the similarity index cannot serve
// queries; the pipeline reports itself degraded rather than crashing.
var ErrDetectionUnavailable = errors.New("detection unavailable: similarity index not loaded")

// Disposition is the terminal routing of one capture attempt.
type Disposition string

const (
	// DispositionRejectedTier1 means the similarity score was below the
	// detector threshold.
	DispositionRejectedTier1 Disposition = "rejected_tier1"

	// DispositionRejectedTier2 means the policy filter judged the
	// message not capture-worthy.
	DispositionRejectedTier2 Disposition = "rejected_tier2"

	// DispositionAutoCaptured means confidence was high enough to skip
	// human review.
	DispositionAutoCaptured Disposition = "auto_captured"

	// DispositionQueued means the records await human review.
	DispositionQueued Disposition = "queued_for_review"
)

// Outcome is the result of one capture attempt.
type Outcome struct {
	// Disposition is the terminal routing.
	Disposition Disposition `json:"disposition"`

	// Reason explains rejections and degradations.
	Reason string `json:"reason,omitempty"`

	// Detection is the Tier-1 result, for observability.
	Detection detector.Result `json:"detection"`

	// Records holds the built records (one per phase) for captured or
	// queued outcomes.
	Records []*record.DecisionRecord `json:"records,omitempty"`
}

// Sink receives finalized records (auto-captured or reviewer-approved).
// The real storage backend is an external collaborator; the pipeline
// only needs this narrow interface.
type Sink interface {
	Save(ctx context.Context, rec *record.DecisionRecord) error
}

// Service wires the tiers together. All collaborators are injected at
// construction; the service holds no global state.
type Service struct {
	detector *detector.Detector
	filter   *policy.Filter
	builder  *record.Builder
	queue    *review.Queue
	sink     Sink
	loaded   func() bool
	logger   *zap.Logger
	metrics  *Metrics
}

// New creates the pipeline service. loaded reports whether the
// similarity index can serve queries.
func New(det *detector.Detector, filter *policy.Filter, builder *record.Builder, queue *review.Queue, sink Sink, loaded func() bool, logger *zap.Logger) *Service {
	return &Service{
		detector: det,
		filter:   filter,
		builder:  builder,
		queue:    queue,
		sink:     sink,
		loaded:   loaded,
		logger:   logger,
		metrics:  NewMetrics(),
	}
}

// Available reports whether Tier-1 detection can serve queries.
func (s *Service) Available() bool {
	return s.loaded()
}

// Capture runs one event through the pipeline. Invocations are
// logically sequential within themselves but safe to run concurrently
// across events; the review queue serializes its own mutations.
func (s *Service) Capture(ctx context.Context, ev event.RawEvent, language string) (*Outcome, error) {
	start := time.Now()
	outcome, err := s.capture(ctx, ev, language)
	if err != nil {
		s.metrics.RecordCapture(ctx, "error", time.Since(start))
		return nil, err
	}
	s.metrics.RecordCapture(ctx, string(outcome.Disposition), time.Since(start))
	return outcome, nil
}

func (s *Service) capture(ctx context.Context, ev event.RawEvent, language string) (*Outcome, error) {
	if !s.loaded() {
		return nil, ErrDetectionUnavailable
	}
	if err := ev.Validate(); err != nil {
		// Empty input is a well-formed non-significant result, not an error.
		if errors.Is(err, event.ErrEmptyText) {
			return &Outcome{
				Disposition: DispositionRejectedTier1,
				Reason:      "empty message",
			}, nil
		}
		return nil, fmt.Errorf("invalid event: %w", err)
	}

	// Tier 1: local, CPU-bound vector math.
	det, err := s.detector.Detect(ctx, ev.Text)
	if err != nil {
		return nil, fmt.Errorf("tier-1 detection: %w", err)
	}
	if !det.IsSignificant {
		return &Outcome{
			Disposition: DispositionRejectedTier1,
			Reason:      "below detector threshold",
			Detection:   det,
		}, nil
	}

	// Tier 2: one bounded network call, fail-open.
	verdict := s.filter.Evaluate(ctx, ev.Text, det.Confidence, det.MatchedPattern)
	if !verdict.ShouldCapture {
		return &Outcome{
			Disposition: DispositionRejectedTier2,
			Reason:      verdict.Reason,
			Detection:   det,
		}, nil
	}
	if det.Domain == "" && verdict.Domain != "" {
		det.Domain = verdict.Domain
	}

	// Tier 3 + record assembly.
	records, err := s.builder.BuildPhases(ctx, ev, det, language)
	if err != nil {
		return nil, fmt.Errorf("building records: %w", err)
	}

	if s.detector.ShouldAutoCapture(det) {
		for _, rec := range records {
			rec.Quality.ReviewState = record.ReviewStateAutoCaptured
			if err := s.sink.Save(ctx, rec); err != nil {
				return nil, fmt.Errorf("saving record %s: %w", rec.ID, err)
			}
		}
		s.logger.Info("auto-captured",
			zap.Int("records", len(records)),
			zap.Float64("confidence", det.Confidence))
		return &Outcome{
			Disposition: DispositionAutoCaptured,
			Detection:   det,
			Records:     records,
		}, nil
	}

	for _, rec := range records {
		if _, err := s.queue.Add(rec, det.Confidence); err != nil {
			return nil, fmt.Errorf("queueing record %s: %w", rec.ID, err)
		}
	}
	return &Outcome{
		Disposition: DispositionQueued,
		Detection:   det,
		Records:     records,
	}, nil
}

// SubmitReview finalizes a queued record with the reviewer's answers.
// An approved record flows to the sink; a rejection returns nil.
func (s *Service) SubmitReview(ctx context.Context, recordID string, answers review.Answers, reviewer string) (*record.DecisionRecord, error) {
	rec, err := s.queue.SubmitReview(recordID, answers, reviewer)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	if err := s.sink.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("saving reviewed record %s: %w", rec.ID, err)
	}
	return rec, nil
}
