package review

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fyrsmithlabs/scribe/internal/record"
	"go.uber.org/zap"
)

// Queue is the file-backed review queue. All mutations run under one
// writer lock and persist with atomic write-replace, so a crash never
// leaves a partially written file.
type Queue struct {
	path   string
	logger *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	items []Item
}

// NewQueue loads the queue from path. A missing or corrupt file is
// logged and treated as an empty queue, never a fatal error.
func NewQueue(path string, logger *zap.Logger) (*Queue, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	q := &Queue{
		path:   path,
		logger: logger,
		now:    time.Now,
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// First run.
	case err != nil:
		logger.Warn("review queue unreadable, starting empty",
			zap.String("path", path),
			zap.Error(err))
	default:
		var items []Item
		if err := json.Unmarshal(data, &items); err != nil {
			logger.Warn("review queue corrupt, starting empty",
				zap.String("path", path),
				zap.Error(err))
		} else {
			q.items = items
		}
	}

	return q, nil
}

// WithClock overrides the time source. For tests.
func (q *Queue) WithClock(now func() time.Time) *Queue {
	q.now = now
	return q
}

// Add appends a pending item for the record and persists immediately.
// Returns the record ID.
func (q *Queue) Add(rec *record.DecisionRecord, confidence float64) (string, error) {
	if rec == nil {
		return "", ErrNilRecord
	}

	snapshot, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("snapshotting record: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, Item{
		RecordID:            rec.ID,
		RecordJSON:          snapshot,
		DetectionConfidence: confidence,
		CreatedAt:           q.now().UTC(),
		Questions:           append([]string(nil), reviewQuestions...),
		Status:              StatusPending,
	})

	if err := q.persistLocked(); err != nil {
		return "", err
	}

	q.logger.Info("record queued for review",
		zap.String("record_id", rec.ID),
		zap.Float64("confidence", confidence))
	return rec.ID, nil
}

// SubmitReview applies the reviewer's answers to a pending item.
//
// A negative worth-saving answer marks the item rejected and returns no
// record. Otherwise the record is reconstructed from its snapshot, the
// explicitly answered overrides are applied, the payload is
// regenerated, and the finalized record is returned with the item
// marked reviewed.
func (q *Queue) SubmitReview(recordID string, answers Answers, reviewer string) (*record.DecisionRecord, error) {
	if err := answers.Validate(); err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	idx := q.findLocked(recordID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, recordID)
	}
	if q.items[idx].Status != StatusPending {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotPending, recordID, q.items[idx].Status)
	}

	if !answers.WorthSaving {
		q.items[idx].Status = StatusRejected
		if err := q.persistLocked(); err != nil {
			return nil, err
		}
		q.logger.Info("record rejected by reviewer", zap.String("record_id", recordID))
		return nil, nil
	}

	var rec record.DecisionRecord
	if err := json.Unmarshal(q.items[idx].RecordJSON, &rec); err != nil {
		return nil, fmt.Errorf("restoring record snapshot: %w", err)
	}

	applyAnswers(&rec, answers, reviewer)

	// The reviewed record must satisfy every record invariant before it
	// leaves the queue; the item stays pending when it does not.
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: reviewed record: %v", ErrInvalidAnswers, err)
	}

	snapshot, err := json.Marshal(&rec)
	if err != nil {
		return nil, fmt.Errorf("snapshotting reviewed record: %w", err)
	}
	q.items[idx].RecordJSON = snapshot
	q.items[idx].Status = StatusReviewed

	if err := q.persistLocked(); err != nil {
		return nil, err
	}

	q.logger.Info("record approved by reviewer",
		zap.String("record_id", recordID),
		zap.String("reviewer", reviewer))
	return &rec, nil
}

// applyAnswers overwrites only the fields the reviewer explicitly
// answered, then regenerates the derived payload.
func applyAnswers(rec *record.DecisionRecord, answers Answers, reviewer string) {
	if answers.EvidenceSupported != nil {
		if *answers.EvidenceSupported && rec.HasQuoteEvidence() && rec.Why.RationaleSummary != "" {
			rec.Why.Certainty = record.CertaintySupported
			rec.Why.MissingInfo = []string{}
		} else if *answers.EvidenceSupported {
			// The reviewer vouched for the evidence, but supported still
			// requires a direct quote plus rationale on the record.
			rec.Why.Certainty = record.CertaintyPartiallySupported
			rec.Why.MissingInfo = appendUnique(rec.Why.MissingInfo,
				"reviewer confirmed evidence, but record lacks a direct quote or rationale")
		} else if len(rec.Evidence) == 0 {
			rec.Why.Certainty = record.CertaintyUnknown
		} else {
			rec.Why.Certainty = record.CertaintyPartiallySupported
			rec.Why.MissingInfo = appendUnique(rec.Why.MissingInfo,
				"reviewer judged evidence insufficient for the stated rationale")
		}
	}

	if answers.Sensitivity != "" {
		rec.Sensitivity = answers.Sensitivity
	}
	if answers.Status != "" {
		rec.Status = answers.Status
	}

	if answers.Notes != "" {
		if rec.Quality.ReviewNotes != "" {
			rec.Quality.ReviewNotes += "; " + answers.Notes
		} else {
			rec.Quality.ReviewNotes = answers.Notes
		}
	}

	rec.Quality.ReviewState = record.ReviewStateApproved
	rec.Quality.ReviewedBy = reviewer
	rec.Payload = record.Payload{
		Format: rec.Payload.Format,
		Text:   record.Render(rec),
	}
}

// Remove deletes an item regardless of status.
func (q *Queue) Remove(recordID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	idx := q.findLocked(recordID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, recordID)
	}
	q.items = append(q.items[:idx], q.items[idx+1:]...)
	return q.persistLocked()
}

// ClearReviewed drops all reviewed and rejected items, returning how
// many were removed.
func (q *Queue) ClearReviewed() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.items[:0]
	removed := 0
	for _, item := range q.items {
		if item.Status == StatusPending {
			kept = append(kept, item)
		} else {
			removed++
		}
	}
	q.items = kept

	if removed == 0 {
		return 0, nil
	}
	return removed, q.persistLocked()
}

// Pending returns copies of all pending items in queue order.
func (q *Queue) Pending() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending := make([]Item, 0, len(q.items))
	for _, item := range q.items {
		if item.Status == StatusPending {
			pending = append(pending, item)
		}
	}
	return pending
}

// GetStats summarizes the queue.
func (q *Queue) GetStats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := Stats{Total: len(q.items)}
	var oldest time.Time
	for _, item := range q.items {
		switch item.Status {
		case StatusPending:
			stats.Pending++
			if oldest.IsZero() || item.CreatedAt.Before(oldest) {
				oldest = item.CreatedAt
			}
		case StatusReviewed:
			stats.Reviewed++
		case StatusRejected:
			stats.Rejected++
		}
	}
	if !oldest.IsZero() {
		stats.OldestPendingAge = q.now().UTC().Sub(oldest)
	}
	return stats
}

// findLocked returns the index of the item with the given record ID.
func (q *Queue) findLocked(recordID string) int {
	for i, item := range q.items {
		if item.RecordID == recordID {
			return i
		}
	}
	return -1
}

// persistLocked writes the queue atomically: marshal to a temp file in
// the same directory, then rename over the target.
func (q *Queue) persistLocked() error {
	data, err := json.MarshalIndent(q.items, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling queue: %w", err)
	}

	dir := filepath.Dir(q.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating queue directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".queue-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing queue: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, q.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing queue file: %w", err)
	}
	return nil
}

// appendUnique appends a note if it is not already present.
func appendUnique(notes []string, note string) []string {
	for _, n := range notes {
		if strings.EqualFold(n, note) {
			return notes
		}
	}
	return append(notes, note)
}
