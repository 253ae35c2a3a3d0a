// Package review persists low-confidence records and drives the
// human-approval workflow before they are considered final.
package review

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/scribe/internal/record"
)

// Common errors for queue operations.
var (
	ErrNotFound       = errors.New("review item not found")
	ErrNotPending     = errors.New("review item is not pending")
	ErrNilRecord      = errors.New("record cannot be nil")
	ErrEmptyPath      = errors.New("queue path cannot be empty")
	ErrInvalidAnswers = errors.New("invalid reviewer answers")
)

// ItemStatus is the review item's workflow state.
type ItemStatus string

const (
	StatusPending  ItemStatus = "pending"
	StatusReviewed ItemStatus = "reviewed"
	StatusRejected ItemStatus = "rejected"
)

// Item is one queued record awaiting review. Persisted as an ordered
// sequence; append-only except for status mutation and removal.
type Item struct {
	// RecordID identifies the snapshotted record.
	RecordID string `json:"record_id"`

	// RecordJSON is the full record snapshot, round-tripped losslessly.
	RecordJSON json.RawMessage `json:"record_json"`

	// DetectionConfidence is the Tier-1 confidence at queue time.
	DetectionConfidence float64 `json:"detection_confidence"`

	// CreatedAt is when the item was queued.
	CreatedAt time.Time `json:"created_at"`

	// Questions are the review questions presented to the human.
	Questions []string `json:"questions"`

	// Status is the workflow state.
	Status ItemStatus `json:"status"`
}

// reviewQuestions are the four standard questions per queued record.
var reviewQuestions = []string{
	"Is this worth saving as a decision record?",
	"Does the evidence actually support the stated rationale?",
	"Is the sensitivity classification correct?",
	"Should the status be changed?",
}

// Answers carries the reviewer's responses. Only explicitly answered
// fields overwrite the record; nil or empty answers leave the captured
// value in place.
type Answers struct {
	// WorthSaving false discards the record entirely.
	WorthSaving bool `json:"worth_saving"`

	// EvidenceSupported overrides the certainty judgment when answered.
	EvidenceSupported *bool `json:"evidence_supported,omitempty"`

	// Sensitivity overrides the sensitivity when non-empty.
	Sensitivity record.Sensitivity `json:"sensitivity,omitempty"`

	// Status overrides the status when non-empty.
	Status record.Status `json:"status,omitempty"`

	// Notes are appended to the record's review notes.
	Notes string `json:"notes,omitempty"`
}

// Validate checks that answered override fields carry recognized
// values. Unanswered (empty) fields are always valid.
func (a Answers) Validate() error {
	if a.Sensitivity != "" {
		if err := a.Sensitivity.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAnswers, err)
		}
	}
	if a.Status != "" {
		if err := a.Status.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAnswers, err)
		}
	}
	return nil
}

// Stats summarizes the queue.
type Stats struct {
	Total         int `json:"total"`
	Pending       int `json:"pending"`
	Reviewed      int `json:"reviewed"`
	Rejected      int `json:"rejected"`

	// OldestPendingAge is the age of the oldest pending item, zero when
	// none are pending.
	OldestPendingAge time.Duration `json:"oldest_pending_age"`
}
