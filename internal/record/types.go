// Package record defines the decision-record data model and the builder
// that assembles records from raw events under strict consistency rules:
// a rationale is only "supported" when a direct quote backs it.
package record

import (
	"errors"
	"fmt"
)

// Common errors for record operations.
var (
	ErrEmptyID           = errors.New("record ID cannot be empty")
	ErrInvalidStatus     = errors.New("status must be proposed, accepted, superseded, or reverted")
	ErrInvalidCertainty  = errors.New("certainty must be supported, partially_supported, or unknown")
	ErrInvalidSensitivity = errors.New("sensitivity must be public, internal, or restricted")
	ErrInvalidGroup      = errors.New("invalid record group fields")
	ErrCertaintyEvidence = errors.New("certainty is inconsistent with evidence")
)

// Status is the lifecycle status of a decision.
type Status string

const (
	StatusProposed   Status = "proposed"
	StatusAccepted   Status = "accepted"
	StatusSuperseded Status = "superseded"
	StatusReverted   Status = "reverted"
)

// Validate checks the status value.
func (s Status) Validate() error {
	switch s {
	case StatusProposed, StatusAccepted, StatusSuperseded, StatusReverted:
		return nil
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidStatus, string(s))
	}
}

// Certainty is the epistemic confidence label attached to a rationale,
// constrained by evidence quality.
type Certainty string

const (
	CertaintySupported          Certainty = "supported"
	CertaintyPartiallySupported Certainty = "partially_supported"
	CertaintyUnknown            Certainty = "unknown"
)

// Validate checks the certainty value.
func (c Certainty) Validate() error {
	switch c {
	case CertaintySupported, CertaintyPartiallySupported, CertaintyUnknown:
		return nil
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidCertainty, string(c))
	}
}

// Sensitivity classifies who may read the record.
type Sensitivity string

const (
	SensitivityPublic     Sensitivity = "public"
	SensitivityInternal   Sensitivity = "internal"
	SensitivityRestricted Sensitivity = "restricted"
)

// Validate checks the sensitivity value.
func (s Sensitivity) Validate() error {
	switch s {
	case SensitivityPublic, SensitivityInternal, SensitivityRestricted:
		return nil
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidSensitivity, string(s))
	}
}

// ReviewState tracks where the record sits in the human-review workflow.
type ReviewState string

const (
	ReviewStateAutoCaptured ReviewState = "auto_captured"
	ReviewStatePending      ReviewState = "pending"
	ReviewStateApproved     ReviewState = "approved"
)

// GroupType links related records.
type GroupType string

const (
	// GroupPhaseChain marks a sequence of records for successive stages
	// of one extended reasoning process.
	GroupPhaseChain GroupType = "phase_chain"

	// GroupBundle marks a set of records for distinct facets of one
	// overall decision.
	GroupBundle GroupType = "bundle"
)

// Evidence is one evidence entry backing the rationale.
type Evidence struct {
	// Claim labels what the evidence supports.
	Claim string `json:"claim"`

	// Quote holds at least one quoted span.
	Quote []string `json:"quote"`

	// Paraphrase marks a synthesized entry that is not a direct quote.
	// Only non-paraphrase entries can raise certainty to supported.
	Paraphrase bool `json:"paraphrase,omitempty"`

	// Source points at where the quote came from.
	Source EvidenceSource `json:"source"`
}

// EvidenceSource identifies the origin of an evidence quote.
type EvidenceSource struct {
	// Type is the source kind ("chat", "wiki", "webhook").
	Type string `json:"type"`

	// URL is a permalink, when the source provides one.
	URL string `json:"url,omitempty"`

	// Pointer is a source-native locator (thread ID, message timestamp).
	Pointer string `json:"pointer,omitempty"`
}

// IsQuote reports whether the entry is a genuine direct quote.
func (e Evidence) IsQuote() bool {
	return !e.Paraphrase && len(e.Quote) > 0
}

// Decision describes what was decided, by whom, where, and when.
type Decision struct {
	What  string   `json:"what"`
	Who   []string `json:"who"`
	Where string   `json:"where"`
	When  string   `json:"when"`
}

// Context describes the problem space around the decision.
type Context struct {
	Problem      string   `json:"problem"`
	Alternatives []string `json:"alternatives"`
	Chosen       string   `json:"chosen,omitempty"`
	TradeOffs    []string `json:"trade_offs"`
}

// Why holds the rationale and its epistemic label.
type Why struct {
	// RationaleSummary is the stated reasoning, possibly empty.
	RationaleSummary string `json:"rationale_summary"`

	// Certainty is constrained by evidence quality; see Validate.
	Certainty Certainty `json:"certainty"`

	// MissingInfo lists human-readable reasons certainty is below
	// supported.
	MissingInfo []string `json:"missing_info"`
}

// Quality carries capture confidence and the review trail.
type Quality struct {
	// ScribeConfidence is the Tier-1 detection confidence.
	ScribeConfidence float64 `json:"scribe_confidence"`

	// ReviewState is the review workflow position.
	ReviewState ReviewState `json:"review_state"`

	// ReviewNotes accumulates redaction notes and reviewer comments.
	ReviewNotes string `json:"review_notes,omitempty"`

	// ReviewedBy names the approving reviewer.
	ReviewedBy string `json:"reviewed_by,omitempty"`
}

// Payload is the rendered view of the record. It is derived
// deterministically from the other fields and never an independent
// source of truth.
type Payload struct {
	Format string `json:"format"`
	Text   string `json:"text"`
}

// DecisionRecord is the persisted unit of organizational memory.
type DecisionRecord struct {
	ID          string      `json:"id"`
	Domain      string      `json:"domain"`
	Sensitivity Sensitivity `json:"sensitivity"`
	Status      Status      `json:"status"`
	Title       string      `json:"title"`
	Decision    Decision    `json:"decision"`
	Context     Context     `json:"context"`
	Why         Why         `json:"why"`
	Evidence    []Evidence  `json:"evidence"`
	Tags        []string    `json:"tags"`
	Quality     Quality     `json:"quality"`
	Payload     Payload     `json:"payload"`

	// Grouping fields, set only for phase chains and bundles.
	GroupID    string    `json:"group_id,omitempty"`
	GroupType  GroupType `json:"group_type,omitempty"`
	PhaseSeq   int       `json:"phase_seq,omitempty"`
	PhaseTotal int       `json:"phase_total,omitempty"`
}

// HasQuoteEvidence reports whether any evidence entry is a genuine
// direct quote.
func (r *DecisionRecord) HasQuoteEvidence() bool {
	for _, e := range r.Evidence {
		if e.IsQuote() {
			return true
		}
	}
	return false
}

// Validate checks field values and the cross-field invariants every
// finalized record must hold.
func (r *DecisionRecord) Validate() error {
	if r.ID == "" {
		return ErrEmptyID
	}
	if err := r.Status.Validate(); err != nil {
		return err
	}
	if err := r.Why.Certainty.Validate(); err != nil {
		return err
	}
	if err := r.Sensitivity.Validate(); err != nil {
		return err
	}

	// Supported requires a direct quote and a non-empty rationale.
	if r.Why.Certainty == CertaintySupported {
		if !r.HasQuoteEvidence() || r.Why.RationaleSummary == "" {
			return fmt.Errorf("%w: supported without quote and rationale", ErrCertaintyEvidence)
		}
	}

	// No evidence at all forces unknown certainty and proposed status.
	if len(r.Evidence) == 0 {
		if r.Why.Certainty != CertaintyUnknown {
			return fmt.Errorf("%w: no evidence but certainty %q", ErrCertaintyEvidence, r.Why.Certainty)
		}
		if r.Status != StatusProposed {
			return fmt.Errorf("%w: no evidence but status %q", ErrCertaintyEvidence, r.Status)
		}
	}

	if r.GroupType != "" {
		if r.GroupType != GroupPhaseChain && r.GroupType != GroupBundle {
			return fmt.Errorf("%w: unknown group type %q", ErrInvalidGroup, r.GroupType)
		}
		if r.GroupID == "" {
			return fmt.Errorf("%w: group type without group ID", ErrInvalidGroup)
		}
		if r.PhaseTotal < 1 || r.PhaseSeq < 0 || r.PhaseSeq >= r.PhaseTotal {
			return fmt.Errorf("%w: phase %d of %d", ErrInvalidGroup, r.PhaseSeq, r.PhaseTotal)
		}
	}

	return nil
}
