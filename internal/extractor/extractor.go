// Package extractor implements Tier 3 of the capture pipeline:
// converting raw text into structured candidate fields via a
// text-generation capability, optionally split into multiple phases.
package extractor

import (
	"context"
)

// Group kinds reported by multi-phase extraction.
const (
	// GroupPhaseChain marks successive stages of one extended reasoning
	// process.
	GroupPhaseChain = "phase_chain"

	// GroupBundle marks distinct facets of one overall decision.
	GroupBundle = "bundle"
)

// Fields is the structured candidate content for one record.
// Every field degrades independently to its zero value; a malformed
// model response never fails extraction wholesale.
type Fields struct {
	// Title is a short name for the decision.
	Title string `json:"title"`

	// Rationale is the stated reasoning behind the decision.
	Rationale string `json:"rationale"`

	// Problem is the problem the decision addresses.
	Problem string `json:"problem"`

	// Alternatives lists options that were considered.
	Alternatives []string `json:"alternatives"`

	// Chosen is the selected alternative, when identifiable.
	Chosen string `json:"chosen"`

	// TradeOffs lists accepted downsides.
	TradeOffs []string `json:"trade_offs"`

	// StatusHint is the model's status reading: "accepted", "proposed",
	// or "rejected". Empty when the model offered none.
	StatusHint string `json:"status_hint"`

	// Tags are categorization labels.
	Tags []string `json:"tags"`
}

// Extraction is the full Tier-3 result: one phase for an ordinary
// message, several for a reasoning chain too long for one record.
type Extraction struct {
	// Phases holds at least one Fields entry.
	Phases []Fields

	// GroupType is GroupPhaseChain or GroupBundle when len(Phases) > 1,
	// empty otherwise.
	GroupType string
}

// Single reports whether the extraction collapsed to one phase.
func (e *Extraction) Single() bool {
	return len(e.Phases) == 1
}

// Extractor is the structured-extraction capability consumed by the
// record builder.
type Extractor interface {
	// Extract converts raw text into structured candidate fields.
	// language is a BCP-47-ish hint ("en", "ja"); implementations may
	// ignore it.
	Extract(ctx context.Context, text, language string) (*Extraction, error)

	// Available returns true if the extractor is configured and ready.
	Available() bool
}
