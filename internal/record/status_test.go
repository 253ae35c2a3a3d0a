package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetermineStatus(t *testing.T) {
	tests := []struct {
		name       string
		statusHint string
		text       string
		want       Status
	}{
		{"accepted hint wins", "accepted", "maybe we should think about it", StatusAccepted},
		{"proposed hint wins", "proposed", "we decided to ship it", StatusProposed},
		// A rejected proposal stays a proposal; nothing superseded it.
		{"rejected hint maps to proposed", "rejected", "we decided against it", StatusProposed},
		{"marker we decided", "", "After the review we decided to use NATS for events.", StatusAccepted},
		{"marker going with", "", "OK, we're going with the managed option.", StatusAccepted},
		{"marker approved", "", "The proposal was approved by the platform team.", StatusAccepted},
		{"marker agreed", "", "We agreed to deprecate the v1 endpoints.", StatusAccepted},
		{"no marker defaults proposed", "", "We should probably use X for this someday.", StatusProposed},
		{"suggestion stays proposed", "", "I think using X might be worth exploring.", StatusProposed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, determineStatus(tt.statusHint, tt.text))
		})
	}
}

func TestDetermineCertainty(t *testing.T) {
	quote := Evidence{Claim: "direct quote", Quote: []string{"because the numbers say so"}}
	paraphrase := Evidence{Claim: "paraphrase", Quote: []string{"summary"}, Paraphrase: true}

	tests := []struct {
		name        string
		evidence    []Evidence
		rationale   string
		want        Certainty
		wantMissing bool
	}{
		{"no evidence", nil, "stated reason", CertaintyUnknown, true},
		{"paraphrase only", []Evidence{paraphrase}, "stated reason", CertaintyPartiallySupported, true},
		{"quote without rationale", []Evidence{quote}, "", CertaintyPartiallySupported, true},
		{"quote with rationale", []Evidence{quote}, "stated reason", CertaintySupported, false},
		{"mixed evidence with rationale", []Evidence{paraphrase, quote}, "stated reason", CertaintySupported, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			certainty, missing := determineCertainty(tt.evidence, tt.rationale)
			assert.Equal(t, tt.want, certainty)
			if tt.wantMissing {
				assert.NotEmpty(t, missing)
			} else {
				assert.Empty(t, missing)
			}
		})
	}
}
