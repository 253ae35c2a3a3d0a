package record

import (
	"regexp"
)

// acceptanceMarkers signal that a proposal was actually adopted.
var acceptanceMarkers = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bwe (?:have )?decided\b`),
	regexp.MustCompile(`(?i)\bdecision(?:'s| is| was)? (?:made|final)\b`),
	regexp.MustCompile(`(?i)\b(?:approved|sign(?:ed)?[- ]off|green[- ]?lit)\b`),
	regexp.MustCompile(`(?i)\bwe(?:'re| are) going with\b`),
	regexp.MustCompile(`(?i)\bit'?s settled\b`),
	regexp.MustCompile(`(?i)\bagreed(?: to| that)?\b`),
	regexp.MustCompile(`(?i)\bshipped\b`),
}

// determineStatus prefers the extractor's status hint; without one it
// scans for acceptance markers, defaulting conservatively to proposed.
//
// A "rejected" hint maps to proposed, not a distinct terminal status:
// a rejected proposal remains a proposal on the record, it was never
// superseded by anything.
func determineStatus(statusHint, text string) Status {
	switch statusHint {
	case "accepted":
		return StatusAccepted
	case "proposed", "rejected":
		return StatusProposed
	}

	for _, marker := range acceptanceMarkers {
		if marker.MatchString(text) {
			return StatusAccepted
		}
	}
	return StatusProposed
}

// determineCertainty applies the evidence rules and appends a
// human-readable reason to missingInfo for every non-supported outcome.
func determineCertainty(evidence []Evidence, rationale string) (Certainty, []string) {
	if len(evidence) == 0 {
		return CertaintyUnknown, []string{"no supporting evidence found in message"}
	}

	hasQuote := false
	for _, e := range evidence {
		if e.IsQuote() {
			hasQuote = true
			break
		}
	}

	if !hasQuote {
		return CertaintyPartiallySupported, []string{"evidence is paraphrased, no direct quote found"}
	}
	if rationale == "" {
		return CertaintyPartiallySupported, []string{"direct quote present but no explicit rationale stated"}
	}
	return CertaintySupported, nil
}
