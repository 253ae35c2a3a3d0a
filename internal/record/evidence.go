package record

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// maxEvidenceEntries caps evidence per record.
const maxEvidenceEntries = 3

// minQuoteLength filters out trivially short quoted fragments.
const minQuoteLength = 10

// quoteConventions covers straight quotes plus the common typographic
// and non-Latin quotation marks, scanned in order.
var quoteConventions = []*regexp.Regexp{
	regexp.MustCompile(`"([^"]+)"`),
	regexp.MustCompile(`“([^”]+)”`),
	regexp.MustCompile(`‘([^’]+)’`),
	regexp.MustCompile(`«([^»]+)»`),
	regexp.MustCompile(`「([^」]+)」`),
	regexp.MustCompile(`『([^』]+)』`),
}

// paraphraseClaim labels the synthesized entry used when no direct
// quote exists, keeping "no evidence" and "weak evidence"
// distinguishable downstream.
const paraphraseClaim = "paraphrased from message, no direct quote"

// directQuoteClaim is the generic claim label for quoted spans.
const directQuoteClaim = "direct quote from message"

// ExtractEvidence scans for quoted spans of at least minQuoteLength
// characters. When none are found, a single paraphrase-flagged entry is
// synthesized from the lead text; an empty message yields no evidence.
func ExtractEvidence(text string, source EvidenceSource) []Evidence {
	seen := make(map[string]struct{})
	evidence := make([]Evidence, 0, maxEvidenceEntries)

	for _, convention := range quoteConventions {
		for _, match := range convention.FindAllStringSubmatch(text, -1) {
			quote := strings.TrimSpace(match[1])
			if utf8.RuneCountInString(quote) < minQuoteLength {
				continue
			}
			if _, dup := seen[quote]; dup {
				continue
			}
			seen[quote] = struct{}{}

			evidence = append(evidence, Evidence{
				Claim:  directQuoteClaim,
				Quote:  []string{quote},
				Source: source,
			})
			if len(evidence) == maxEvidenceEntries {
				return evidence
			}
		}
	}

	if len(evidence) > 0 {
		return evidence
	}

	lead := leadText(text, 160)
	if lead == "" {
		return evidence
	}
	return append(evidence, Evidence{
		Claim:      paraphraseClaim,
		Quote:      []string{lead},
		Paraphrase: true,
		Source:     source,
	})
}

// leadText returns the first sentence of the text, bounded to maxRunes.
func leadText(text string, maxRunes int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	for i, r := range text {
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			candidate := strings.TrimSpace(text[:i+utf8.RuneLen(r)])
			if candidate != "" {
				text = candidate
			}
			break
		}
	}

	if utf8.RuneCountInString(text) > maxRunes {
		runes := []rune(text)
		text = string(runes[:maxRunes]) + "…"
	}
	return text
}
