package record

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/fyrsmithlabs/scribe/internal/extractor"
)

// fieldRule pairs a compiled regex with the capture group holding the
// field value. Rules are evaluated in order; the first match wins.
type fieldRule struct {
	regex *regexp.Regexp
	group int
}

// Ordered pattern lists per field. English-leaning by design: the
// structured extractor handles all languages when available and this
// path is the degraded fallback.
var (
	titleRules = []fieldRule{
		{regexp.MustCompile(`(?i)\bdecided to (?:use|go with|adopt|build|switch to)\s+(.{3,80}?)(?:\s+(?:because|over|instead|since)\b|[.!\n]|$)`), 1},
		{regexp.MustCompile(`(?i)\bwe(?:'re| are)? (?:choosing|picking|going with)\s+(.{3,80}?)(?:\s+(?:because|over|instead|since)\b|[.!\n]|$)`), 1},
		{regexp.MustCompile(`(?i)\b(?:switching|migrating) (?:from .{1,40} )?to\s+(.{3,80}?)(?:\s+because\b|[.!\n]|$)`), 1},
	}

	rationaleRules = []fieldRule{
		{regexp.MustCompile(`(?i)\bbecause\s+(?:of\s+)?(.{5,200}?)(?:[.!\n]|$)`), 1},
		{regexp.MustCompile(`(?i)\bsince\s+(.{5,200}?)(?:[.!\n]|$)`), 1},
		{regexp.MustCompile(`(?i)\bdue to\s+(.{5,200}?)(?:[.!\n]|$)`), 1},
		{regexp.MustCompile(`(?i)\bthe (?:main )?reason (?:is|was)\s+(.{5,200}?)(?:[.!\n]|$)`), 1},
	}

	problemRules = []fieldRule{
		{regexp.MustCompile(`(?i)\bthe (?:problem|issue) (?:is|was)\s+(.{5,200}?)(?:[.!\n]|$)`), 1},
		{regexp.MustCompile(`(?i)\bwe need(?:ed)? to\s+(.{5,200}?)(?:[.!\n]|$)`), 1},
		{regexp.MustCompile(`(?i)\bto (?:solve|fix|address)\s+(.{5,200}?)(?:[.!\n]|$)`), 1},
	}

	alternativeRules = []fieldRule{
		{regexp.MustCompile(`(?i)\bover\s+(.{2,60}?)(?:\s+because\b|[.,!\n]|$)`), 1},
		{regexp.MustCompile(`(?i)\binstead of\s+(.{2,60}?)(?:[.,!\n]|$)`), 1},
		{regexp.MustCompile(`(?i)\brather than\s+(.{2,60}?)(?:[.,!\n]|$)`), 1},
		{regexp.MustCompile(`(?i)\bvs\.?\s+(.{2,60}?)(?:[.,!\n]|$)`), 1},
	}

	tradeOffRules = []fieldRule{
		{regexp.MustCompile(`(?i)\btrade[- ]?offs? (?:is|are|was|:)\s*(.{5,200}?)(?:[.!\n]|$)`), 1},
		{regexp.MustCompile(`(?i)\bdownsides? (?:is|are|was|:)\s*(.{5,200}?)(?:[.!\n]|$)`), 1},
		{regexp.MustCompile(`(?i)\bat the cost of\s+(.{5,200}?)(?:[.!\n]|$)`), 1},
	}
)

// fallbackExtract derives structured fields from the text via ordered
// pattern lists, first match wins per field. Used when the structured
// extractor is unavailable or failed.
func fallbackExtract(text string) extractor.Fields {
	fields := extractor.Fields{
		Title:     firstMatch(titleRules, text),
		Rationale: firstMatch(rationaleRules, text),
		Problem:   firstMatch(problemRules, text),
	}

	if alt := firstMatch(alternativeRules, text); alt != "" {
		fields.Alternatives = []string{alt}
	}
	if tradeOff := firstMatch(tradeOffRules, text); tradeOff != "" {
		fields.TradeOffs = []string{tradeOff}
	}

	if fields.Title == "" {
		fields.Title = fallbackTitle(text)
	}
	return fields
}

// firstMatch returns the first rule's capture that matches.
func firstMatch(rules []fieldRule, text string) string {
	for _, rule := range rules {
		if m := rule.regex.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[rule.group])
		}
	}
	return ""
}

// fallbackTitle derives a title from the lead of the message.
func fallbackTitle(text string) string {
	title := leadText(text, 80)
	title = strings.TrimRight(title, ".!?…")
	if title == "" {
		return "Untitled decision"
	}
	if utf8.RuneCountInString(title) > 72 {
		runes := []rune(title)
		title = string(runes[:72])
	}
	return title
}
