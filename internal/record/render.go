package record

import (
	"fmt"
	"strings"
)

// payloadFormat is the rendered payload format identifier.
const payloadFormat = "markdown"

// Render produces the record's payload text deterministically from the
// structured fields. The payload is a derived view: rendering the same
// record twice yields the same string, and every structured field that
// appears in the template can be regenerated after mutation.
func Render(r *DecisionRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", r.Title)
	fmt.Fprintf(&b, "- **ID**: %s\n", r.ID)
	fmt.Fprintf(&b, "- **Domain**: %s\n", r.Domain)
	fmt.Fprintf(&b, "- **Status**: %s\n", r.Status)
	fmt.Fprintf(&b, "- **Sensitivity**: %s\n", r.Sensitivity)
	if r.GroupID != "" {
		fmt.Fprintf(&b, "- **Group**: %s (%s, phase %d of %d)\n", r.GroupID, r.GroupType, r.PhaseSeq+1, r.PhaseTotal)
	}

	b.WriteString("\n## Decision\n\n")
	fmt.Fprintf(&b, "%s\n\n", valueOr(r.Decision.What, "(not stated)"))
	fmt.Fprintf(&b, "- **Who**: %s\n", valueOr(strings.Join(r.Decision.Who, ", "), "(unknown)"))
	fmt.Fprintf(&b, "- **Where**: %s\n", valueOr(r.Decision.Where, "(unknown)"))
	fmt.Fprintf(&b, "- **When**: %s\n", valueOr(r.Decision.When, "(unknown)"))

	b.WriteString("\n## Context\n\n")
	fmt.Fprintf(&b, "- **Problem**: %s\n", valueOr(r.Context.Problem, "(not stated)"))
	if len(r.Context.Alternatives) > 0 {
		b.WriteString("- **Alternatives considered**:\n")
		for _, alt := range r.Context.Alternatives {
			fmt.Fprintf(&b, "  - %s\n", alt)
		}
	}
	if r.Context.Chosen != "" {
		fmt.Fprintf(&b, "- **Chosen**: %s\n", r.Context.Chosen)
	}
	if len(r.Context.TradeOffs) > 0 {
		b.WriteString("- **Trade-offs**:\n")
		for _, t := range r.Context.TradeOffs {
			fmt.Fprintf(&b, "  - %s\n", t)
		}
	}

	b.WriteString("\n## Why\n\n")
	fmt.Fprintf(&b, "%s\n\n", valueOr(r.Why.RationaleSummary, "(no rationale stated)"))
	fmt.Fprintf(&b, "- **Certainty**: %s\n", r.Why.Certainty)
	for _, info := range r.Why.MissingInfo {
		fmt.Fprintf(&b, "- **Missing**: %s\n", info)
	}

	if len(r.Evidence) > 0 {
		b.WriteString("\n## Evidence\n\n")
		for _, e := range r.Evidence {
			marker := ""
			if e.Paraphrase {
				marker = " _(paraphrase)_"
			}
			fmt.Fprintf(&b, "- %s%s\n", e.Claim, marker)
			for _, q := range e.Quote {
				fmt.Fprintf(&b, "  > %s\n", q)
			}
		}
	}

	if len(r.Tags) > 0 {
		fmt.Fprintf(&b, "\n**Tags**: %s\n", strings.Join(r.Tags, ", "))
	}

	return b.String()
}

// valueOr returns the value or a placeholder when empty.
func valueOr(value, placeholder string) string {
	if value == "" {
		return placeholder
	}
	return value
}
