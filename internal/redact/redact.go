// Package redact irreversibly replaces sensitive substrings with typed
// placeholders before any persistence or model call.
package redact

import (
	"fmt"
	"regexp"
	"sort"
)

// Finding records one redacted span. Original values are never retained.
type Finding struct {
	// RuleID identifies the rule that fired.
	RuleID string `json:"rule_id"`

	// Category is the typed placeholder category.
	Category string `json:"category"`
}

// Result holds the outcome of a scrub pass.
type Result struct {
	// Scrubbed is the text with all matches replaced by placeholders.
	Scrubbed string `json:"scrubbed"`

	// Findings lists every redacted span, in cascade order.
	Findings []Finding `json:"findings"`
}

// Changed reports whether any redaction was applied.
func (r *Result) Changed() bool {
	return len(r.Findings) > 0
}

// Categories returns the sorted, de-duplicated categories that fired.
func (r *Result) Categories() []string {
	seen := make(map[string]struct{}, len(r.Findings))
	for _, f := range r.Findings {
		seen[f.Category] = struct{}{}
	}
	cats := make([]string, 0, len(seen))
	for c := range seen {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}

// compiledRule pairs a rule with its compiled pattern.
type compiledRule struct {
	Rule
	regex       *regexp.Regexp
	replacement string
}

// Scrubber applies the ordered sensitive-data cascade.
// Thread-safe: all patterns are compiled at construction time.
type Scrubber struct {
	rules []compiledRule
}

// New creates a Scrubber from the given rules.
// If rules is nil, DefaultRules() is used.
func New(rules []Rule) (*Scrubber, error) {
	if rules == nil {
		rules = DefaultRules()
	}

	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compiling rule %s: %w", r.ID, err)
		}
		replacement := Placeholder(r.Category)
		if r.KeepPrefix {
			replacement = "${1}" + replacement
		}
		compiled = append(compiled, compiledRule{
			Rule:        r,
			regex:       re,
			replacement: replacement,
		})
	}

	return &Scrubber{rules: compiled}, nil
}

// MustNew creates a Scrubber, panicking on error. For use with the
// built-in rule set, which is known to compile.
func MustNew(rules []Rule) *Scrubber {
	s, err := New(rules)
	if err != nil {
		panic(err)
	}
	return s
}

// Placeholder returns the typed placeholder for a category.
func Placeholder(category string) string {
	return "[REDACTED:" + category + "]"
}

// Scrub applies the cascade in order. Each rule consumes its matches
// before the next rule runs, so earlier (more specific) rules win.
// Scrubbing already-scrubbed text changes nothing: placeholders do not
// match any rule, and key=value rules reproduce the same output.
func (s *Scrubber) Scrub(text string) *Result {
	result := &Result{
		Scrubbed: text,
		Findings: make([]Finding, 0),
	}

	for _, rule := range s.rules {
		matches := rule.regex.FindAllStringIndex(result.Scrubbed, -1)
		if len(matches) == 0 {
			continue
		}

		replaced := rule.regex.ReplaceAllString(result.Scrubbed, rule.replacement)
		if replaced == result.Scrubbed {
			// Key=value rules re-match their own placeholder output;
			// no change means nothing new was redacted.
			continue
		}
		result.Scrubbed = replaced

		for range matches {
			result.Findings = append(result.Findings, Finding{
				RuleID:   rule.ID,
				Category: rule.Category,
			})
		}
	}

	return result
}
