// Package patterns loads the externally authored trigger-phrase list
// that seeds the similarity index.
package patterns

import (
	"errors"
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Common errors for pattern loading.
var (
	ErrEmptyText       = errors.New("pattern text cannot be empty")
	ErrInvalidPriority = errors.New("priority must be high, medium, or low")
)

// Priority ranks how strongly a pattern signals capture-worthiness.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Validate checks the priority value.
func (p Priority) Validate() error {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return nil
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidPriority, string(p))
	}
}

// Entry is one trigger phrase. Immutable once loaded.
type Entry struct {
	// Text is the trigger phrase that gets embedded.
	Text string `koanf:"text" json:"text"`

	// Category labels the kind of decision the phrase signals.
	Category string `koanf:"category" json:"category"`

	// Priority ranks the pattern's signal strength.
	Priority Priority `koanf:"priority" json:"priority"`

	// Domain is the organizational domain the phrase belongs to.
	Domain string `koanf:"domain" json:"domain"`
}

// Validate checks the entry fields.
func (e Entry) Validate() error {
	if e.Text == "" {
		return ErrEmptyText
	}
	if err := e.Priority.Validate(); err != nil {
		return fmt.Errorf("pattern %q: %w", e.Text, err)
	}
	return nil
}

// patternFile is the YAML authoring format.
type patternFile struct {
	Patterns []Entry `koanf:"patterns"`
}

// Parse decodes the YAML authoring format. Entries with empty text or
// an unrecognized priority are rejected; this is a construction-time
// error, not a silent string-comparison miss later.
func Parse(data []byte) ([]Entry, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("parsing pattern file: %w", err)
	}

	var pf patternFile
	if err := k.Unmarshal("", &pf); err != nil {
		return nil, fmt.Errorf("unmarshaling patterns: %w", err)
	}

	for i, e := range pf.Patterns {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("pattern %d: %w", i, err)
		}
	}
	return pf.Patterns, nil
}

// LoadFile reads and parses a YAML pattern file.
func LoadFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pattern file: %w", err)
	}
	return Parse(data)
}

// DefaultEntries returns the built-in trigger phrases used when no
// pattern file is configured.
func DefaultEntries() []Entry {
	return []Entry{
		{Text: "we decided to go with", Category: "decision", Priority: PriorityHigh, Domain: "engineering"},
		{Text: "after comparing the options we chose", Category: "decision", Priority: PriorityHigh, Domain: "engineering"},
		{Text: "let's use this approach because", Category: "decision", Priority: PriorityHigh, Domain: "engineering"},
		{Text: "the trade-off we accepted is", Category: "tradeoff", Priority: PriorityHigh, Domain: "engineering"},
		{Text: "we're switching from X to Y", Category: "migration", Priority: PriorityMedium, Domain: "engineering"},
		{Text: "root cause of the incident was", Category: "incident", Priority: PriorityHigh, Domain: "operations"},
		{Text: "the postmortem concluded that", Category: "incident", Priority: PriorityHigh, Domain: "operations"},
		{Text: "policy change effective immediately", Category: "policy", Priority: PriorityHigh, Domain: "organization"},
		{Text: "we agreed to deprecate", Category: "deprecation", Priority: PriorityMedium, Domain: "engineering"},
		{Text: "rejected the proposal to", Category: "decision", Priority: PriorityMedium, Domain: "engineering"},
		{Text: "this is now the standard for", Category: "policy", Priority: PriorityMedium, Domain: "organization"},
		{Text: "we considered the alternatives", Category: "tradeoff", Priority: PriorityLow, Domain: "engineering"},
	}
}
