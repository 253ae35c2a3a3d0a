package redact

// Rule describes one sensitive-data pattern and its typed placeholder.
type Rule struct {
	// ID is a unique rule identifier.
	ID string

	// Category is the placeholder category (EMAIL, PHONE, API_KEY, ...).
	Category string

	// Pattern is the regex pattern to match.
	Pattern string

	// KeepPrefix, when set, preserves the first capture group and
	// redacts only the second (used for key=value shapes).
	KeepPrefix bool
}

// DefaultRules returns the ordered sensitive-data cascade.
// More specific patterns come first so they are not shadowed by the
// generic opaque-token rule.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:       "private-key",
			Category: "PRIVATE_KEY",
			Pattern:  `-----BEGIN (?:RSA |DSA |EC |OPENSSH |PGP )?PRIVATE KEY(?:[- ]BLOCK)?-----[\s\S]*?-----END (?:RSA |DSA |EC |OPENSSH |PGP )?PRIVATE KEY(?:[- ]BLOCK)?-----`,
		},
		{
			ID:       "email",
			Category: "EMAIL",
			Pattern:  `[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`,
		},
		{
			ID:       "anthropic-key",
			Category: "API_KEY",
			Pattern:  `sk-ant-[A-Za-z0-9\-]{20,}`,
		},
		{
			ID:       "openai-key",
			Category: "API_KEY",
			Pattern:  `sk-[A-Za-z0-9]{20,}`,
		},
		{
			ID:       "github-token",
			Category: "API_KEY",
			Pattern:  `gh[pousr]_[A-Za-z0-9]{36,}`,
		},
		{
			ID:         "keyed-secret",
			Category:   "SECRET",
			Pattern:    `(?i)((?:api[_-]?key|apikey|secret|token|password|passwd|pwd)\s*[:=]\s*)['"]?([A-Za-z0-9_\-/+=\.]{8,})['"]?`,
			KeepPrefix: true,
		},
		{
			ID:       "bearer-token",
			Category: "TOKEN",
			Pattern:  `(?i)bearer\s+[A-Za-z0-9_\-\.=]{20,}`,
		},
		{
			ID:       "credit-card",
			Category: "CARD",
			Pattern:  `\b(?:\d[ \-]?){13,16}\b`,
		},
		{
			ID:       "phone",
			Category: "PHONE",
			Pattern:  `(?:\+?\d{1,3}[ \-\.]?)?\(?\d{3}\)?[ \-\.]?\d{3}[ \-\.]?\d{4}\b`,
		},
		{
			ID:       "opaque-token",
			Category: "TOKEN",
			Pattern:  `\b[A-Za-z0-9_\-]{40,}\b`,
		},
	}
}
