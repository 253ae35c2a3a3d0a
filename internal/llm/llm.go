// Package llm provides provider-agnostic text generation for the
// capture pipeline's policy and extraction tiers.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// Common errors for generation operations.
var (
	ErrNotConfigured = errors.New("generator not configured")
	ErrEmptyPrompt   = errors.New("prompt cannot be empty")
	ErrEmptyResponse = errors.New("empty response from provider")
)

// Default configuration values.
const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultAnthropicModel   = "claude-3-5-haiku-20241022"
	defaultOpenAIBaseURL    = "https://api.openai.com"
	defaultOpenAIModel      = "gpt-4o-mini"
	defaultMaxTokens        = 1024
	defaultTimeout          = 30 * time.Second
)

// Rate limiter defaults: 50 requests per minute for both APIs.
const (
	defaultRateLimit = 50.0 / 60.0
	defaultBurst     = 5
)

// GenerateRequest is one text-generation call.
type GenerateRequest struct {
	// Prompt is the user-role content.
	Prompt string

	// System is the optional system policy.
	System string

	// MaxTokens bounds the response length. Zero uses the provider default.
	MaxTokens int

	// Temperature controls sampling. Zero means deterministic-leaning (0.2).
	Temperature float64
}

// Generator is the text-generation capability consumed by Tier 2 and
// Tier 3. Calls carry an explicit timeout via context and must be
// treated as cancellable; failures degrade the calling tier.
type Generator interface {
	// Generate issues one generation call and returns the raw text.
	Generate(ctx context.Context, req GenerateRequest) (string, error)

	// Available returns true if the generator is configured and ready.
	Available() bool
}

// Config holds provider-specific configuration.
type Config struct {
	// Provider selects the backend: "anthropic", "openai", or "disabled".
	Provider string `koanf:"provider"`

	// Model is the model name. Empty uses the provider default.
	Model string `koanf:"model"`

	// APIKey authenticates with the provider.
	APIKey string `koanf:"api_key"`

	// BaseURL overrides the provider endpoint (for proxies and tests).
	BaseURL string `koanf:"base_url"`

	// TimeoutSeconds bounds each call. Zero uses the default.
	TimeoutSeconds int `koanf:"timeout_seconds"`
}

// NewGenerator creates a Generator for the configured provider.
// Provider "disabled" (or empty) returns a generator whose Available()
// is false, so dependent tiers degrade per their own policies.
func NewGenerator(cfg Config) (Generator, error) {
	switch cfg.Provider {
	case "anthropic":
		return newAnthropicGenerator(cfg)
	case "openai":
		return newOpenAIGenerator(cfg)
	case "", "disabled":
		return &disabledGenerator{}, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// disabledGenerator reports unavailable and fails every call.
type disabledGenerator struct{}

func (d *disabledGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	return "", ErrNotConfigured
}

func (d *disabledGenerator) Available() bool {
	return false
}

// Truncate cuts s to at most max bytes without splitting a rune. The
// cut lands on the last rune boundary at or below max.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

var _ Generator = (*disabledGenerator)(nil)
