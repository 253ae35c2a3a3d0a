// Package detector implements Tier 1 of the capture pipeline: a cheap
// similarity match deciding whether a message is possibly significant.
package detector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fyrsmithlabs/scribe/internal/patterns"
	"github.com/fyrsmithlabs/scribe/internal/similarity"
	"go.uber.org/zap"
)

// minMessageLength rejects fragments outright: anything shorter (after
// trimming) produces spurious similarity matches.
const minMessageLength = 20

// ErrInvalidThreshold indicates a threshold outside [0, 1].
var ErrInvalidThreshold = errors.New("threshold must be between 0.0 and 1.0")

// Result is the Tier-1 verdict for one message. Not persisted.
type Result struct {
	// IsSignificant reports whether the best score met the detector threshold.
	IsSignificant bool `json:"is_significant"`

	// Confidence is the best similarity score clamped to [0, 1].
	Confidence float64 `json:"confidence"`

	// MatchedPattern is the text of the best-matching trigger phrase.
	MatchedPattern string `json:"matched_pattern,omitempty"`

	// Category is the matched pattern's category.
	Category string `json:"category,omitempty"`

	// Domain is the matched pattern's domain.
	Domain string `json:"domain,omitempty"`

	// Priority is the matched pattern's priority.
	Priority patterns.Priority `json:"priority,omitempty"`

	// TopMatches carries diagnostic candidates from DetectWithDetails.
	// Never used for the capture decision itself.
	TopMatches []similarity.Match `json:"top_matches,omitempty"`
}

// Config holds the two independently tuned thresholds.
type Config struct {
	// Threshold is the minimum similarity for significance.
	Threshold float64 `koanf:"threshold"`

	// AutoCaptureThreshold is the minimum confidence to skip human review.
	AutoCaptureThreshold float64 `koanf:"auto_capture_threshold"`

	// TopK bounds DetectWithDetails diagnostics.
	TopK int `koanf:"top_k"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Threshold == 0 {
		c.Threshold = 0.65
	}
	if c.AutoCaptureThreshold == 0 {
		c.AutoCaptureThreshold = 0.85
	}
	if c.TopK == 0 {
		c.TopK = 5
	}
}

// Validate checks the thresholds.
func (c Config) Validate() error {
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("%w: detector threshold %v", ErrInvalidThreshold, c.Threshold)
	}
	if c.AutoCaptureThreshold < 0 || c.AutoCaptureThreshold > 1 {
		return fmt.Errorf("%w: auto-capture threshold %v", ErrInvalidThreshold, c.AutoCaptureThreshold)
	}
	return nil
}

// Detector classifies messages as possibly significant via the
// similarity index.
type Detector struct {
	index  similarity.Index
	config Config
	logger *zap.Logger
}

// New creates a detector.
func New(index similarity.Index, cfg Config, logger *zap.Logger) (*Detector, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Detector{
		index:  index,
		config: cfg,
		logger: logger,
	}, nil
}

// Detect classifies one message.
func (d *Detector) Detect(ctx context.Context, text string) (Result, error) {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < minMessageLength {
		return Result{IsSignificant: false, Confidence: 0}, nil
	}

	// Threshold 0 always surfaces the best score; the significance
	// decision is made here, not in the index.
	best, found, err := d.index.FindBestMatch(ctx, trimmed, 0)
	if err != nil {
		return Result{}, fmt.Errorf("querying similarity index: %w", err)
	}
	if !found {
		return Result{IsSignificant: false, Confidence: 0}, nil
	}

	confidence := float64(best.Score)
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	result := Result{
		IsSignificant:  confidence >= d.config.Threshold,
		Confidence:     confidence,
		MatchedPattern: best.Entry.Text,
		Category:       best.Entry.Category,
		Domain:         best.Entry.Domain,
		Priority:       best.Entry.Priority,
	}

	d.logger.Debug("tier-1 detection",
		zap.Bool("significant", result.IsSignificant),
		zap.Float64("confidence", result.Confidence),
		zap.String("pattern", result.MatchedPattern))

	return result, nil
}

// DetectWithDetails additionally surfaces the top-k candidate matches
// for observability. The capture decision is identical to Detect.
func (d *Detector) DetectWithDetails(ctx context.Context, text string) (Result, error) {
	result, err := d.Detect(ctx, text)
	if err != nil {
		return Result{}, err
	}
	if result.Confidence == 0 && !result.IsSignificant && result.MatchedPattern == "" {
		return result, nil
	}

	matches, err := d.index.FindTopMatches(ctx, strings.TrimSpace(text), d.config.TopK, 0)
	if err != nil {
		return Result{}, fmt.Errorf("querying top matches: %w", err)
	}
	result.TopMatches = matches
	return result, nil
}

// ShouldAutoCapture reports whether the result is confident enough to
// skip human review.
func (d *Detector) ShouldAutoCapture(result Result) bool {
	return result.IsSignificant && result.Confidence >= d.config.AutoCaptureThreshold
}

// NeedsReview reports whether the result is significant but below the
// auto-capture threshold.
func (d *Detector) NeedsReview(result Result) bool {
	return result.IsSignificant && !d.ShouldAutoCapture(result)
}
