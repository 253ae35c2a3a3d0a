// Package policy implements Tier 2 of the capture pipeline: a
// text-generation judgment of whether a Tier-1 candidate is truly worth
// capturing. The filter fails open: when it cannot render a judgment it
// prefers over-capture to silent data loss.
package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/scribe/internal/llm"
	"go.uber.org/zap"
)

// maxCandidateLength bounds the candidate text sent to the model.
const maxCandidateLength = 2000

// evaluateTimeout bounds one policy call.
const evaluateTimeout = 20 * time.Second

// capturePolicy is the fixed natural-language policy the model judges
// against.
const capturePolicy = `You decide whether a team-communication message contains organizational knowledge worth capturing as a decision record.

CAPTURE messages that contain:
- technical decisions (tool, architecture, or design choices with reasoning)
- policy or process changes
- trade-off analyses comparing alternatives
- incident findings, root causes, and debugging conclusions
- deprecations, migrations, and reversals of earlier decisions

REJECT messages that are:
- greetings, thanks, or social chatter
- routine status updates with no decision content
- vague opinions with no commitment or rationale
- questions without an answer or resolution

Respond with a JSON object:
{"should_capture": true|false, "reason": "one short sentence", "domain": "engineering|operations|organization|other"}

Respond ONLY with the JSON object, no additional text.`

// Verdict is the Tier-2 judgment.
type Verdict struct {
	// ShouldCapture reports whether the message should proceed to extraction.
	ShouldCapture bool `json:"should_capture"`

	// Reason is a short human-readable justification. On degradation it
	// identifies the failure that triggered fail-open.
	Reason string `json:"reason"`

	// Domain is the model's domain hint, possibly empty.
	Domain string `json:"domain,omitempty"`
}

// Filter asks a text-generation capability to judge candidates against
// the capture policy.
type Filter struct {
	generator llm.Generator
	logger    *zap.Logger
}

// New creates a policy filter.
func New(generator llm.Generator, logger *zap.Logger) *Filter {
	return &Filter{
		generator: generator,
		logger:    logger,
	}
}

// Evaluate issues one generation call and parses the structured verdict.
// Never returns an error: unavailability, call failures, and unparseable
// responses all fail open with a reason identifying the degradation.
func (f *Filter) Evaluate(ctx context.Context, text string, tier1Score float64, tier1Pattern string) Verdict {
	if !f.generator.Available() {
		return f.failOpen("policy filter unavailable: generator not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, evaluateTimeout)
	defer cancel()

	response, err := f.generator.Generate(ctx, llm.GenerateRequest{
		System:    capturePolicy,
		Prompt:    buildPrompt(text, tier1Score, tier1Pattern),
		MaxTokens: 256,
	})
	if err != nil {
		return f.failOpen(fmt.Sprintf("policy filter call failed: %v", err))
	}

	verdict, err := parseVerdict(response)
	if err != nil {
		return f.failOpen(fmt.Sprintf("policy filter response unparseable: %v", err))
	}

	f.logger.Debug("tier-2 policy verdict",
		zap.Bool("should_capture", verdict.ShouldCapture),
		zap.String("reason", verdict.Reason))
	return verdict
}

// failOpen returns a permissive verdict and logs the degradation.
func (f *Filter) failOpen(reason string) Verdict {
	f.logger.Warn("policy filter degraded, capturing by default", zap.String("reason", reason))
	return Verdict{
		ShouldCapture: true,
		Reason:        reason,
	}
}

// buildPrompt assembles the candidate text plus Tier-1 context.
func buildPrompt(text string, tier1Score float64, tier1Pattern string) string {
	text = llm.Truncate(text, maxCandidateLength)

	var b strings.Builder
	fmt.Fprintf(&b, "Similarity score: %.2f\n", tier1Score)
	if tier1Pattern != "" {
		fmt.Fprintf(&b, "Matched trigger phrase: %s\n", tier1Pattern)
	}
	b.WriteString("\nMessage:\n")
	b.WriteString(text)
	return b.String()
}

// verdictResponse is the expected structured response, with explicit
// defaults applied per field.
type verdictResponse struct {
	ShouldCapture *bool  `json:"should_capture"`
	Reason        string `json:"reason"`
	Domain        string `json:"domain"`
}

// parseVerdict locates and decodes the JSON verdict in the response.
func parseVerdict(response string) (Verdict, error) {
	raw, err := llm.ExtractJSONObject(response)
	if err != nil {
		return Verdict{}, err
	}

	var vr verdictResponse
	if err := json.Unmarshal(raw, &vr); err != nil {
		return Verdict{}, fmt.Errorf("decoding verdict: %w", err)
	}
	if vr.ShouldCapture == nil {
		return Verdict{}, fmt.Errorf("verdict missing should_capture")
	}

	reason := vr.Reason
	if reason == "" {
		reason = "no reason given"
	}
	return Verdict{
		ShouldCapture: *vr.ShouldCapture,
		Reason:        reason,
		Domain:        vr.Domain,
	}, nil
}
