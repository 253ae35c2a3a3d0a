package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/scribe/internal/llm"
	"go.uber.org/zap"
)

// maxExtractLength bounds the text sent to the model.
const maxExtractLength = 4000

// extractTimeout bounds one extraction call.
const extractTimeout = 30 * time.Second

// extractPrompt is the system prompt for structured extraction.
const extractPrompt = `You extract structured decision content from team-communication messages. The message may be informal, contain typos, and be written in any language; extract field values in the message's own language.

Respond with a JSON object:
{
  "title": "short decision title",
  "rationale": "the stated reasoning, empty string if none is stated",
  "problem": "the problem being addressed, empty string if unclear",
  "alternatives": ["options that were considered"],
  "chosen": "the selected option, empty string if unclear",
  "trade_offs": ["accepted downsides"],
  "status_hint": "accepted" | "proposed" | "rejected" | "",
  "tags": ["short lowercase tags"]
}

If the message describes an extended multi-stage reasoning process too large for one record, instead respond with:
{"group_type": "phase_chain" | "bundle", "phases": [ { ...same fields per phase... } ]}

Use "phase_chain" for successive stages of one process and "bundle" for distinct facets of one decision. Respond ONLY with the JSON object.`

// LLMExtractor implements Extractor over a text-generation capability.
type LLMExtractor struct {
	generator llm.Generator
	logger    *zap.Logger
}

// NewLLMExtractor creates an extractor backed by the given generator.
func NewLLMExtractor(generator llm.Generator, logger *zap.Logger) *LLMExtractor {
	return &LLMExtractor{
		generator: generator,
		logger:    logger,
	}
}

// Extract issues one generation call and decodes the structured result.
func (e *LLMExtractor) Extract(ctx context.Context, text, language string) (*Extraction, error) {
	if !e.generator.Available() {
		return nil, llm.ErrNotConfigured
	}

	text = llm.Truncate(text, maxExtractLength)

	var prompt strings.Builder
	if language != "" {
		fmt.Fprintf(&prompt, "Message language hint: %s\n\n", language)
	}
	prompt.WriteString("Message:\n")
	prompt.WriteString(text)

	ctx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()

	response, err := e.generator.Generate(ctx, llm.GenerateRequest{
		System:    extractPrompt,
		Prompt:    prompt.String(),
		MaxTokens: 1024,
	})
	if err != nil {
		return nil, fmt.Errorf("extraction call: %w", err)
	}

	extraction, err := parseExtraction(response)
	if err != nil {
		return nil, fmt.Errorf("parsing extraction: %w", err)
	}

	e.logger.Debug("tier-3 extraction",
		zap.Int("phases", len(extraction.Phases)),
		zap.String("group_type", extraction.GroupType))
	return extraction, nil
}

// Available returns true if the underlying generator is ready.
func (e *LLMExtractor) Available() bool {
	return e.generator.Available()
}

// extractionResponse covers both the single-phase and multi-phase
// response shapes; unknown or missing fields decay to zero values.
type extractionResponse struct {
	Fields
	GroupType string   `json:"group_type"`
	Phases    []Fields `json:"phases"`
}

// parseExtraction locates and decodes the JSON result.
func parseExtraction(response string) (*Extraction, error) {
	raw, err := llm.ExtractJSONObject(response)
	if err != nil {
		return nil, err
	}

	var er extractionResponse
	if err := json.Unmarshal(raw, &er); err != nil {
		return nil, fmt.Errorf("decoding extraction: %w", err)
	}

	if len(er.Phases) > 0 {
		groupType := er.GroupType
		if groupType != GroupPhaseChain && groupType != GroupBundle {
			groupType = GroupPhaseChain
		}
		phases := make([]Fields, len(er.Phases))
		for i, p := range er.Phases {
			phases[i] = normalizeFields(p)
		}
		ex := &Extraction{Phases: phases, GroupType: groupType}
		if len(phases) == 1 {
			// A one-phase "chain" collapses to the ordinary shape.
			ex.GroupType = ""
		}
		return ex, nil
	}

	return &Extraction{Phases: []Fields{normalizeFields(er.Fields)}}, nil
}

// normalizeFields trims whitespace and drops empty list members.
func normalizeFields(f Fields) Fields {
	f.Title = strings.TrimSpace(f.Title)
	f.Rationale = strings.TrimSpace(f.Rationale)
	f.Problem = strings.TrimSpace(f.Problem)
	f.Chosen = strings.TrimSpace(f.Chosen)
	f.Alternatives = cleanList(f.Alternatives)
	f.TradeOffs = cleanList(f.TradeOffs)
	f.Tags = cleanList(f.Tags)

	switch f.StatusHint {
	case "accepted", "proposed", "rejected":
	default:
		f.StatusHint = ""
	}
	return f
}

// cleanList trims members and drops empties.
func cleanList(items []string) []string {
	cleaned := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			cleaned = append(cleaned, item)
		}
	}
	return cleaned
}

var _ Extractor = (*LLMExtractor)(nil)
