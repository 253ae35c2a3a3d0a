package record

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fyrsmithlabs/scribe/internal/detector"
	"github.com/fyrsmithlabs/scribe/internal/event"
	"github.com/fyrsmithlabs/scribe/internal/extractor"
	"github.com/fyrsmithlabs/scribe/internal/redact"
	"go.uber.org/zap"
)

// Builder assembles decision records from raw events, enforcing the
// evidence and grouping invariants. Extraction failures fall back to
// the regex path; they never fail record construction.
type Builder struct {
	extractor extractor.Extractor
	scrubber  *redact.Scrubber
	logger    *zap.Logger
	now       func() time.Time
}

// NewBuilder creates a builder. extractor may be nil, in which case the
// regex fallback path is always used.
func NewBuilder(ex extractor.Extractor, scrubber *redact.Scrubber, logger *zap.Logger) *Builder {
	return &Builder{
		extractor: ex,
		scrubber:  scrubber,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the time source. For tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build assembles one decision record from the event. Multi-phase
// extractions are collapsed to their first phase; use BuildPhases to
// preserve them.
func (b *Builder) Build(ctx context.Context, ev event.RawEvent, det detector.Result, language string) (*DecisionRecord, error) {
	records, err := b.BuildPhases(ctx, ev, det, language)
	if err != nil {
		return nil, err
	}
	return records[0], nil
}

// BuildPhases assembles one record per extraction phase. A single-phase
// extraction collapses to the same shape as Build with no group fields
// set.
func (b *Builder) BuildPhases(ctx context.Context, ev event.RawEvent, det detector.Result, language string) ([]*DecisionRecord, error) {
	if err := ev.Validate(); err != nil {
		return nil, fmt.Errorf("invalid event: %w", err)
	}

	// Redaction runs before any extraction so sensitive values never
	// reach a model call or persisted field.
	scrub := b.scrubber.Scrub(ev.Text)
	text := scrub.Scrubbed

	extraction := b.extract(ctx, text, language)

	now := b.now()
	if len(extraction.Phases) == 1 {
		rec := b.buildOne(ev, det, extraction.Phases[0], scrub, text, now)
		rec.ID = NewID(now)
		finalize(rec)
		return []*DecisionRecord{rec}, nil
	}

	groupType := GroupType(extraction.GroupType)
	if groupType != GroupPhaseChain && groupType != GroupBundle {
		groupType = GroupPhaseChain
	}

	baseID := NewID(now)
	domain := domainOf(det)
	groupID := NewGroupID(now, domain, extraction.Phases[0].Title)

	records := make([]*DecisionRecord, 0, len(extraction.Phases))
	for seq, fields := range extraction.Phases {
		rec := b.buildOne(ev, det, fields, scrub, text, now)
		rec.ID = PhaseID(baseID, groupType, seq)
		rec.GroupID = groupID
		rec.GroupType = groupType
		rec.PhaseSeq = seq
		rec.PhaseTotal = len(extraction.Phases)
		finalize(rec)
		records = append(records, rec)
	}
	return records, nil
}

// extract runs the structured extractor when available for all
// languages (it is more robust to typos and informality than pattern
// matching), degrading to the regex fallback on any failure.
func (b *Builder) extract(ctx context.Context, text, language string) *extractor.Extraction {
	if b.extractor != nil && b.extractor.Available() {
		extraction, err := b.extractor.Extract(ctx, text, language)
		if err == nil && len(extraction.Phases) > 0 {
			return extraction
		}
		if err != nil {
			b.logger.Warn("structured extraction failed, using regex fallback", zap.Error(err))
		}
	}
	return &extractor.Extraction{Phases: []extractor.Fields{fallbackExtract(text)}}
}

// buildOne assembles a record without ID, group fields, or payload.
func (b *Builder) buildOne(ev event.RawEvent, det detector.Result, fields extractor.Fields, scrub *redact.Result, text string, now time.Time) *DecisionRecord {
	source := EvidenceSource{
		Type:    string(ev.Source),
		URL:     ev.URL,
		Pointer: ev.ThreadID,
	}

	evidence := ExtractEvidence(text, source)
	certainty, missingInfo := determineCertainty(evidence, fields.Rationale)

	status := determineStatus(fields.StatusHint, text)
	if len(evidence) == 0 {
		status = StatusProposed
	}

	title := fields.Title
	if title == "" {
		title = fallbackTitle(text)
	}

	what := fields.Chosen
	if what == "" {
		what = title
	}

	sensitivity := SensitivityInternal
	var reviewNotes string
	if scrub.Changed() {
		sensitivity = SensitivityRestricted
		reviewNotes = "redacted: " + strings.Join(scrub.Categories(), ", ")
	}

	return &DecisionRecord{
		Domain:      domainOf(det),
		Sensitivity: sensitivity,
		Status:      status,
		Title:       title,
		Decision: Decision{
			What:  what,
			Who:   who(ev),
			Where: ev.Channel,
			When:  when(ev, now),
		},
		Context: Context{
			Problem:      fields.Problem,
			Alternatives: orEmpty(fields.Alternatives),
			Chosen:       fields.Chosen,
			TradeOffs:    orEmpty(fields.TradeOffs),
		},
		Why: Why{
			RationaleSummary: fields.Rationale,
			Certainty:        certainty,
			MissingInfo:      orEmpty(missingInfo),
		},
		Evidence: evidence,
		Tags:     mergeTags(fields.Tags, det),
		Quality: Quality{
			ScribeConfidence: det.Confidence,
			ReviewState:      ReviewStatePending,
			ReviewNotes:      reviewNotes,
		},
	}
}

// finalize renders the derived payload view.
func finalize(rec *DecisionRecord) {
	rec.Payload = Payload{
		Format: payloadFormat,
		Text:   Render(rec),
	}
}

// domainOf picks the record domain from detection, defaulting to general.
func domainOf(det detector.Result) string {
	if det.Domain != "" {
		return det.Domain
	}
	return "general"
}

// who lists the deciding participants known from the event.
func who(ev event.RawEvent) []string {
	if ev.User == "" {
		return []string{}
	}
	return []string{ev.User}
}

// when prefers the source-native timestamp, falling back to capture time.
func when(ev event.RawEvent, now time.Time) string {
	if ev.Timestamp != "" {
		return ev.Timestamp
	}
	return now.UTC().Format(time.RFC3339)
}

// mergeTags combines extractor tags with the matched pattern's category
// and domain, de-duplicated and sorted for deterministic rendering.
func mergeTags(tags []string, det detector.Result) []string {
	seen := make(map[string]struct{})
	merged := make([]string, 0, len(tags)+2)

	add := func(tag string) {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			return
		}
		if _, dup := seen[tag]; dup {
			return
		}
		seen[tag] = struct{}{}
		merged = append(merged, tag)
	}

	for _, t := range tags {
		add(t)
	}
	add(det.Category)
	add(det.Domain)

	sort.Strings(merged)
	return merged
}

// orEmpty replaces a nil slice with an empty one so JSON round-trips
// stay stable.
func orEmpty(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
