// Package event defines the canonical inbound event model and the
// source-handler capability interface implemented per transport.
package event

import (
	"errors"
)

// Common errors for event handling.
var (
	ErrEmptyText        = errors.New("event text cannot be empty")
	ErrInvalidSignature = errors.New("invalid event signature")
	ErrMalformedEvent   = errors.New("malformed event payload")
)

// SourceKind identifies where an event originated.
type SourceKind string

const (
	// SourceChat indicates a chat message (Slack-style).
	SourceChat SourceKind = "chat"

	// SourceWiki indicates a wiki/document edit event.
	SourceWiki SourceKind = "wiki"

	// SourceWebhook indicates a generic JSON webhook.
	SourceWebhook SourceKind = "webhook"
)

// RawEvent is the canonical input to the capture pipeline.
// Upstream source handlers normalize transport payloads into this shape;
// the pipeline imposes no requirements on how the event was obtained.
type RawEvent struct {
	// Text is the full message content.
	Text string `json:"text"`

	// User is the author identifier as reported by the source.
	User string `json:"user"`

	// Channel is the conversation or page identifier.
	Channel string `json:"channel"`

	// Timestamp is the source-native timestamp string, kept verbatim.
	Timestamp string `json:"timestamp"`

	// Source identifies the originating transport.
	Source SourceKind `json:"source"`

	// ThreadID links the event to a thread, when the source has threads.
	ThreadID string `json:"thread_id,omitempty"`

	// URL is a permalink to the original message, when available.
	URL string `json:"url,omitempty"`
}

// Validate checks the event for the minimum fields the pipeline needs.
func (e RawEvent) Validate() error {
	if e.Text == "" {
		return ErrEmptyText
	}
	return nil
}

// Source is the capability interface implemented per transport.
// Implementations are selected by configuration, not inheritance.
type Source interface {
	// ParseEvent converts a raw transport payload into a RawEvent.
	ParseEvent(body []byte) (RawEvent, error)

	// VerifySignature checks the transport's authenticity header against
	// the payload. Sources without signing return nil.
	VerifySignature(signature string, body []byte) error

	// Kind returns the source kind this handler produces.
	Kind() SourceKind
}
