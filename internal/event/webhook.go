package event

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// WebhookSource parses generic JSON webhook payloads carrying RawEvent
// fields directly. An optional shared secret enables HMAC-SHA256
// signature verification ("sha256=<hex>" header format).
type WebhookSource struct {
	secret []byte
	kind   SourceKind
}

// NewWebhookSource creates a webhook source handler.
// secret may be empty, in which case signatures are not enforced.
func NewWebhookSource(secret string, kind SourceKind) *WebhookSource {
	if kind == "" {
		kind = SourceWebhook
	}
	return &WebhookSource{
		secret: []byte(secret),
		kind:   kind,
	}
}

// ParseEvent converts a webhook JSON body into a RawEvent.
func (w *WebhookSource) ParseEvent(body []byte) (RawEvent, error) {
	var ev RawEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return RawEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if ev.Source == "" {
		ev.Source = w.kind
	}
	if err := ev.Validate(); err != nil {
		return RawEvent{}, err
	}
	return ev, nil
}

// VerifySignature validates an HMAC-SHA256 signature over the body.
// Returns nil when no secret is configured.
func (w *WebhookSource) VerifySignature(signature string, body []byte) error {
	if len(w.secret) == 0 {
		return nil
	}

	signature = strings.TrimPrefix(signature, "sha256=")
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: signature is not hex", ErrInvalidSignature)
	}

	mac := hmac.New(sha256.New, w.secret)
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), expected) {
		return ErrInvalidSignature
	}
	return nil
}

// Kind returns the configured source kind.
func (w *WebhookSource) Kind() SourceKind {
	return w.kind
}

var _ Source = (*WebhookSource)(nil)
