package http

import (
	"io"

	"github.com/fyrsmithlabs/scribe/internal/event"
	"github.com/fyrsmithlabs/scribe/internal/record"
	"github.com/fyrsmithlabs/scribe/internal/review"
	"github.com/labstack/echo/v4"
)

// CaptureRequest is the request body for POST /api/v1/capture.
type CaptureRequest struct {
	Text      string `json:"text"`
	User      string `json:"user"`
	Channel   string `json:"channel"`
	Timestamp string `json:"timestamp"`
	Source    string `json:"source"`
	ThreadID  string `json:"thread_id"`
	URL       string `json:"url"`

	// Language hints the extractor; empty means unspecified.
	Language string `json:"language"`
}

// event converts the request into the canonical pipeline input.
func (r CaptureRequest) event() event.RawEvent {
	source := event.SourceKind(r.Source)
	if source == "" {
		source = event.SourceWebhook
	}
	return event.RawEvent{
		Text:      r.Text,
		User:      r.User,
		Channel:   r.Channel,
		Timestamp: r.Timestamp,
		Source:    source,
		ThreadID:  r.ThreadID,
		URL:       r.URL,
	}
}

// ScrubRequest is the request body for POST /api/v1/scrub.
type ScrubRequest struct {
	Content string `json:"content"`
}

// ScrubResponse is the response body for POST /api/v1/scrub.
type ScrubResponse struct {
	Content       string   `json:"content"`
	FindingsCount int      `json:"findings_count"`
	Categories    []string `json:"categories"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// PendingResponse is the response body for GET /api/v1/review/pending.
type PendingResponse struct {
	Items []review.Item `json:"items"`
}

// SubmitReviewRequest is the request body for POST /api/v1/review/:record_id.
type SubmitReviewRequest struct {
	Reviewer string         `json:"reviewer"`
	Answers  review.Answers `json:"answers"`
}

// SubmitReviewResponse is the response body for a review submission.
type SubmitReviewResponse struct {
	RecordID string                 `json:"record_id"`
	Result   string                 `json:"result"`
	Record   *record.DecisionRecord `json:"record,omitempty"`
}

// ClearResponse is the response body for POST /api/v1/review/clear.
type ClearResponse struct {
	Removed int `json:"removed"`
}

// readBody drains the request body.
func readBody(c echo.Context) ([]byte, error) {
	return io.ReadAll(c.Request().Body)
}
