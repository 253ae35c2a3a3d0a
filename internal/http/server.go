// Package http provides the HTTP API for scribed: event capture,
// review queue management, redaction preview, and health.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fyrsmithlabs/scribe/internal/event"
	"github.com/fyrsmithlabs/scribe/internal/pipeline"
	"github.com/fyrsmithlabs/scribe/internal/redact"
	"github.com/fyrsmithlabs/scribe/internal/review"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// Server provides HTTP endpoints for scribed.
type Server struct {
	echo     *echo.Echo
	service  *pipeline.Service
	queue    *review.Queue
	scrubber *redact.Scrubber
	webhook  *event.WebhookSource
	logger   *zap.Logger
	config   *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a new HTTP server.
func NewServer(service *pipeline.Service, queue *review.Queue, scrubber *redact.Scrubber, webhook *event.WebhookSource, logger *zap.Logger, cfg *Config) (*Server, error) {
	if service == nil {
		return nil, fmt.Errorf("pipeline service cannot be nil")
	}
	if queue == nil {
		return nil, fmt.Errorf("review queue cannot be nil")
	}
	if scrubber == nil {
		return nil, fmt.Errorf("scrubber cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9090,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	metrics := NewHTTPMetrics(logger)
	e.Use(metrics.MetricsMiddleware())

	s := &Server{
		echo:     e,
		service:  service,
		queue:    queue,
		scrubber: scrubber,
		webhook:  webhook,
		logger:   logger,
		config:   cfg,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	v1 := s.echo.Group("/api/v1")
	v1.POST("/capture", s.handleCapture)
	v1.POST("/webhook", s.handleWebhook)
	v1.POST("/scrub", s.handleScrub)

	v1.GET("/review/pending", s.handlePending)
	v1.GET("/review/stats", s.handleStats)
	v1.POST("/review/:record_id", s.handleSubmitReview)
	v1.DELETE("/review/:record_id", s.handleRemove)
	v1.POST("/review/clear", s.handleClearReviewed)
}

// handleHealth reports ok, or degraded when detection cannot serve.
func (s *Server) handleHealth(c echo.Context) error {
	if !s.service.Available() {
		return c.JSON(http.StatusServiceUnavailable, HealthResponse{
			Status: "degraded",
			Detail: "detection unavailable: similarity index not loaded",
		})
	}
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleCapture runs one event through the capture pipeline.
func (s *Server) handleCapture(c echo.Context) error {
	var req CaptureRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid capture request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text field is required")
	}

	outcome, err := s.service.Capture(c.Request().Context(), req.event(), req.Language)
	if err != nil {
		if errors.Is(err, pipeline.ErrDetectionUnavailable) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		}
		s.logger.Error("capture failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "capture failed")
	}

	return c.JSON(http.StatusOK, outcome)
}

// handleWebhook accepts a signed webhook payload and captures it.
func (s *Server) handleWebhook(c echo.Context) error {
	if s.webhook == nil {
		return echo.NewHTTPError(http.StatusNotFound, "webhook source not configured")
	}

	body, err := readBody(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable request body")
	}

	signature := c.Request().Header.Get("X-Signature-256")
	if err := s.webhook.VerifySignature(signature, body); err != nil {
		s.logger.Warn("webhook signature rejected", zap.Error(err))
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid signature")
	}

	ev, err := s.webhook.ParseEvent(body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	outcome, err := s.service.Capture(c.Request().Context(), ev, "")
	if err != nil {
		if errors.Is(err, pipeline.ErrDetectionUnavailable) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		}
		s.logger.Error("webhook capture failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "capture failed")
	}

	return c.JSON(http.StatusOK, outcome)
}

// handleScrub previews the redaction cascade over arbitrary content.
func (s *Server) handleScrub(c echo.Context) error {
	var req ScrubRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid scrub request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content field is required")
	}

	result := s.scrubber.Scrub(req.Content)

	return c.JSON(http.StatusOK, ScrubResponse{
		Content:       result.Scrubbed,
		FindingsCount: len(result.Findings),
		Categories:    result.Categories(),
	})
}

// handlePending lists all pending review items.
func (s *Server) handlePending(c echo.Context) error {
	return c.JSON(http.StatusOK, PendingResponse{Items: s.queue.Pending()})
}

// handleStats summarizes the review queue.
func (s *Server) handleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.queue.GetStats())
}

// handleSubmitReview applies reviewer answers to a pending item.
func (s *Server) handleSubmitReview(c echo.Context) error {
	recordID := c.Param("record_id")

	var req SubmitReviewRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid review submission", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	rec, err := s.service.SubmitReview(c.Request().Context(), recordID, req.Answers, req.Reviewer)
	switch {
	case errors.Is(err, review.ErrInvalidAnswers):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, review.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, review.ErrNotPending):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		s.logger.Error("review submission failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "review submission failed")
	}

	resp := SubmitReviewResponse{RecordID: recordID}
	if rec == nil {
		resp.Result = "rejected"
	} else {
		resp.Result = "approved"
		resp.Record = rec
	}
	return c.JSON(http.StatusOK, resp)
}

// handleRemove deletes a review item regardless of status.
func (s *Server) handleRemove(c echo.Context) error {
	recordID := c.Param("record_id")
	if err := s.queue.Remove(recordID); err != nil {
		if errors.Is(err, review.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		s.logger.Error("review removal failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "removal failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// handleClearReviewed drops all reviewed and rejected items.
func (s *Server) handleClearReviewed(c echo.Context) error {
	removed, err := s.queue.ClearReviewed()
	if err != nil {
		s.logger.Error("clearing reviewed items failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "clear failed")
	}
	return c.JSON(http.StatusOK, ClearResponse{Removed: removed})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
