// Package source consumes raw events from messaging transports and
// feeds them into the capture pipeline.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/scribe/internal/event"
	"github.com/fyrsmithlabs/scribe/internal/pipeline"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Config holds NATS subscriber configuration.
type Config struct {
	// URL is the NATS server address.
	URL string `koanf:"url"`

	// Subject is the subject to subscribe to.
	Subject string `koanf:"subject"`

	// Queue is the queue group name. Instances sharing a queue group
	// split the event stream instead of each receiving every event.
	Queue string `koanf:"queue"`
}

// ApplyDefaults fills unset fields with defaults.
func (c *Config) ApplyDefaults() {
	if c.URL == "" {
		c.URL = nats.DefaultURL
	}
	if c.Subject == "" {
		c.Subject = "scribe.events"
	}
	if c.Queue == "" {
		c.Queue = "scribe"
	}
}

// Subscriber consumes RawEvent JSON messages from a NATS subject and
// runs each through the pipeline. Capture failures are logged, never
// re-queued: a malformed or unprocessable event would fail identically
// on redelivery.
type Subscriber struct {
	conn    *nats.Conn
	config  Config
	service *pipeline.Service
	logger  *zap.Logger
}

// NewSubscriber connects to NATS. The connection retries on initial
// failure so scribed can start before the broker.
func NewSubscriber(cfg Config, service *pipeline.Service, logger *zap.Logger) (*Subscriber, error) {
	cfg.ApplyDefaults()
	if service == nil {
		return nil, fmt.Errorf("pipeline service cannot be nil")
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name("scribed"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(1*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", cfg.URL, err)
	}

	return &Subscriber{
		conn:    nc,
		config:  cfg,
		service: service,
		logger:  logger,
	}, nil
}

// Run subscribes and processes events until ctx is canceled.
func (s *Subscriber) Run(ctx context.Context) error {
	sub, err := s.conn.QueueSubscribe(s.config.Subject, s.config.Queue, func(msg *nats.Msg) {
		s.handle(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", s.config.Subject, err)
	}
	defer sub.Unsubscribe()

	s.logger.Info("nats source started",
		zap.String("subject", s.config.Subject),
		zap.String("queue", s.config.Queue))

	<-ctx.Done()
	return nil
}

// handle processes one message.
func (s *Subscriber) handle(ctx context.Context, msg *nats.Msg) {
	var ev event.RawEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		s.logger.Warn("dropping malformed event",
			zap.String("subject", msg.Subject),
			zap.Error(err))
		return
	}
	if ev.Source == "" {
		ev.Source = event.SourceChat
	}

	outcome, err := s.service.Capture(ctx, ev, "")
	if err != nil {
		if errors.Is(err, pipeline.ErrDetectionUnavailable) {
			s.logger.Warn("dropping event, detection unavailable")
			return
		}
		s.logger.Error("capture failed for nats event", zap.Error(err))
		return
	}

	s.logger.Debug("nats event processed",
		zap.String("disposition", string(outcome.Disposition)))
}

// Close drains and closes the NATS connection.
func (s *Subscriber) Close() {
	if s.conn != nil {
		s.conn.Close()
	}
}
