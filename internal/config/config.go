// Package config provides configuration loading for scribed.
package config

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/scribe/internal/detector"
	"github.com/fyrsmithlabs/scribe/internal/embeddings"
	"github.com/fyrsmithlabs/scribe/internal/llm"
	"github.com/fyrsmithlabs/scribe/internal/logging"
	"github.com/fyrsmithlabs/scribe/internal/similarity"
	"github.com/fyrsmithlabs/scribe/internal/source"
)

// Config is the complete scribed configuration.
type Config struct {
	Logging    logging.Config    `koanf:"logging"`
	Server     ServerConfig      `koanf:"server"`
	Embeddings embeddings.Config `koanf:"embeddings"`
	LLM        llm.Config        `koanf:"llm"`
	Extractor  ExtractorConfig   `koanf:"extractor"`
	Detector   detector.Config   `koanf:"detector"`
	Similarity similarity.Config `koanf:"similarity"`
	Patterns   PatternsConfig    `koanf:"patterns"`
	Queue      QueueConfig       `koanf:"queue"`
	Records    RecordsConfig     `koanf:"records"`
	NATS       NATSConfig        `koanf:"nats"`
	Webhook    WebhookConfig     `koanf:"webhook"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// ExtractorConfig holds the Tier-3 extractor settings. The extractor
// shares the llm section's provider; this section only toggles it.
type ExtractorConfig struct {
	Enabled bool `koanf:"enabled"`
}

// PatternsConfig locates the trigger-phrase pattern file.
type PatternsConfig struct {
	// Path is the YAML pattern file. Empty uses the built-in set.
	Path string `koanf:"path"`

	// Watch enables live reload on pattern file changes.
	Watch bool `koanf:"watch"`
}

// QueueConfig locates the review queue file.
type QueueConfig struct {
	Path string `koanf:"path"`
}

// RecordsConfig locates the finalized record sink.
type RecordsConfig struct {
	Path string `koanf:"path"`
}

// NATSConfig holds the optional NATS event source settings.
type NATSConfig struct {
	Enabled bool          `koanf:"enabled"`
	Source  source.Config `koanf:"source"`
}

// WebhookConfig holds the inbound webhook settings.
type WebhookConfig struct {
	// Secret enables HMAC-SHA256 signature verification when non-empty.
	Secret string `koanf:"secret"`
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Embeddings.Validate(); err != nil {
		return fmt.Errorf("embeddings: %w", err)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server: port %d out of range", c.Server.Port)
	}
	if c.Detector.Threshold < 0 || c.Detector.Threshold > 1 {
		return fmt.Errorf("detector: threshold %v out of range", c.Detector.Threshold)
	}
	if c.Detector.AutoCaptureThreshold < c.Detector.Threshold {
		return fmt.Errorf("detector: auto_capture_threshold %v below threshold %v",
			c.Detector.AutoCaptureThreshold, c.Detector.Threshold)
	}
	if c.Queue.Path == "" {
		return fmt.Errorf("queue: path cannot be empty")
	}
	if c.Records.Path == "" {
		return fmt.Errorf("records: path cannot be empty")
	}
	return nil
}
