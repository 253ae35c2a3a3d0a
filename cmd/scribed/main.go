// Scribed is the decision-capture daemon.
//
// It watches inbound events (HTTP, webhooks, optionally NATS), detects
// decision statements with a local similarity index, filters candidates
// through an LLM policy check, extracts structured fields, and routes
// the resulting records to auto-capture or a human review queue.
//
// Usage:
//
//	# Start with defaults
//	scribed
//
//	# Use an explicit config file
//	scribed -config ~/.config/scribed/config.yaml
//
//	# Configure via environment
//	SCRIBE_SERVER_PORT=9090 SCRIBE_LLM_PROVIDER=anthropic scribed
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/scribe/internal/config"
	"github.com/fyrsmithlabs/scribe/internal/detector"
	"github.com/fyrsmithlabs/scribe/internal/embeddings"
	"github.com/fyrsmithlabs/scribe/internal/event"
	"github.com/fyrsmithlabs/scribe/internal/extractor"
	scribehttp "github.com/fyrsmithlabs/scribe/internal/http"
	"github.com/fyrsmithlabs/scribe/internal/llm"
	"github.com/fyrsmithlabs/scribe/internal/logging"
	"github.com/fyrsmithlabs/scribe/internal/patterns"
	"github.com/fyrsmithlabs/scribe/internal/pipeline"
	"github.com/fyrsmithlabs/scribe/internal/policy"
	"github.com/fyrsmithlabs/scribe/internal/record"
	"github.com/fyrsmithlabs/scribe/internal/redact"
	"github.com/fyrsmithlabs/scribe/internal/review"
	"github.com/fyrsmithlabs/scribe/internal/similarity"
	"github.com/fyrsmithlabs/scribe/internal/source"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "config file path (default ~/.config/scribed/config.yaml)")
	flag.Parse()

	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  scribed           Start the scribed daemon\n")
			fmt.Fprintf(os.Stderr, "  scribed version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("scribed by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts scribed and blocks until the context is cancelled.
func run(ctx context.Context, configPath string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("ensuring config directory: %w", err)
	}

	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	logger.Info("Starting scribed",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("similarity_backend", cfg.Similarity.Backend),
		zap.String("llm_provider", cfg.LLM.Provider))

	// Embeddings and the similarity index.
	embedder, err := embeddings.NewProvider(cfg.Embeddings)
	if err != nil {
		return fmt.Errorf("creating embedding provider: %w", err)
	}
	defer embedder.Close()

	index, err := similarity.New(cfg.Similarity, embedder, logger)
	if err != nil {
		return fmt.Errorf("creating similarity index: %w", err)
	}

	entries, err := loadPatterns(cfg.Patterns.Path)
	if err != nil {
		return fmt.Errorf("loading patterns: %w", err)
	}
	count, err := index.Load(ctx, entries)
	if err != nil {
		// Startup proceeds degraded: the health endpoint reports it and
		// captures return 503 until a pattern reload succeeds.
		logger.Error("similarity index load failed, starting degraded", zap.Error(err))
	} else {
		logger.Info("similarity index loaded", zap.Int("patterns", count))
	}

	if cfg.Patterns.Watch && cfg.Patterns.Path != "" {
		watcher := patterns.NewWatcher(cfg.Patterns.Path, func(entries []patterns.Entry) {
			if n, err := index.Load(ctx, entries); err != nil {
				logger.Error("pattern reload failed", zap.Error(err))
			} else {
				logger.Info("patterns reloaded", zap.Int("patterns", n))
			}
		}, logger)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logger.Error("pattern watcher stopped", zap.Error(err))
			}
		}()
	}

	// Tier-1 detector.
	det, err := detector.New(index, cfg.Detector, logger)
	if err != nil {
		return fmt.Errorf("creating detector: %w", err)
	}

	// LLM-backed tiers. A disabled provider degrades per tier: the
	// policy filter fails open, the extractor yields to the regex path.
	generator, err := llm.NewGenerator(cfg.LLM)
	if err != nil {
		return fmt.Errorf("creating llm generator: %w", err)
	}
	filter := policy.New(generator, logger)

	var ex extractor.Extractor
	if cfg.Extractor.Enabled {
		ex = extractor.NewLLMExtractor(generator, logger)
	}

	scrubber, err := redact.New(redact.DefaultRules())
	if err != nil {
		return fmt.Errorf("compiling redaction rules: %w", err)
	}

	builder := record.NewBuilder(ex, scrubber, logger)

	queue, err := review.NewQueue(cfg.Queue.Path, logger)
	if err != nil {
		return fmt.Errorf("opening review queue: %w", err)
	}

	sink, err := pipeline.NewFileSink(cfg.Records.Path, logger)
	if err != nil {
		return fmt.Errorf("opening record sink: %w", err)
	}

	service := pipeline.New(det, filter, builder, queue, sink, index.Loaded, logger)

	// Optional NATS event source.
	if cfg.NATS.Enabled {
		sub, err := source.NewSubscriber(cfg.NATS.Source, service, logger)
		if err != nil {
			return fmt.Errorf("starting nats source: %w", err)
		}
		defer sub.Close()
		go func() {
			if err := sub.Run(ctx); err != nil {
				logger.Error("nats source stopped", zap.Error(err))
			}
		}()
	}

	webhook := event.NewWebhookSource(cfg.Webhook.Secret, event.SourceWebhook)

	srv, err := scribehttp.NewServer(service, queue, scrubber, webhook, logger, &scribehttp.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}
}

// loadPatterns reads the configured pattern file, or the built-in set
// when no path is configured.
func loadPatterns(path string) ([]patterns.Entry, error) {
	if path == "" {
		return patterns.DefaultEntries(), nil
	}
	return patterns.LoadFile(path)
}
