package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fyrsmithlabs/scribe/internal/record"
	"go.uber.org/zap"
)

// FileSink appends finalized records to a JSON Lines file. It stands in
// for a real knowledge store; one record per line keeps the file
// greppable and append-safe.
type FileSink struct {
	path   string
	logger *zap.Logger

	mu sync.Mutex
}

var _ Sink = (*FileSink)(nil)

// NewFileSink creates a sink writing to path, creating parent
// directories as needed.
func NewFileSink(path string, logger *zap.Logger) (*FileSink, error) {
	if path == "" {
		return nil, fmt.Errorf("sink path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating sink directory: %w", err)
	}
	return &FileSink{path: path, logger: logger}, nil
}

// Save appends one record as a single JSON line.
func (s *FileSink) Save(_ context.Context, rec *record.DecisionRecord) error {
	if rec == nil {
		return fmt.Errorf("record cannot be nil")
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("opening sink file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("appending record: %w", err)
	}

	s.logger.Debug("record saved",
		zap.String("record_id", rec.ID),
		zap.String("domain", rec.Domain))
	return nil
}
