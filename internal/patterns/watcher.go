package patterns

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadDebounce coalesces rapid write events from editors that save in
// multiple steps.
const reloadDebounce = 250 * time.Millisecond

// Watcher reloads the pattern file when it changes on disk and hands
// the parsed entries to a callback. A file that fails to parse keeps
// the previous entries in effect.
type Watcher struct {
	path     string
	onReload func([]Entry)
	logger   *zap.Logger
}

// NewWatcher creates a pattern file watcher.
func NewWatcher(path string, onReload func([]Entry), logger *zap.Logger) *Watcher {
	return &Watcher{
		path:     path,
		onReload: onReload,
		logger:   logger,
	}
}

// Run watches until the context is cancelled. The parent directory is
// watched rather than the file itself so atomic rename-replace saves
// are still observed.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return err
	}

	var debounce *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("pattern watcher error", zap.Error(err))

		case <-reload:
			entries, err := LoadFile(w.path)
			if err != nil {
				w.logger.Warn("pattern reload failed, keeping previous patterns",
					zap.String("path", w.path),
					zap.Error(err))
				continue
			}
			w.logger.Info("pattern file reloaded",
				zap.String("path", w.path),
				zap.Int("patterns", len(entries)))
			w.onReload(entries)
		}
	}
}
