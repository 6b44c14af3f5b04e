package subs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the scheduler when the subscriptions file changes on
// disk, so hand edits take effect without a restart. It watches the
// parent directory because editors and atomic writes replace the file.
type Watcher struct {
	path     string
	logger   *slog.Logger
	onChange func()
	watcher  *fsnotify.Watcher
}

func NewWatcher(path string, logger *slog.Logger, onChange func()) (*Watcher, error) {
	fileWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     path,
		logger:   logger,
		onChange: onChange,
		watcher:  fileWatcher,
	}, nil
}

func (w *Watcher) Start(ctx context.Context) error {
	defer w.watcher.Close()

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create watch directory: %w", err)
	}
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.Info("subscription watcher started", "path", w.path)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("subscription watcher stopped")
			return nil
		case event := <-w.watcher.Events:
			w.handleEvent(event)
		case err := <-w.watcher.Errors:
			if err != nil {
				w.logger.Error("subscription watcher error", "error", err)
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.path) {
		return
	}
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
		return
	}
	w.logger.Info("subscriptions file changed", "op", event.Op.String())
	if w.onChange != nil {
		w.onChange()
	}
}
