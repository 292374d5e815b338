package config

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/oshokin/attention-check/internal/logger"
)

// Holder keeps the current configuration snapshot. Snapshots are never
// mutated after they are stored, so readers may keep them.
type Holder struct {
	current atomic.Pointer[Config]
}

// NewHolder returns a holder serving cfg.
func NewHolder(cfg *Config) *Holder {
	h := new(Holder)
	h.current.Store(cfg)

	return h
}

// Current returns the latest configuration snapshot.
func (h *Holder) Current() *Config {
	return h.current.Load()
}

// Set replaces the configuration snapshot.
func (h *Holder) Set(cfg *Config) {
	h.current.Store(cfg)
}

// defaultFallbackPoll re-reads the file even when no event arrives.
const defaultFallbackPoll = time.Minute

// Watcher reloads the settings file whenever it changes and keeps the last
// configuration that parsed successfully.
type Watcher struct {
	*Holder

	// path is the watched settings file.
	path string
	// fallbackPoll is the safety-net interval for missed events.
	fallbackPoll time.Duration
	// lastContents is the file content behind the current snapshot.
	lastContents []byte
}

// NewWatcher loads path, creating it with defaults when missing, and
// returns a watcher serving it. The file must be readable. A file that does
// not parse is served as the defaults until it is corrected.
func NewWatcher(ctx context.Context, path string) (*Watcher, error) {
	path = resolvePath(path)

	if err := createIfMissing(path); err != nil {
		return nil, err
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg, warnings, err := Parse(contents, nil)
	if err != nil {
		logger.WarnKV(ctx, "Invalid settings, using defaults", "path", path, "error", err)

		// No contents are recorded, so the next reload parses the file again.
		cfg, warnings, contents = Default(), nil, nil
	}

	for _, warning := range warnings {
		logger.WarnKV(ctx, "Configuration field repaired", "path", path, "detail", warning)
	}

	return &Watcher{
		Holder:       NewHolder(cfg),
		path:         path,
		fallbackPoll: defaultFallbackPoll,
		lastContents: contents,
	}, nil
}

// Path returns the watched file.
func (w *Watcher) Path() string {
	return w.path
}

// Run watches the directory of the settings file until ctx is done.
// It falls back to polling when file notifications are unavailable.
func (w *Watcher) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "config-watcher")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.WarnKV(ctx, "File notifications unavailable, polling settings", "error", err)

		return w.poll(ctx)
	}

	defer func() {
		_ = watcher.Close()
	}()

	// Editors replace files on save, so the directory is watched instead of the file.
	if err = watcher.Add(filepath.Dir(w.path)); err != nil {
		logger.WarnKV(ctx, "Unable to watch settings directory, polling settings", "error", err)

		return w.poll(ctx)
	}

	fallbackTicker := time.NewTicker(w.fallbackPoll)
	defer fallbackTicker.Stop()

	target := filepath.Clean(w.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return w.poll(ctx)
			}

			if filepath.Clean(event.Name) != target {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.reload(ctx)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return w.poll(ctx)
			}

			logger.WarnKV(ctx, "Settings watcher error", "error", err)
		case <-fallbackTicker.C:
			w.reload(ctx)
		}
	}
}

func (w *Watcher) poll(ctx context.Context) error {
	ticker := time.NewTicker(w.fallbackPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.reload(ctx)
		}
	}
}

// reload re-reads the file and swaps the snapshot when its content changed.
// A file that no longer parses keeps the previous snapshot.
func (w *Watcher) reload(ctx context.Context) {
	contents, err := os.ReadFile(filepath.Clean(w.path))
	if err != nil {
		logger.WarnKV(ctx, "Unable to read settings, keeping previous configuration", "error", err)
		return
	}

	if bytes.Equal(contents, w.lastContents) {
		return
	}

	cfg, warnings, err := Parse(contents, w.Current())
	if err != nil {
		logger.WarnKV(ctx, "Invalid settings, keeping previous configuration", "error", err)
		return
	}

	for _, warning := range warnings {
		logger.WarnKV(ctx, "Configuration field repaired", "detail", warning)
	}

	w.lastContents = contents
	w.Set(cfg)

	logger.InfoKV(ctx, "Configuration reloaded",
		"window", cfg.Window().String(),
		"presenter", cfg.Presenter,
		"ambient", cfg.Ambient.Enabled)
}
