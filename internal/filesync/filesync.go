// Package filesync keeps the stored profile in step with a profile file on
// disk. The file may be YAML (.yaml, .yml) or JSON (anything else).
package filesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kalambet/growthcharter/internal/profile"
)

// DefaultDebounce is how long the watcher waits after the last write
// before importing the file.
const DefaultDebounce = 300 * time.Millisecond

// ErrEmptyFile is returned for a zero-length profile file. Editors often
// truncate before writing, so an empty file is skipped rather than
// imported as an empty profile.
var ErrEmptyFile = errors.New("profile file is empty")

// Target receives imported profiles.
type Target interface {
	Replace(profile.Profile) error
}

// Parse decodes a profile file. The document as a whole must be well
// formed; individual malformed fields fall back to their defaults.
func Parse(name string, data []byte) (profile.Profile, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return profile.Profile{}, ErrEmptyFile
	}
	parse := profile.ParseJSON
	if isYAML(name) {
		parse = profile.ParseYAML
	}
	p, err := parse(data)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("parsing %s: %w", filepath.Base(name), err)
	}
	return p, nil
}

// SyncOnce reads path and replaces the target's profile with it.
func SyncOnce(path string, target Target) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading profile file: %w", err)
	}
	p, err := Parse(path, data)
	if err != nil {
		return err
	}
	if err := target.Replace(p); err != nil {
		return fmt.Errorf("importing profile: %w", err)
	}
	return nil
}

// Watcher imports a profile file every time it changes.
type Watcher struct {
	path     string
	target   Target
	debounce time.Duration
	onSync   func(error)
}

type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithSyncHook registers fn to be called after every import attempt.
func WithSyncHook(fn func(error)) Option {
	return func(w *Watcher) { w.onSync = fn }
}

func New(path string, target Target, opts ...Option) *Watcher {
	w := &Watcher{
		path:     filepath.Clean(path),
		target:   target,
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run imports the file once, then watches its directory until ctx is
// cancelled. The directory is watched instead of the file so editors that
// replace the file by renaming are still picked up.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	slog.Info("watching profile file", "path", w.path)

	if _, err := os.Stat(w.path); err == nil {
		w.sync()
	}

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			slog.Debug("profile file changed", "op", event.Op.String())
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("profile watcher error", "error", err)

		case <-timer.C:
			w.sync()
		}
	}
}

func (w *Watcher) sync() {
	err := SyncOnce(w.path, w.target)
	switch {
	case errors.Is(err, ErrEmptyFile):
		slog.Debug("skipping empty profile file", "path", w.path)
	case err != nil:
		slog.Warn("profile file sync failed", "path", w.path, "error", err)
	default:
		slog.Info("profile synced from file", "path", w.path)
	}
	if w.onSync != nil {
		w.onSync(err)
	}
}

func isYAML(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
