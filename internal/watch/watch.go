// Package watch reloads the document when another process rewrites it.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"draftpad/internal/debounce"
)

const DefaultDelay = 200 * time.Millisecond

// Reloader re-reads the document from disk. It reports whether anything
// changed.
type Reloader interface {
	Reload() (bool, error)
}

type Options struct {
	Delay  time.Duration
	Logger *slog.Logger
}

type Watcher struct {
	path   string
	target Reloader
	logger *slog.Logger
	fsw    *fsnotify.Watcher
	deb    *debounce.Debouncer
}

// New watches the directory holding path. Events for other files in the
// directory are ignored.
func New(path string, target Reloader, opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	path = filepath.Clean(path)
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	w := &Watcher{
		path:   path,
		target: target,
		logger: opts.Logger.With("component", "watch"),
		fsw:    fsw,
	}
	w.deb = debounce.New(opts.Delay, w.reload)
	return w, nil
}

// Run dispatches file events until ctx is done or the watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		w.deb.Stop()
		_ = w.fsw.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			w.deb.Schedule()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	changed, err := w.target.Reload()
	if err != nil {
		w.logger.Warn("reload failed", "path", w.path, "error", err)
		return
	}
	if changed {
		w.logger.Info("document changed on disk", "path", w.path)
	}
}
