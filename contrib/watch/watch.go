// Package watch rebuilds the mapping configuration when descriptor files
// change and installs it as the current configuration.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/syssam/relmap"
)

// DefaultDebounce is the quiet period after the last change before a rebuild.
const DefaultDebounce = 100 * time.Millisecond

// Builder returns a new, not yet built, mapping configuration.
type Builder func(ctx context.Context) (*relmap.Configuration, error)

// Watcher watches descriptor directories.
type Watcher struct {
	dirs     []string
	patterns []string
	build    Builder
	log      *zap.Logger
	debounce time.Duration
	onReload func(*relmap.Configuration, error)
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.log = l }
}

// WithDebounce sets the quiet period before a rebuild.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithPatterns restricts the watched files to base names matching one of
// the glob patterns. The default is *.yaml and *.yml.
func WithPatterns(patterns ...string) Option {
	return func(w *Watcher) { w.patterns = patterns }
}

// OnReload registers a function called after every rebuild with the new
// configuration, or with the error that kept the previous one current.
func OnReload(fn func(*relmap.Configuration, error)) Option {
	return func(w *Watcher) { w.onReload = fn }
}

// New returns a watcher over dirs.
func New(dirs []string, build Builder, opts ...Option) *Watcher {
	w := &Watcher{
		dirs:     dirs,
		patterns: []string{"*.yaml", "*.yml"},
		build:    build,
		log:      zap.NewNop(),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Reload builds and validates a configuration and makes it current. A
// configuration that fails to build leaves the current one in place.
func (w *Watcher) Reload(ctx context.Context) (*relmap.Configuration, error) {
	c, err := w.build(ctx)
	if err == nil {
		err = c.Validate()
	}
	if err != nil {
		w.log.Error("mapping reload failed", zap.Error(err))
		w.notify(nil, err)
		return nil, err
	}
	relmap.SetCurrent(c)
	w.log.Info("mapping reloaded")
	w.notify(c, nil)
	return c, nil
}

func (w *Watcher) notify(c *relmap.Configuration, err error) {
	if w.onReload != nil {
		w.onReload(c, err)
	}
}

// Run reloads once and then after every change, until ctx is done. Reload
// failures are reported and do not stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create watcher: %w", err)
	}
	defer fw.Close()
	for _, dir := range w.dirs {
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("watch: add %s: %w", dir, err)
		}
		w.log.Debug("watching directory", zap.String("dir", dir))
	}
	_, _ = w.Reload(ctx)

	// fire is nil while no rebuild is pending.
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.matches(ev) {
				continue
			}
			w.log.Debug("descriptor changed", zap.String("file", ev.Name), zap.Stringer("op", ev.Op))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))
		case <-fire:
			fire = nil
			_, _ = w.Reload(ctx)
		}
	}
}

func (w *Watcher) matches(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(ev.Name)
	for _, p := range w.patterns {
		if ok, _ := filepath.Match(p, base); ok {
			return true
		}
	}
	return false
}
