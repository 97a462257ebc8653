// Package watcher turns filesystem activity into host events. Workspace
// roots are watched recursively for saves, creations and deletions; the
// settings file is watched for configuration changes.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hammamikhairi/voicehooks/internal/domain"
	"github.com/hammamikhairi/voicehooks/internal/logger"
)

// Source is the Event.Source value for everything this package emits.
const Source = "watcher"

// DefaultSettle is how long a path must stay quiet before its event is
// emitted. Editors often write a file in several steps.
const DefaultSettle = 50 * time.Millisecond

// DefaultIgnore lists directory names that are never watched.
var DefaultIgnore = []string{".git", ".hg", ".svn", "node_modules", "vendor", ".idea", ".vscode", ".voicehooks"}

// Config describes what to watch.
type Config struct {
	// Roots are workspace folders, watched recursively.
	Roots []string
	// SettingsPath, when set, is watched for config.changed events.
	SettingsPath string
	// SettingsSections are reported on config.changed events.
	SettingsSections []string
	// Ignore overrides DefaultIgnore.
	Ignore []string
	// Exclude lists files or directories the daemon writes itself, such as
	// its log file and audio cache. Nothing at or below them is reported.
	Exclude []string
	// Settle overrides DefaultSettle.
	Settle time.Duration
}

// Watcher emits domain events for filesystem changes.
type Watcher struct {
	cfg      Config
	fsw      *fsnotify.Watcher
	events   chan domain.Event
	ignore   map[string]bool
	exclude  []string
	settings string
	log      *logger.Logger

	mu      sync.Mutex
	pending map[string]*pendingEvent
	flush   chan string
	done    chan struct{}
}

type pendingEvent struct {
	typ   domain.EventType
	timer *time.Timer
}

// New creates a watcher and registers every root. It does not emit until
// Run is called.
func New(cfg Config, log *logger.Logger) (*Watcher, error) {
	if cfg.Settle <= 0 {
		cfg.Settle = DefaultSettle
	}
	if cfg.Ignore == nil {
		cfg.Ignore = DefaultIgnore
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fs watcher: %w", err)
	}

	w := &Watcher{
		cfg:     cfg,
		fsw:     fsw,
		events:  make(chan domain.Event, 64),
		ignore:  make(map[string]bool, len(cfg.Ignore)),
		log:     log,
		pending: make(map[string]*pendingEvent),
		flush:   make(chan string, 64),
		done:    make(chan struct{}),
	}
	for _, name := range cfg.Ignore {
		w.ignore[name] = true
	}

	for _, path := range cfg.Exclude {
		if path == "" {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("resolving exclude %s: %w", path, err)
		}
		w.exclude = append(w.exclude, abs)
	}

	roots := make([]string, 0, len(cfg.Roots))
	for _, root := range cfg.Roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("resolving root %s: %w", root, err)
		}
		roots = append(roots, abs)
	}
	w.cfg.Roots = roots

	for _, root := range roots {
		if err := w.addTree(root, false); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	if cfg.SettingsPath != "" {
		abs, err := filepath.Abs(cfg.SettingsPath)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("resolving settings path: %w", err)
		}
		w.settings = abs
		// Watch the directory: the file may not exist yet and is usually
		// replaced rather than written in place.
		dir := filepath.Dir(abs)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("creating settings dir: %w", err)
		}
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	return w, nil
}

// Events returns the output channel. It is closed when Run returns.
func (w *Watcher) Events() <-chan domain.Event {
	return w.events
}

// Run forwards filesystem events until ctx is cancelled. Blocks.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.events)
	defer w.fsw.Close()
	defer w.stopTimers()
	defer close(w.done)

	w.log.Info("watcher started (roots=%v, settings=%s)", w.cfg.Roots, w.settings)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("watcher stopped")
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("watcher: %v", err)
		case path := <-w.flush:
			w.emit(ctx, path)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)

	if w.settings != "" && path == w.settings {
		if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove) {
			w.schedule(path, domain.EventConfigChanged)
		}
		return
	}
	rel, ok := w.relative(path)
	if !ok || w.ignored(rel) || w.excluded(path) {
		return
	}

	switch {
	case ev.Has(fsnotify.Create):
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			// Files created before the watch was registered would be missed.
			if err := w.addTree(path, true); err != nil {
				w.log.Warn("watcher: %v", err)
			}
			return
		}
		w.schedule(path, domain.EventFileCreated)
	case ev.Has(fsnotify.Write):
		w.schedule(path, domain.EventFileSaved)
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.schedule(path, domain.EventFileDeleted)
	}
}

// schedule records typ for path and (re)starts its settle timer. Events
// for the same path are merged: a delete followed by a create is an
// atomic save, and a create absorbs the writes that fill the new file.
func (w *Watcher) schedule(path string, typ domain.EventType) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if p, ok := w.pending[path]; ok {
		p.typ = merge(p.typ, typ)
		p.timer.Reset(w.cfg.Settle)
		return
	}
	w.pending[path] = &pendingEvent{
		typ: typ,
		timer: time.AfterFunc(w.cfg.Settle, func() {
			select {
			case w.flush <- path:
			case <-w.done:
			}
		}),
	}
}

func merge(prev, next domain.EventType) domain.EventType {
	switch {
	case prev == domain.EventFileDeleted && next == domain.EventFileCreated:
		return domain.EventFileSaved
	case prev == domain.EventFileCreated && next == domain.EventFileSaved:
		return domain.EventFileCreated
	case prev == domain.EventFileCreated && next == domain.EventFileDeleted:
		// Temporary file: created and removed within the settle window.
		return ""
	case prev == "" && next == domain.EventFileSaved:
		return domain.EventFileCreated
	}
	return next
}

func (w *Watcher) emit(ctx context.Context, path string) {
	w.mu.Lock()
	p, ok := w.pending[path]
	delete(w.pending, path)
	w.mu.Unlock()
	if !ok || p.typ == "" {
		return
	}

	ev := domain.Event{Type: p.typ, Path: path, Source: Source}
	if p.typ == domain.EventConfigChanged {
		ev.Path = ""
		ev.Sections = w.cfg.SettingsSections
	}

	w.log.Debug("watcher: %s %s", ev.Type, path)
	select {
	case w.events <- ev:
	case <-ctx.Done():
	}
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, path)
	}
}

// addTree watches dir and every non-ignored directory below it. When
// announce is set, files already present are reported as created.
func (w *Watcher) addTree(dir string, announce bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path != dir {
				return nil
			}
			return fmt.Errorf("walking %s: %w", path, err)
		}
		if w.excluded(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			if announce && !w.ignoredName(d.Name()) {
				w.schedule(filepath.Clean(path), domain.EventFileCreated)
			}
			return nil
		}
		if rel, ok := w.relative(path); path != dir && ok && w.ignored(rel) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// relative returns path relative to the workspace root containing it.
func (w *Watcher) relative(path string) (string, bool) {
	for _, root := range w.cfg.Roots {
		rel, err := filepath.Rel(root, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return rel, true
		}
	}
	return "", false
}

// excluded reports whether path is, or lies below, an excluded path.
func (w *Watcher) excluded(path string) bool {
	for _, ex := range w.exclude {
		if path == ex || strings.HasPrefix(path, ex+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// ignored reports whether any element of rel is an ignored directory, or
// the base name is an editor scratch file.
func (w *Watcher) ignored(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if w.ignore[part] {
			return true
		}
	}
	return w.ignoredName(filepath.Base(rel))
}

func (w *Watcher) ignoredName(name string) bool {
	switch {
	case strings.HasSuffix(name, "~"),
		strings.HasSuffix(name, ".swp"),
		strings.HasSuffix(name, ".swx"),
		strings.HasSuffix(name, ".tmp"),
		strings.HasPrefix(name, ".#"),
		name == "4913":
		return true
	}
	return false
}
