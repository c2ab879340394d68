// Package watcher reports changes to script plugins on disk.
//
// A Watcher observes plugin root directories and the plugin directories
// directly inside them. Rapid changes to one plugin are coalesced into a
// single Change after a quiet period, so an editor saving several files
// triggers one reload.
package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/folio/internal/logging"
)

// DefaultDelay is the quiet period before a change is reported.
const DefaultDelay = 150 * time.Millisecond

// Watcher errors.
var (
	ErrWatcherClosed = errors.New("watcher is closed")
	ErrPathNotExist  = errors.New("path does not exist")
)

// Op is the kind of change seen for a plugin.
type Op uint32

const (
	// OpChanged means files of the plugin were created or written.
	OpChanged Op = 1 << iota
	// OpRemoved means the plugin's directory or file went away.
	OpRemoved
)

// String returns a human-readable representation of the operation.
func (op Op) String() string {
	switch {
	case op.Has(OpRemoved):
		return "REMOVED"
	case op.Has(OpChanged):
		return "CHANGED"
	default:
		return "UNKNOWN"
	}
}

// Has returns true if the operation includes o.
func (op Op) Has(o Op) bool {
	return op&o == o
}

// Change is a debounced change to one plugin.
type Change struct {
	// Key is the plugin directory name, or the file name without .lua for
	// single-file plugins.
	Key string

	// Path is the plugin directory or file.
	Path string

	Op        Op
	Timestamp time.Time
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDelay sets the quiet period.
func WithDelay(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

// WithLogger sets the watcher logger.
func WithLogger(l *logging.Logger) Option {
	return func(w *Watcher) {
		w.logger = l
	}
}

type pending struct {
	change Change
	timer  *time.Timer
}

// Watcher watches plugin roots with fsnotify.
type Watcher struct {
	mu sync.Mutex

	fsw    *fsnotify.Watcher
	delay  time.Duration
	logger *logging.Logger

	roots   map[string]bool
	pending map[string]*pending

	changes  chan Change
	errors   chan error
	closed   bool
	closeCh  chan struct{}
	closedWg sync.WaitGroup
}

// New creates a watcher. Call Add for each plugin root.
func New(opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsw:     fsw,
		delay:   DefaultDelay,
		roots:   make(map[string]bool),
		pending: make(map[string]*pending),
		changes: make(chan Change, 64),
		errors:  make(chan error, 16),
		closeCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = logging.OrNop(w.logger).WithComponent("watcher")

	w.closedWg.Add(1)
	go w.processLoop()
	return w, nil
}

// Add watches a plugin root and every plugin directory inside it.
func (w *Watcher) Add(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrPathNotExist
		}
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWatcherClosed
	}
	if err := w.fsw.Add(abs); err != nil {
		return err
	}
	w.roots[abs] = true

	for _, e := range entries {
		if e.IsDir() && !ignored(e.Name()) {
			if err := w.fsw.Add(filepath.Join(abs, e.Name())); err != nil {
				w.logger.Warn("watch %s: %v", e.Name(), err)
			}
		}
	}
	return nil
}

// Changes returns the debounced change channel. It is closed by Close.
func (w *Watcher) Changes() <-chan Change {
	return w.changes
}

// Errors returns the error channel. It is closed by Close.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Roots returns the watched plugin roots.
func (w *Watcher) Roots() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	roots := make([]string, 0, len(w.roots))
	for r := range w.roots {
		roots = append(roots, r)
	}
	return roots
}

// Close stops the watcher and closes its channels.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	for key, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, key)
	}
	w.mu.Unlock()

	w.closedWg.Wait()
	close(w.changes)
	close(w.errors)
	return w.fsw.Close()
}

func (w *Watcher) processLoop() {
	defer w.closedWg.Done()
	for {
		select {
		case <-w.closeCh:
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
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

// handle maps a file event to the plugin it belongs to.
func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Op == fsnotify.Chmod {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	root, rel, ok := w.locate(ev.Name)
	if !ok {
		return
	}
	first, _, nested := strings.Cut(rel, string(filepath.Separator))
	if ignored(first) {
		return
	}

	key, path := first, filepath.Join(root, first)
	if !nested {
		// a direct child of the root: a plugin directory or a single file
		if strings.HasSuffix(first, ".lua") {
			key = strings.TrimSuffix(first, ".lua")
		} else if ev.Op.Has(fsnotify.Create) {
			if st, err := os.Stat(path); err == nil && st.IsDir() {
				_ = w.fsw.Add(path)
			} else {
				return
			}
		} else if !ev.Op.Has(fsnotify.Remove) && !ev.Op.Has(fsnotify.Rename) {
			return
		}
	}

	op := OpChanged
	if !nested && (ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename)) {
		op = OpRemoved
	}
	w.schedule(Change{Key: key, Path: path, Op: op, Timestamp: time.Now()})
}

// locate finds the watched root containing path.
func (w *Watcher) locate(path string) (string, string, bool) {
	for root := range w.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		return root, rel, true
	}
	return "", "", false
}

// schedule coalesces changes per plugin. Must be called with w.mu held.
func (w *Watcher) schedule(c Change) {
	if p, ok := w.pending[c.Key]; ok {
		// a later write after a removal means the plugin is back
		if c.Op == OpChanged {
			p.change.Op = OpChanged
		} else {
			p.change.Op = c.Op
		}
		p.change.Timestamp = c.Timestamp
		p.timer.Reset(w.delay)
		return
	}
	key := c.Key
	w.pending[key] = &pending{
		change: c,
		timer:  time.AfterFunc(w.delay, func() { w.fire(key) }),
	}
}

func (w *Watcher) fire(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.pending[key]
	if !ok || w.closed {
		return
	}
	delete(w.pending, key)

	select {
	case w.changes <- p.change:
		w.logger.Debug("%s %s", p.change.Op, p.change.Key)
	default:
		w.logger.Warn("change channel full, dropping %s", p.change.Key)
	}
}

// Flush reports all pending changes immediately.
func (w *Watcher) Flush() {
	w.mu.Lock()
	keys := make([]string, 0, len(w.pending))
	for key, p := range w.pending {
		p.timer.Stop()
		keys = append(keys, key)
	}
	w.mu.Unlock()

	for _, key := range keys {
		w.fire(key)
	}
}

// ignored filters hidden files and editor backups.
func ignored(name string) bool {
	return strings.HasPrefix(name, ".") ||
		strings.HasSuffix(name, "~") ||
		strings.HasSuffix(name, ".swp")
}
