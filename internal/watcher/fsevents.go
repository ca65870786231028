package watcher

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a change is reported.
const DefaultDebounce = 500 * time.Millisecond

// Callback receives the cleaned paths of the files that changed.
type Callback func(changed []string) error

// Watcher reports changes to a fixed set of files.
type Watcher struct {
	files    map[string]bool
	dirs     []string
	debounce time.Duration
	onChange Callback

	fsw    *fsnotify.Watcher
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// New creates a Watcher over paths. A non-positive debounce uses
// DefaultDebounce.
func New(paths []string, debounce time.Duration, onChange Callback) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, errors.New("no files to watch")
	}
	if onChange == nil {
		return nil, errors.New("callback cannot be nil")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		files:    make(map[string]bool, len(paths)),
		debounce: debounce,
		onChange: onChange,
		stopCh:   make(chan struct{}),
	}
	seen := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		w.files[abs] = true
		if dir := filepath.Dir(abs); !seen[dir] {
			seen[dir] = true
			w.dirs = append(w.dirs, dir)
		}
	}
	return w, nil
}

// Start subscribes to the file directories and begins delivering changes.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	for _, dir := range w.dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	w.fsw = fsw

	w.wg.Add(1)
	go w.run()
	return nil
}

// run collects events for watched files and calls the callback once the
// files have been quiet for the debounce period.
func (w *Watcher) run() {
	defer w.wg.Done()

	pending := make(map[string]bool)
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			slog.Debug("input changed", "path", ev.Name, "op", ev.Op.String())
			pending[filepath.Clean(ev.Name)] = true
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Error("file watcher error", "error", err)

		case <-timer.C:
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			pending = make(map[string]bool)

			if err := w.onChange(changed); err != nil {
				slog.Error("re-run after change failed", "error", err)
			}

		case <-w.stopCh:
			timer.Stop()
			return
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !w.files[filepath.Clean(ev.Name)] {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

// Stop halts the watcher and waits for a running callback to return.
// Calling Stop more than once is safe.
func (w *Watcher) Stop() error {
	var err error
	w.once.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		if w.fsw != nil {
			err = w.fsw.Close()
		}
	})
	return err
}
