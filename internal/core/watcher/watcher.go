// Package watcher re-triggers slicing when the program or the service
// configuration changes on disk.
package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"

	"slicer/internal/shared/observability"
)

// Watcher observes individual files and whole directories. Files are
// watched through their parent directory so that editors replacing a file
// by rename are still seen. Changes are batched: onChange receives the
// sorted set of paths touched during one quiet period of length debounce.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	exclude  []glob.Glob
	files    map[string]bool
	dirs     map[string]bool
	onChange func([]string)

	done      chan struct{}
	closeOnce sync.Once
}

func NewWatcher(debounce time.Duration, exclude []string, onChange func([]string)) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}
	patterns := make([]glob.Glob, len(exclude))
	for i, pattern := range exclude {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		patterns[i] = g
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsw:      fsw,
		debounce: debounce,
		exclude:  patterns,
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
		onChange: onChange,
		done:     make(chan struct{}),
	}, nil
}

// Watch registers paths and starts delivering changes. A directory reports
// changes of every non-excluded file directly inside it.
func (w *Watcher) Watch(paths []string) error {
	parents := make(map[string]bool)
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return err
		}
		if info.IsDir() {
			w.dirs[abs] = true
			parents[abs] = true
		} else {
			w.files[abs] = true
			parents[filepath.Dir(abs)] = true
		}
	}
	for dir := range parents {
		if err := w.fsw.Add(dir); err != nil {
			return err
		}
	}
	go w.loop()
	return nil
}

const interesting = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

// loop owns the pending batch; the debounce timer is only armed while a
// batch is open, so an idle watcher holds no timer.
func (w *Watcher) loop() {
	batch := make(map[string]struct{})
	var quiet <-chan time.Time
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()
			if event.Op&interesting == 0 {
				continue
			}
			if !w.relevant(event.Name) {
				continue
			}
			batch[filepath.Clean(event.Name)] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			quiet = timer.C
		case <-quiet:
			quiet = nil
			changed := make([]string, 0, len(batch))
			for path := range batch {
				changed = append(changed, path)
			}
			clear(batch)
			sort.Strings(changed)
			w.onChange(changed)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) relevant(path string) bool {
	path = filepath.Clean(path)
	base := filepath.Base(path)
	for _, g := range w.exclude {
		if g.Match(base) {
			return false
		}
	}
	if w.files[path] {
		return true
	}
	if !w.dirs[filepath.Dir(path)] {
		return false
	}
	info, err := os.Stat(path)
	return err != nil || !info.IsDir()
}

// Close stops delivery. A batch still waiting for its quiet period is
// dropped.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() { close(w.done) })
	return w.fsw.Close()
}
