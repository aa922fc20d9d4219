package discover

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher invalidates the discovery cache when executables appear in or
// vanish from search-path directories, so a fresh install shows up before
// the TTL would have expired.
type Watcher struct {
	fsw  *fsnotify.Watcher
	done chan struct{}
}

// WatchSearchPath watches every existing directory on searchPath and calls
// onChange with the affected directory on create/remove/rename events.
// Directories that do not exist are skipped; an empty watch set is an
// error only if no directory could be watched at all.
func WatchSearchPath(searchPath string, onChange func(dir string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	watched := 0
	for _, dir := range filepath.SplitList(searchPath) {
		if dir == "" {
			continue
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			slog.Debug("cannot watch search path dir", "dir", dir, "error", err)
			continue
		}
		watched++
	}
	if watched == 0 {
		fsw.Close()
		return nil, os.ErrNotExist
	}

	w := &Watcher{fsw: fsw, done: make(chan struct{})}
	go w.run(onChange)
	return w, nil
}

func (w *Watcher) run(onChange func(dir string)) {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Chmod) != 0 {
				onChange(filepath.Dir(ev.Name))
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Debug("search path watcher error", "error", err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
