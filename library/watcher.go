package library

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"yampd/logger"

	"github.com/fsnotify/fsnotify"
)

// settleDelay is how long a file must stay quiet before it is imported.
// Copies into the library produce a burst of Write events.
const settleDelay = 2 * time.Second

// Watcher imports music files created or rewritten under the library roots.
type Watcher struct {
	scanner *Scanner
	fw      *fsnotify.Watcher

	settle  time.Duration
	pending map[string]time.Time

	closeOnce sync.Once
}

// NewWatcher watches every directory below roots. fsnotify is not
// recursive, so directories created later are added as they appear.
func NewWatcher(scanner *Scanner, roots []string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		scanner: scanner,
		fw:      fw,
		settle:  settleDelay,
		pending: make(map[string]time.Time),
	}
	for _, root := range roots {
		if err := w.addTree(root); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fw.Add(path); err != nil {
			logger.Warn("watcher add failed", logger.String("dir", path), logger.ErrorField(err))
		}
		return nil
	})
}

// Run handles events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	tick := time.NewTicker(w.settle / 4)
	defer tick.Stop()

	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			logger.Warn("watcher error", logger.ErrorField(err))
		case now := <-tick.C:
			w.flush(ctx, now)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				logger.Warn("watcher add failed", logger.String("dir", event.Name), logger.ErrorField(err))
			}
			w.queueTree(event.Name)
			return
		}
	}
	if IsMusicFile(event.Name) {
		w.pending[event.Name] = time.Now()
	}
}

// queueTree picks up files that landed in a new directory before its watch
// was registered.
func (w *Watcher) queueTree(dir string) {
	paths, err := Walk(dir)
	if err != nil {
		return
	}
	now := time.Now()
	for _, p := range paths {
		w.pending[p] = now
	}
}

func (w *Watcher) flush(ctx context.Context, now time.Time) {
	for path, last := range w.pending {
		if now.Sub(last) < w.settle {
			continue
		}
		delete(w.pending, path)
		if err := w.scanner.ImportFile(ctx, path); err != nil {
			logger.Warn("Failed to import file", logger.String("path", path), logger.ErrorField(err))
			continue
		}
		logger.Info("Imported new file", logger.String("path", path))
	}
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.fw.Close()
	})
	return err
}
