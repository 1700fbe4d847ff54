package ingest

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// FileHandler receives the absolute path of a created or modified file.
type FileHandler func(path string)

// DirectoryWatcher reports file creations and modifications inside a single
// directory. Each filesystem event produces one handler invocation; the
// watcher never deduplicates or batches.
type DirectoryWatcher struct {
	dir     string
	handler FileHandler
	logger  *zap.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
}

func NewDirectoryWatcher(dir string, handler FileHandler, logger ...*zap.Logger) *DirectoryWatcher {
	l := zap.L().Named("ingest.watcher")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("ingest.watcher")
	}
	return &DirectoryWatcher{dir: dir, handler: handler, logger: l}
}

// Start begins monitoring. Calling Start on a watcher that is already
// running is an error; the caller must Stop first.
func (w *DirectoryWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watcher != nil {
		return fmt.Errorf("already watching %s", w.dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return err
	}

	w.watcher = fsw
	w.done = make(chan struct{})
	go w.loop(fsw, w.done)

	w.logger.Info("watching directory", zap.String("dir", w.dir))
	return nil
}

// Stop ends monitoring and waits for the event loop to exit. It is safe to
// call repeatedly or on a watcher that was never started.
func (w *DirectoryWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watcher == nil {
		return
	}
	w.watcher.Close()
	<-w.done
	w.watcher = nil
	w.done = nil

	w.logger.Info("stopped watching directory", zap.String("dir", w.dir))
}

func (w *DirectoryWatcher) loop(fsw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			path, err := filepath.Abs(event.Name)
			if err != nil {
				path = event.Name
			}
			w.handler(path)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.String("dir", w.dir), zap.Error(err))
		}
	}
}
