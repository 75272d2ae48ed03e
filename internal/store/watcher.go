package store

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// QueueWatcher watches a file-backed queue for changes made by any process.
type QueueWatcher struct {
	watcher  *fsnotify.Watcher
	filePath string
	onChange func()
	logger   *slog.Logger
	done     chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewQueueWatcher creates a watcher for the queue file at filePath.
// onChange is called from the watcher goroutine after every write.
func NewQueueWatcher(filePath string, onChange func(), logger *slog.Logger) (*QueueWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &QueueWatcher{
		watcher:  watcher,
		filePath: filePath,
		onChange: onChange,
		logger:   logger,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching the file for changes.
func (qw *QueueWatcher) Start() error {
	qw.mu.Lock()
	if qw.running {
		qw.mu.Unlock()
		return nil
	}
	qw.running = true
	qw.mu.Unlock()

	// Watch the directory: FileKV replaces the file by rename.
	dir := filepath.Dir(qw.filePath)
	if err := qw.watcher.Add(dir); err != nil {
		return err
	}

	go qw.watch()
	return nil
}

// watch is the main watch loop.
func (qw *QueueWatcher) watch() {
	filename := filepath.Base(qw.filePath)

	for {
		select {
		case event, ok := <-qw.watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != filename {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				qw.logger.Debug("queue file changed", "file", qw.filePath, "op", event.Op.String())
				if qw.onChange != nil {
					qw.onChange()
				}
			}

		case err, ok := <-qw.watcher.Errors:
			if !ok {
				return
			}
			qw.logger.Warn("queue watcher error", "error", err)

		case <-qw.done:
			return
		}
	}
}

// Stop stops the watcher.
func (qw *QueueWatcher) Stop() error {
	qw.mu.Lock()
	defer qw.mu.Unlock()

	if !qw.running {
		return qw.watcher.Close()
	}

	qw.running = false
	close(qw.done)
	return qw.watcher.Close()
}
