package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// DataDir returns the path to the calendar-pulse data directory.
// Uses XDG_DATA_HOME or defaults to ~/.local/share/calendar-pulse.
func DataDir() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "calendar-pulse"), nil
}

// QueuePath returns the default path of the file-backed queue store.
func QueuePath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "queue.json"), nil
}

// DatabasePath returns the default path of the SQLite-backed queue store.
func DatabasePath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "queue.db"), nil
}

// FileKV implements KV as a single JSON object file.
// Every Put rewrites the file atomically via a temp file and rename.
//
// A file that is not a JSON object reads as empty. The first Put after that
// moves it aside to <path>.corrupt before writing.
type FileKV struct {
	mu     sync.RWMutex
	path   string
	closed bool
	logger *slog.Logger
}

// NewFileKV creates a FileKV at path, creating the parent directory if needed.
func NewFileKV(path string, logger *slog.Logger) (*FileKV, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return &FileKV{path: path, logger: logger}, nil
}

// Path returns the backing file path.
func (f *FileKV) Path() string {
	return f.path
}

// Get returns the value stored under key, or def if unset.
func (f *FileKV) Get(key, def string) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return "", ErrClosed
	}

	values, _, err := f.load()
	if err != nil {
		return "", err
	}
	if v, ok := values[key]; ok {
		return v, nil
	}
	return def, nil
}

// Put stores value under key.
func (f *FileKV) Put(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}

	values, corrupt, err := f.load()
	if err != nil {
		return err
	}
	if corrupt {
		backup := f.path + ".corrupt"
		if err := os.Rename(f.path, backup); err != nil {
			return fmt.Errorf("move aside corrupted %s: %w", f.path, err)
		}
		f.logger.Warn("corrupted store file moved aside", "path", f.path, "backup", backup)
	}
	values[key] = value

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}

	// Write atomically via temp file
	tmpPath := f.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}
	return os.Rename(tmpPath, f.path)
}

// Close marks the store closed. There are no open handles between calls.
func (f *FileKV) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// load reads the whole file. A missing file reads as empty; a corrupted one
// reads as empty and is reported through corrupt.
func (f *FileKV) load() (values map[string]string, corrupt bool, err error) {
	values = make(map[string]string)

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return values, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", f.path, err)
	}

	if err := json.Unmarshal(data, &values); err != nil {
		f.logger.Warn("corrupted store file, reading as empty", "path", f.path, "error", err)
		return make(map[string]string), true, nil
	}
	return values, false, nil
}
