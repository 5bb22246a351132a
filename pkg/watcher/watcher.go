package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/vcanio/Terio-sub000/pkg/logging"
)

// ChangeType represents the type of file change detected
type ChangeType int

const (
	ChangeTypeConfig ChangeType = iota
	ChangeTypeEnv
)

func (t ChangeType) String() string {
	switch t {
	case ChangeTypeConfig:
		return "config"
	case ChangeTypeEnv:
		return "env"
	}
	return "unknown"
}

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

// FileWatcher watches the configuration files for changes. Editors usually
// replace files by renaming, so the parent directories are watched and events
// are filtered by name.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	files   map[string]ChangeType // absolute path -> type
	events  chan ChangeEvent
	stop    sync.Once
}

// NewFileWatcher creates a watcher for a config file and a dotenv file. Either
// path may be empty.
func NewFileWatcher(configFile, envFile string) (*FileWatcher, error) {
	files := make(map[string]ChangeType)
	for path, t := range map[string]ChangeType{configFile: ChangeTypeConfig, envFile: ChangeTypeEnv} {
		if path == "" {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
		}
		files[abs] = t
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher: watcher,
		files:   files,
		events:  make(chan ChangeEvent, 100),
	}, nil
}

// Start begins watching for file changes
func (fw *FileWatcher) Start(ctx context.Context) error {
	dirs := make(map[string]bool)
	for path := range fw.files {
		dirs[filepath.Dir(path)] = true
	}
	for dir := range dirs {
		if err := fw.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		logging.Info("monitoring directory for config changes", "path", dir)
	}

	go fw.processEvents(ctx)
	return nil
}

// classify reports whether name is a watched file and which kind
func (fw *FileWatcher) classify(name string) (ChangeType, bool) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return 0, false
	}
	t, ok := fw.files[abs]
	return t, ok
}

// processEvents batches file system events by type
func (fw *FileWatcher) processEvents(ctx context.Context) {
	batch := make(map[ChangeType][]string)

	flushTimer := time.NewTimer(100 * time.Millisecond)
	flushTimer.Stop()

	flush := func() {
		for _, t := range []ChangeType{ChangeTypeConfig, ChangeTypeEnv} {
			if len(batch[t]) == 0 {
				continue
			}
			fw.events <- ChangeEvent{Type: t, Paths: batch[t], Timestamp: time.Now()}
		}
		batch = make(map[ChangeType][]string)
	}

	defer close(fw.events)
	for {
		select {
		case <-ctx.Done():
			fw.Stop()
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			// Permission changes alone never alter the content
			if event.Op == fsnotify.Chmod {
				continue
			}
			t, ok := fw.classify(event.Name)
			if !ok {
				continue
			}
			logging.Trace("config file event", "path", event.Name, "op", event.Op.String())
			batch[t] = append(batch[t], event.Name)
			flushTimer.Reset(100 * time.Millisecond)

		case <-flushTimer.C:
			flush()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events. It is closed when the watcher stops.
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Stop stops the file watcher
func (fw *FileWatcher) Stop() error {
	var err error
	fw.stop.Do(func() {
		err = fw.watcher.Close()
	})
	return err
}
