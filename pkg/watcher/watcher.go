// Package watcher reports changes to a single file, typically the editor's
// config file, so its style section can be reloaded while running.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ritzau/graph-editor/pkg/logging"
)

// ChangeType represents the type of file change detected
type ChangeType int

const (
	ChangeTypeWrite ChangeType = iota // Created, written or renamed into place
	ChangeTypeRemove
)

func (c ChangeType) String() string {
	switch c {
	case ChangeTypeWrite:
		return "write"
	case ChangeTypeRemove:
		return "remove"
	}
	return fmt.Sprintf("ChangeType(%d)", int(c))
}

// ChangeEvent represents one or more file system changes to the watched file
type ChangeEvent struct {
	Type      ChangeType
	Path      string
	Timestamp time.Time
}

// FileWatcher watches one file. Its directory is watched instead of the file
// itself so editors that save by rename-and-replace are still seen.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	events  chan ChangeEvent
}

// NewFileWatcher creates a watcher for path. The file need not exist yet but
// its directory must.
func NewFileWatcher(path string) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	return &FileWatcher{
		watcher: watcher,
		path:    abs,
		events:  make(chan ChangeEvent, 100),
	}, nil
}

// Start begins watching until ctx is cancelled. The Events channel is closed
// when watching stops.
func (fw *FileWatcher) Start(ctx context.Context) {
	logging.Info("started watching file", "path", fw.path)
	go fw.processEvents(ctx)
}

func (fw *FileWatcher) processEvents(ctx context.Context) {
	defer close(fw.events)
	defer fw.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != fw.path {
				continue
			}

			change, ok := classify(event.Op)
			if !ok {
				continue
			}
			logging.Trace("file changed", "path", event.Name, "op", event.Op.String())

			select {
			case fw.events <- ChangeEvent{Type: change, Path: fw.path, Timestamp: time.Now()}:
			case <-ctx.Done():
				return
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

func classify(op fsnotify.Op) (ChangeType, bool) {
	switch {
	case op.Has(fsnotify.Create), op.Has(fsnotify.Write):
		return ChangeTypeWrite, true
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return ChangeTypeRemove, true
	}
	return 0, false
}

// Events returns the channel of change events
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Path returns the absolute path being watched
func (fw *FileWatcher) Path() string {
	return fw.path
}
