package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"savemanager/internal/logging"
	"savemanager/internal/utils"
	"savemanager/pkg/models"
)

// this will handle watching a game's save folder via fsnotify

type Options struct {
	// Debounce collapses bursts of events on one path.
	Debounce time.Duration
	// Quiet is how long the whole tree must stay unchanged before a settle
	// event is emitted.
	Quiet time.Duration
	// Exclude lists directories whose events are ignored.
	Exclude []string
	Logger  logging.Sink
}

type Watcher struct {
	fsNotifyWatcher *fsnotify.Watcher
	root            string
	opts            Options
	watchedDirs     map[string]bool
	changeChan      chan models.FileEvent
	settleChan      chan models.SettleEvent
	errorChan       chan error
	ctx             context.Context
	cancel          context.CancelFunc
	mu              sync.RWMutex
	debouncer       map[string]*time.Timer
	debounceMu      sync.Mutex
	settleTimer     *time.Timer
	pending         int
	lastChange      time.Time
	settleMu        sync.Mutex
}

/*
Watcher:
1. File System Monitoring - recursive, new subdirectories are picked up as they appear
2. Debouncer - per path, only the last event of a burst is sent on Changes()
3. Settle - once nothing changed for Options.Quiet, one SettleEvent is sent on Settled()

A game usually rewrites several files when it saves. The settle event is the
point where the save folder is consistent again and can be snapshotted.
*/

func NewWatcher(opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	if opts.Quiet <= 0 {
		opts.Quiet = 5 * time.Second
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		fsNotifyWatcher: fsWatcher,
		opts:            opts,
		watchedDirs:     make(map[string]bool),
		changeChan:      make(chan models.FileEvent, 64),
		settleChan:      make(chan models.SettleEvent, 1),
		errorChan:       make(chan error, 10),
		ctx:             ctx,
		cancel:          cancel,
		debouncer:       make(map[string]*time.Timer),
	}, nil
}

// AddWatch watches path and every directory below it. Relative paths are made
// absolute, and a path that is itself excluded is an error.
func (w *Watcher) AddWatch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	path = abs
	if w.excluded(path) {
		return fmt.Errorf("%s is inside an excluded directory", path)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.root == "" {
		w.root = path
	}

	return filepath.Walk(path, func(walkPath string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if w.excluded(walkPath) {
				return filepath.SkipDir
			}
			if w.watchedDirs[walkPath] {
				return nil
			}
			// Add directory to watch - recursive :)
			if err := w.fsNotifyWatcher.Add(walkPath); err != nil {
				return err
			}
			w.watchedDirs[walkPath] = true
			logging.Logf(w.opts.Logger, logging.DebugLevel, "Watching directory: %s", walkPath)
		}
		return nil
	})
}

func (w *Watcher) excluded(path string) bool {
	for _, ex := range w.opts.Exclude {
		if utils.IsWithin(ex, path) {
			return true
		}
	}
	return false
}

func (w *Watcher) Start() {
	go w.handleEvents()
}

func (w *Watcher) handleEvents() {
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.fsNotifyWatcher.Events:
			if !ok {
				return
			}
			w.processEvent(event)
		case err, ok := <-w.fsNotifyWatcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errorChan <- err:
			default:
			}
		}
	}
}

func (w *Watcher) processEvent(event fsnotify.Event) {
	if w.excluded(event.Name) {
		return
	}

	var operation string
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		operation = "CREATE"
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.AddWatch(event.Name); err != nil {
				w.reportError(fmt.Errorf("failed to watch %s: %w", event.Name, err))
			}
		}
	case event.Op&fsnotify.Write == fsnotify.Write:
		operation = "MODIFY"
	case event.Op&fsnotify.Remove == fsnotify.Remove:
		operation = "DELETE"
		w.forget(event.Name)
	case event.Op&fsnotify.Rename == fsnotify.Rename:
		operation = "RENAME"
		w.forget(event.Name)
	default:
		return
	}

	w.debouncedSend(event.Name, func() {
		w.markChanged()
		select {
		case w.changeChan <- models.FileEvent{
			Path:      event.Name,
			Operation: operation,
			Timestamp: time.Now(),
		}:
		case <-w.ctx.Done():
		default:
			// nobody is draining Changes(); settle events still fire
		}
	})
}

func (w *Watcher) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watchedDirs[path] {
		delete(w.watchedDirs, path)
		_ = w.fsNotifyWatcher.Remove(path)
	}
}

func (w *Watcher) reportError(err error) {
	select {
	case w.errorChan <- err:
	default:
	}
}

func (w *Watcher) WatchedDirs() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	dirs := make([]string, 0, len(w.watchedDirs))
	for dir := range w.watchedDirs {
		dirs = append(dirs, dir)
	}
	return dirs
}
