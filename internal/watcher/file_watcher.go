package watcher

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a batch of changes fires.
const DefaultDebounce = 500 * time.Millisecond

// Option configures a file watcher.
type Option func(*fileWatcher)

// WithDebounce sets the quiet period before the callback fires.
func WithDebounce(d time.Duration) Option {
	return func(fw *fileWatcher) {
		fw.debounceTime = d
	}
}

// WithFilter drops events for paths the filter rejects, such as generated
// outputs or ignored directories.
func WithFilter(filter func(path string) bool) Option {
	return func(fw *fileWatcher) {
		fw.filter = filter
	}
}

// WithLogger sets the logger for watcher warnings.
func WithLogger(logger *log.Logger) Option {
	return func(fw *fileWatcher) {
		fw.logger = logger
	}
}

type fileWatcher struct {
	watcher      *fsnotify.Watcher
	extensions   map[string]bool
	filter       func(path string) bool
	debounceTime time.Duration
	logger       *log.Logger
	callback     func(files []string)
	ctx          context.Context
	cancel       context.CancelFunc

	pausedMu sync.RWMutex
	paused   bool

	// changed paths since the last delivered batch
	accumulatedMu sync.Mutex
	accumulated   map[string]bool

	timerMu       sync.Mutex
	debounceTimer *time.Timer

	stopOnce sync.Once
	doneCh   chan struct{} // closed when the watch loop exits
}

// NewFileWatcher watches dirs recursively for changes to files whose
// extension is listed. Declaration files match ".ts".
func NewFileWatcher(dirs []string, extensions []string, opts ...Option) (FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	extMap := make(map[string]bool)
	for _, ext := range extensions {
		extMap[ext] = true
	}

	fw := &fileWatcher{
		watcher:      watcher,
		extensions:   extMap,
		debounceTime: DefaultDebounce,
		logger:       log.New(io.Discard),
		accumulated:  make(map[string]bool),
		doneCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(fw)
	}

	for _, dir := range dirs {
		if err := fw.addDirectoriesRecursively(dir); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	return fw, nil
}

// Start runs the watch loop in a goroutine. A nil callback leaves the
// watcher idle.
func (fw *fileWatcher) Start(ctx context.Context, callback func(files []string)) error {
	if callback == nil {
		return nil
	}

	fw.callback = callback
	fw.ctx, fw.cancel = context.WithCancel(ctx)

	go fw.watch()
	return nil
}

func (fw *fileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		if fw.cancel != nil {
			fw.cancel()
			<-fw.doneCh
		} else {
			close(fw.doneCh)
		}

		err = fw.watcher.Close()
	})
	return err
}

// Pause holds callbacks back until Resume.
func (fw *fileWatcher) Pause() {
	fw.pausedMu.Lock()
	defer fw.pausedMu.Unlock()
	fw.paused = true
}

// Resume delivers changes held while paused, then fires normally again.
func (fw *fileWatcher) Resume() {
	fw.pausedMu.Lock()
	wasPaused := fw.paused
	fw.paused = false
	fw.pausedMu.Unlock()

	if wasPaused {
		if files := fw.drain(); len(files) > 0 && fw.callback != nil {
			fw.callback(files)
		}
	}
}

// drain returns the accumulated files, sorted, and clears them.
func (fw *fileWatcher) drain() []string {
	fw.accumulatedMu.Lock()
	defer fw.accumulatedMu.Unlock()

	if len(fw.accumulated) == 0 {
		return nil
	}
	files := make([]string, 0, len(fw.accumulated))
	for file := range fw.accumulated {
		files = append(files, file)
	}
	fw.accumulated = make(map[string]bool)
	sort.Strings(files)
	return files
}

func (fw *fileWatcher) watch() {
	defer close(fw.doneCh)

	rerunCh := make(chan struct{}, 1)

	for {
		select {
		case <-fw.ctx.Done():
			fw.stopDebounceTimer()
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := fw.addDirectoriesRecursively(event.Name); err != nil {
						fw.logger.Warn("failed to watch new directory", "dir", event.Name, "err", err)
					}
				}
			}

			if !fw.shouldProcessEvent(event) {
				continue
			}

			fw.accumulatedMu.Lock()
			fw.accumulated[event.Name] = true
			fw.accumulatedMu.Unlock()

			fw.resetDebounceTimer(rerunCh)

		case <-rerunCh:
			fw.handleDebounceExpired()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("file watcher error", "err", err)
		}
	}
}

func (fw *fileWatcher) handleDebounceExpired() {
	fw.pausedMu.RLock()
	paused := fw.paused
	fw.pausedMu.RUnlock()

	if paused {
		return
	}

	if files := fw.drain(); len(files) > 0 && fw.callback != nil {
		fw.callback(files)
	}
}

// resetDebounceTimer restarts the quiet period.
func (fw *fileWatcher) resetDebounceTimer(rerunCh chan struct{}) {
	fw.timerMu.Lock()
	defer fw.timerMu.Unlock()

	if fw.debounceTimer != nil {
		if !fw.debounceTimer.Stop() {
			select {
			case <-fw.debounceTimer.C:
			default:
			}
		}
	}

	fw.debounceTimer = time.AfterFunc(fw.debounceTime, func() {
		select {
		case rerunCh <- struct{}{}:
		default:
		}
	})
}

func (fw *fileWatcher) stopDebounceTimer() {
	fw.timerMu.Lock()
	defer fw.timerMu.Unlock()

	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
		fw.debounceTimer = nil
	}
}

// shouldProcessEvent keeps content and membership changes of watched
// declaration files. Chmod events are dropped.
func (fw *fileWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}

	if !fw.extensions[filepath.Ext(event.Name)] {
		return false
	}
	return fw.filter == nil || fw.filter(event.Name)
}

// addDirectoriesRecursively registers every directory under rootPath. Only
// an unreadable root is an error.
func (fw *fileWatcher) addDirectoriesRecursively(rootPath string) error {
	return filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == rootPath {
				return err
			}
			fw.logger.Warn("skipping unreadable path", "path", path, "err", err)
			return nil
		}

		if !info.IsDir() {
			return nil
		}

		if err := fw.watcher.Add(path); err != nil {
			fw.logger.Warn("failed to watch directory", "dir", path, "err", err)
			return nil
		}

		return nil
	})
}
