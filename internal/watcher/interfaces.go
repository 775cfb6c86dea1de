package watcher

import "context"

// FileWatcher reports batches of changed declaration files.
type FileWatcher interface {
	// Start calls callback with the sorted paths changed during each quiet
	// period until ctx is done or Stop is called.
	Start(ctx context.Context, callback func(files []string)) error

	// Stop ends watching. It is safe to call more than once.
	Stop() error

	// Pause holds callbacks back while changes keep accumulating. A rerun
	// pauses the watcher for the duration of its pass.
	Pause()

	// Resume releases held callbacks; changes seen while paused are delivered
	// as one batch right away.
	Resume()
}
