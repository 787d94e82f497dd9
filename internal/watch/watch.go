// Package watch notices when a file is changed by another process.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/madhatter5501/StudyHub/internal/logfields"
)

// DefaultDebounce collapses bursts of events from a single save.
const DefaultDebounce = 250 * time.Millisecond

// FileWatcher calls a function after a file has been written, created or
// renamed into place. Rapid events are debounced into one call.
type FileWatcher struct {
	path     string
	onChange func(ctx context.Context)
	logger   *slog.Logger
	debounce time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	stop    chan struct{}
	trigger chan struct{}
	done    sync.WaitGroup
}

// Option configures a FileWatcher.
type Option func(*FileWatcher)

// WithDebounce sets the debounce window.
func WithDebounce(d time.Duration) Option {
	return func(w *FileWatcher) { w.debounce = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *FileWatcher) { w.logger = l }
}

// New creates a watcher for path.
func New(path string, onChange func(ctx context.Context), opts ...Option) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve watch path: %w", err)
	}
	w := &FileWatcher{
		path:     abs,
		onChange: onChange,
		logger:   slog.Default(),
		debounce: DefaultDebounce,
		trigger:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start begins watching. The directory is watched rather than the file so
// atomic replace-by-rename is seen.
func (w *FileWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watcher != nil {
		return fmt.Errorf("watcher already started")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	w.watcher = fw
	w.stop = make(chan struct{})

	w.logger.Info("Watching file for external changes", logfields.Path(w.path))

	w.done.Add(2)
	go w.watchLoop(ctx, fw, w.stop)
	go w.debounceLoop(ctx, w.stop)
	return nil
}

// Stop stops watching and waits for the loops to exit.
func (w *FileWatcher) Stop() error {
	w.mu.Lock()
	if w.watcher == nil {
		w.mu.Unlock()
		return nil
	}
	close(w.stop)
	err := w.watcher.Close()
	w.watcher = nil
	w.mu.Unlock()

	w.done.Wait()
	return err
}

func (w *FileWatcher) watchLoop(ctx context.Context, fw *fsnotify.Watcher, stop <-chan struct{}) {
	defer w.done.Done()
	name := filepath.Base(w.path)

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.logger.Debug("File change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
				select {
				case w.trigger <- struct{}{}:
				default:
				}
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", logfields.Error(err))
		}
	}
}

func (w *FileWatcher) debounceLoop(ctx context.Context, stop <-chan struct{}) {
	defer w.done.Done()
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-stop:
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.trigger:
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.onChange(ctx)
		}
	}
}
