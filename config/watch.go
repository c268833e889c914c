package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/inspectIT/inspectit-ocelot-sub003/errors"
)

// ChangeHandler receives each successfully loaded settings file.
type ChangeHandler func(raw *Raw)

// Watcher reloads a settings file whenever it changes on disk.
//
// The parent directory is watched rather than the file itself so that
// editors replacing the file atomically are still observed. Events are
// debounced; invalid files are logged and ignored, leaving the previously
// published settings in effect.
type Watcher struct {
	watcher  *fsnotify.Watcher
	onChange ChangeHandler
	path     string
	debounce time.Duration

	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
	mu      sync.Mutex
}

// NewWatcher creates a watcher for the file at path.
func NewWatcher(path string, onChange ChangeHandler) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.InvalidInput(errors.PhaseConfig, "change handler is nil")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "resolve "+path)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindNotInitialized, err, "create file watcher")
	}
	return &Watcher{
		watcher:  fw,
		onChange: onChange,
		path:     abs,
		debounce: 200 * time.Millisecond,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// SetDebounce changes the quiet period before a reload. Must be called before Start.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Start begins watching. It is non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "watch "+filepath.Dir(w.path))
	}
	w.running = true
	go w.run(ctx)
	return nil
}

// Stop stops watching and waits for the watch goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		_ = w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	_ = w.watcher.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			Logger().Warn("settings watcher error", zap.String("path", w.path), zap.Error(err))
		case <-fire:
			fire = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	raw, err := Load(w.path)
	if err != nil {
		Logger().Error("ignoring invalid settings file",
			zap.String("path", w.path),
			zap.Error(err))
		return
	}
	Logger().Info("settings file changed", zap.String("path", w.path))
	w.onChange(raw)
}
