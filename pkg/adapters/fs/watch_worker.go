package fs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/notesd/pkg/core"
)

// Watch reports changes made to the backing file by other processes, for
// tables whose name matches pattern (doublestar syntax, "" means all).
// Writes made through this Store are recognised and not reported.
// The channel is closed when ctx is done.
func (s *Store) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	if pattern == "" {
		pattern = "*"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid table pattern %q", pattern)
	}

	events := make(chan core.Event, 64)
	w := newWatchWorker(s, pattern, events)
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return events, nil
}

type watchWorker struct {
	*worker.BaseWorker
	store   *Store
	pattern string
	events  chan<- core.Event
	watcher *fsnotify.Watcher
	seen    *snapshot
	cancel  context.CancelFunc
}

func newWatchWorker(store *Store, pattern string, events chan<- core.Event) *watchWorker {
	return &watchWorker{
		BaseWorker: worker.NewBaseWorker("store-watcher"),
		store:      store,
		pattern:    pattern,
		events:     events,
	}
}

func (w *watchWorker) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("watcher already started (status: %s)", status)
	}

	seen, _, err := w.store.readForWatch()
	if err != nil {
		return fmt.Errorf("failed to read store before watching: %w", err)
	}
	w.seen = seen

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	// The file itself is replaced on every write; watch its directory.
	if err := watcher.Add(filepath.Dir(w.store.Path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.store.Path), err)
	}

	w.watcher = watcher
	w.store.setWatcherActive(true)

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, w.run)
}

func (w *watchWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}

	return w.BaseWorker.Stop(ctx)
}

func (w *watchWorker) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
		}
	})
}

func (w *watchWorker) run(ctx context.Context) (err error) {
	logger := w.store.config.Logger
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			if logger.Enabled(ctx, slog.LevelDebug) {
				logger.Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			} else {
				logger.Error("watcher panic", "error", err)
			}
		}
	}()
	defer close(w.events)
	defer w.store.setWatcherActive(false)
	defer w.watcher.Close()

	base := filepath.Base(w.store.Path)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug("store file event", "op", event.Op.String())
			w.reconcile(ctx)

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			w.handleError(wErr)
		}
	}
}

// reconcile compares the file against the last state seen and emits the difference.
func (w *watchWorker) reconcile(ctx context.Context) {
	current, own, err := w.store.readForWatch()
	if err != nil {
		// Editors may expose a half-written file; the next event retries.
		w.handleError(fmt.Errorf("failed to reload %s: %w", w.store.Path, err))
		return
	}
	defer w.store.recordReconcile()

	previous := w.seen
	w.seen = current
	if own {
		return
	}

	for _, e := range diffSnapshots(previous, current, w.match) {
		select {
		case w.events <- e:
		case <-ctx.Done():
			return
		}
	}
}

func (w *watchWorker) match(table string) bool {
	ok, err := doublestar.Match(w.pattern, table)
	return err == nil && ok
}

func (w *watchWorker) handleError(err error) {
	if w.store.config.ErrorHandler != nil {
		w.store.config.ErrorHandler(err)
		return
	}
	w.store.config.Logger.Warn("watcher error", "error", err)
}

// readForWatch reads the backing file without touching the store state and
// reports whether its content is what this Store last wrote.
func (s *Store) readForWatch() (*snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return newSnapshot(), false, nil
		}
		return nil, false, fmt.Errorf("%w: %w", core.ErrIO, err)
	}
	snap, err := decodeSnapshot(data)
	if err != nil {
		return nil, false, err
	}
	own := s.hasSum && checksum(data) == s.lastSum
	return snap, own, nil
}

func (s *Store) setWatcherActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watcherActive = active
}

func (s *Store) recordReconcile() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.lastReconcile = &now
}
