package lexicon

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/fyrsmithlabs/convoscan/internal/logging"
	"go.uber.org/zap"
)

// ErrWatcherFailed wraps fsnotify setup errors.
var ErrWatcherFailed = errors.New("lexicon watcher failed")

// Store holds the active compiled lexicon and swaps it atomically on reload.
type Store struct {
	path    string
	current atomic.Pointer[Compiled]
	reloads atomic.Int64
}

// NewStore loads path (or the default pack when empty) into a Store.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStaticStore wraps an already compiled lexicon; Reload is a no-op.
func NewStaticStore(c *Compiled) *Store {
	s := &Store{}
	s.current.Store(c)
	return s
}

// Current returns the active lexicon. Never nil.
func (s *Store) Current() *Compiled {
	return s.current.Load()
}

// Reloads reports how many successful reloads happened after construction.
func (s *Store) Reloads() int64 {
	return s.reloads.Load()
}

// Reload re-reads the file. On error the previous lexicon stays active.
func (s *Store) Reload() error {
	if s.path == "" && s.current.Load() != nil {
		return nil
	}
	lx, err := LoadFile(s.path)
	if err != nil {
		return err
	}
	c, err := lx.Compile()
	if err != nil {
		return err
	}
	if s.current.Swap(c) != nil {
		s.reloads.Add(1)
	}
	return nil
}

// Watcher reloads a Store whenever its file changes.
type Watcher struct {
	store   *Store
	watcher *fsnotify.Watcher
	logger  *logging.Logger
	stop    chan struct{}
	done    chan struct{}
	started atomic.Bool
}

// NewWatcher watches the directory holding the store's file, since editors
// often replace files by rename rather than writing in place.
func NewWatcher(store *Store, logger *logging.Logger) (*Watcher, error) {
	if store.path == "" {
		return nil, fmt.Errorf("%w: store has no file", ErrWatcherFailed)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	if err := w.Add(filepath.Dir(store.path)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	return &Watcher{
		store:   store,
		watcher: w,
		logger:  logger,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}, nil
}

// Start processes events in a background goroutine until ctx ends or Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	if w.started.Swap(true) {
		return
	}
	go w.processEvents(ctx)
}

// Stop ends the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	select {
	case <-w.stop:
		return
	default:
		close(w.stop)
		_ = w.watcher.Close()
		if w.started.Load() {
			<-w.done
		}
	}
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.done)
	target := filepath.Clean(w.store.path)
	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := w.store.Reload(); err != nil {
				w.logger.Warn(ctx, "lexicon reload failed, keeping previous", zap.Error(err))
				continue
			}
			w.logger.Info(ctx, "lexicon reloaded", zap.String("path", target))
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn(ctx, "lexicon watcher error", zap.Error(err))
		}
	}
}
