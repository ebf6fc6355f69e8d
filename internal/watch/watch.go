// Package watch reruns a compile pass whenever the blueprint files change.
// A change cancels the pass in flight and starts a fresh one; the result of
// a superseded pass is never delivered.
package watch

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/specialistvlad/blueprintc/internal/ctxlog"
	"github.com/specialistvlad/blueprintc/internal/fsutil"
)

// DefaultDebounce is the quiet period used when Options.Debounce is unset.
const DefaultDebounce = 200 * time.Millisecond

// PassFunc runs one pass. ctx is cancelled when a newer change supersedes it.
type PassFunc[T any] func(ctx context.Context) (T, error)

// DeliverFunc receives the result of every pass that was not superseded.
// Calls never overlap.
type DeliverFunc[T any] func(result T, err error)

// Options configures a Watcher.
type Options struct {
	Paths     []string
	Extension string
	Debounce  time.Duration
}

// Watcher ties file system events to compile passes.
type Watcher[T any] struct {
	opts    Options
	pass    PassFunc[T]
	deliver DeliverFunc[T]

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New validates opts and returns a watcher that is not running yet.
func New[T any](opts Options, pass PassFunc[T], deliver DeliverFunc[T]) (*Watcher[T], error) {
	if len(opts.Paths) == 0 {
		return nil, fmt.Errorf("at least one path to watch is required")
	}
	if pass == nil || deliver == nil {
		return nil, fmt.Errorf("pass and deliver functions are required")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Extension == "" {
		opts.Extension = ".hcl"
	}
	return &Watcher[T]{opts: opts, pass: pass, deliver: deliver}, nil
}

// Run starts the first pass immediately and then one pass per burst of
// changes. It blocks until ctx is done, then cancels the pass in flight and
// waits for it to return.
func (w *Watcher[T]) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsw.Close()

	dirs, err := fsutil.WatchDirs(w.opts.Paths)
	if err != nil {
		return err
	}
	for _, d := range dirs {
		if err := fsw.Add(d); err != nil {
			return fmt.Errorf("failed to watch %s: %w", d, err)
		}
	}
	logger.Info("Watching blueprint files.", "dirs", len(dirs), "debounce", w.opts.Debounce)

	defer w.stop()
	w.start(ctx)

	timer := time.NewTimer(w.opts.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Watch: Context done, stopping.")
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.relevant(ctx, fsw, event) {
				timer.Reset(w.opts.Debounce)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("File watcher error.", "error", err)

		case <-timer.C:
			logger.Info("Blueprint change detected, starting a new pass.")
			w.start(ctx)
		}
	}
}

// relevant reports whether event should trigger a pass. Newly created
// directories are added to the watch list.
func (w *Watcher[T]) relevant(ctx context.Context, fsw *fsnotify.Watcher, event fsnotify.Event) bool {
	logger := ctxlog.FromContext(ctx)
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := fsw.Add(event.Name); err != nil {
				logger.Warn("Failed to watch new directory.", "dir", event.Name, "error", err)
			}
			return true
		}
	}
	if !strings.HasSuffix(event.Name, w.opts.Extension) {
		return false
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	logger.Debug("Watch: Relevant change.", "file", event.Name, "op", event.Op.String())
	return true
}

// start cancels the pass in flight, if any, and launches a new one.
func (w *Watcher[T]) start(ctx context.Context) {
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
	}
	w.gen++
	gen := w.gen
	passCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		result, err := w.pass(passCtx)

		w.mu.Lock()
		defer w.mu.Unlock()
		if gen != w.gen || passCtx.Err() != nil {
			ctxlog.FromContext(ctx).Debug("Watch: Discarded superseded pass.", "generation", gen)
			return
		}
		w.deliver(result, err)
	}()
}

func (w *Watcher[T]) stop() {
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
	}
	w.mu.Unlock()
	w.wg.Wait()
}
