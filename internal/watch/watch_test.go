package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/specialistvlad/blueprintc/internal/ctxlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const waitFor = 5 * time.Second

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

type delivery struct {
	n   int64
	err error
}

func runWatcher(t *testing.T, w *Watcher[int64]) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(ctxlog.Discard(context.Background()))
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	return func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(waitFor):
			t.Fatal("watcher did not stop")
		}
	}
}

func receive(t *testing.T, ch <-chan delivery) delivery {
	t.Helper()
	select {
	case d := <-ch:
		return d
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for a pass result")
		return delivery{}
	}
}

func TestWatcher_RebuildsOnChange(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "main.hcl")
	writeFile(t, file, `route "GET" "/" { handler = "app.Home" }`)

	var passes atomic.Int64
	results := make(chan delivery, 8)
	w, err := New[int64](Options{Paths: []string{dir}, Debounce: 20 * time.Millisecond},
		func(ctx context.Context) (int64, error) { return passes.Add(1), nil },
		func(n int64, err error) { results <- delivery{n, err} },
	)
	require.NoError(t, err)
	stop := runWatcher(t, w)
	defer stop()

	assert.Equal(t, int64(1), receive(t, results).n, "the first pass runs immediately")

	writeFile(t, file, `route "GET" "/users" { handler = "app.Users" }`)
	assert.Equal(t, int64(2), receive(t, results).n)

	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")
	select {
	case d := <-results:
		t.Fatalf("unexpected pass %d for a non-blueprint file", d.n)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_SupersededPassIsDiscarded(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "main.hcl")
	writeFile(t, file, "")

	firstStarted := make(chan struct{})
	firstCancelled := make(chan struct{})
	var passes atomic.Int64
	results := make(chan delivery, 8)

	w, err := New[int64](Options{Paths: []string{file}, Debounce: 20 * time.Millisecond},
		func(ctx context.Context) (int64, error) {
			n := passes.Add(1)
			if n == 1 {
				close(firstStarted)
				<-ctx.Done()
				close(firstCancelled)
				return n, ctx.Err()
			}
			return n, nil
		},
		func(n int64, err error) { results <- delivery{n, err} },
	)
	require.NoError(t, err)
	stop := runWatcher(t, w)
	defer stop()

	select {
	case <-firstStarted:
	case <-time.After(waitFor):
		t.Fatal("first pass never started")
	}
	writeFile(t, file, `fallback "app.NotFound" {}`)

	d := receive(t, results)
	assert.Equal(t, int64(2), d.n, "only the newest pass is delivered")
	assert.NoError(t, d.err)
	select {
	case <-firstCancelled:
	case <-time.After(waitFor):
		t.Fatal("the superseded pass was not cancelled")
	}
}

func TestWatcher_StopCancelsPassInFlight(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.hcl"), "")

	started := make(chan struct{})
	var delivered atomic.Bool
	w, err := New[int64](Options{Paths: []string{dir}},
		func(ctx context.Context) (int64, error) {
			close(started)
			<-ctx.Done()
			return 0, ctx.Err()
		},
		func(int64, error) { delivered.Store(true) },
	)
	require.NoError(t, err)
	stop := runWatcher(t, w)

	<-started
	stop()
	assert.False(t, delivered.Load())
}

func TestNew_Validation(t *testing.T) {
	pass := func(context.Context) (int64, error) { return 0, nil }
	deliver := func(int64, error) {}

	_, err := New[int64](Options{}, pass, deliver)
	assert.EqualError(t, err, "at least one path to watch is required")

	_, err = New[int64](Options{Paths: []string{"."}}, nil, deliver)
	assert.EqualError(t, err, "pass and deliver functions are required")

	w, err := New[int64](Options{Paths: []string{"."}}, pass, deliver)
	require.NoError(t, err)
	assert.Equal(t, DefaultDebounce, w.opts.Debounce)
	assert.Equal(t, ".hcl", w.opts.Extension)
}

func TestWatcher_MissingPath(t *testing.T) {
	w, err := New[int64](Options{Paths: []string{filepath.Join(t.TempDir(), "missing")}},
		func(context.Context) (int64, error) { return 0, nil },
		func(int64, error) {},
	)
	require.NoError(t, err)
	err = w.Run(ctxlog.Discard(context.Background()))
	assert.ErrorContains(t, err, "error accessing path")
}
