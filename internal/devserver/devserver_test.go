package devserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/specialistvlad/blueprintc/internal/compiler"
	"github.com/specialistvlad/blueprintc/internal/ctxlog"
	"github.com/specialistvlad/blueprintc/internal/diag"
	"github.com/specialistvlad/blueprintc/internal/hclblueprint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var finished = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func compileSource(t *testing.T, src string) (*compiler.Output, error) {
	t.Helper()
	ctx := ctxlog.Discard(context.Background())
	res, err := hclblueprint.NewLoader().Parse(ctx, "main.hcl", []byte(src))
	require.NoError(t, err)
	return compiler.Compile(ctx, res.Blueprint, compiler.Options{Resolver: res.Symbols})
}

func TestNewEvent(t *testing.T) {
	t.Run("successful pass lists routes", func(t *testing.T) {
		out, err := compileSource(t, `
symbol "app.GetUser" {}
route "GET" "/users/{id}" { handler = "app.GetUser" }
`)
		require.NoError(t, err)

		ev := NewEvent(out, err, finished)
		assert.Equal(t, out.Pass, ev.Pass)
		assert.Equal(t, "done", ev.Stage)
		assert.False(t, ev.Failed)
		assert.Zero(t, ev.Errors)
		assert.Equal(t, []string{"GET      /users/{id} -> app.GetUser"}, ev.Routes)
		assert.Equal(t, finished, ev.Finished)
	})

	t.Run("failed pass counts diagnostics", func(t *testing.T) {
		out := &compiler.Output{
			Pass:  "p-1",
			Stage: compiler.StageDeps,
			Diagnostics: []diag.Diagnostic{
				diag.Errorf(diag.MissingConstructor, "no constructor for app.DB"),
				diag.Warnf(diag.UnusedComponent, "app.NewCache is never used"),
			},
		}
		ev := NewEvent(out, &compiler.FailedError{Stage: out.Stage, Diagnostics: out.Diagnostics}, finished)
		assert.True(t, ev.Failed)
		assert.Equal(t, "resolve_deps", ev.Stage)
		assert.Equal(t, 1, ev.Errors)
		assert.Equal(t, 1, ev.Warnings)
		assert.Len(t, ev.Diagnostics, 2)
		assert.Nil(t, ev.Routes)
	})

	t.Run("pass that could not run", func(t *testing.T) {
		ev := NewEvent(nil, errors.New("no blueprint files found"), finished)
		assert.True(t, ev.Failed)
		assert.Equal(t, "load", ev.Stage)
		assert.Equal(t, 1, ev.Errors)
		assert.Equal(t, []string{"no blueprint files found"}, ev.Diagnostics)
	})
}

func TestEvent_Summary(t *testing.T) {
	assert.Equal(t, "pass failed during route: 2 error(s), 1 warning(s)",
		Event{Stage: "route", Failed: true, Errors: 2, Warnings: 1}.Summary())
	assert.Equal(t, "pass succeeded: 1 route(s), 0 warning(s)",
		Event{Stage: "done", Routes: []string{"GET      / -> app.Home"}}.Summary())
}

func TestServer_Health(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	srv := New("127.0.0.1:0")
	ts := httptest.NewServer(srv.Handler(ctx))
	defer ts.Close()
	defer srv.Shutdown(ctx)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK\n", string(body))
}

func TestServer_PublishKeepsLatest(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	srv := New("127.0.0.1:0")
	defer srv.Shutdown(ctx)

	_, ok := srv.Latest()
	assert.False(t, ok)

	srv.Publish(ctx, Event{Pass: "one", Stage: "done"})
	srv.Publish(ctx, Event{Pass: "two", Stage: "route", Failed: true})

	latest, ok := srv.Latest()
	require.True(t, ok)
	assert.Equal(t, "two", latest.Pass)
	assert.True(t, latest.Failed)
}

func TestServer_StartAndShutdown(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	srv := New("127.0.0.1:0")
	assert.Nil(t, srv.Addr())
	require.NoError(t, srv.Start(ctx))
	require.NotNil(t, srv.Addr())

	resp, err := http.Get(fmt.Sprintf("http://%s/health", srv.Addr()))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, srv.Shutdown(ctx))
	_, err = http.Get(fmt.Sprintf("http://%s/health", srv.Addr()))
	assert.Error(t, err)
}

func TestListen_ReceivesLatestPass(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	srv := New("127.0.0.1:0")
	require.NoError(t, srv.Start(ctx))
	defer srv.Shutdown(ctx)
	srv.Publish(ctx, Event{Pass: "abc", Stage: "done", Routes: []string{"GET      / -> app.Home"}, Finished: finished})

	listenCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	received := make(chan Event, 1)
	done := make(chan error, 1)
	go func() {
		done <- Listen(listenCtx, fmt.Sprintf("http://%s", srv.Addr()), func(ev Event) {
			select {
			case received <- ev:
			default:
			}
		})
	}()

	select {
	case ev := <-received:
		assert.Equal(t, "abc", ev.Pass)
		assert.Equal(t, []string{"GET      / -> app.Home"}, ev.Routes)
		assert.True(t, finished.Equal(ev.Finished))
	case err := <-done:
		t.Fatalf("listen returned early: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for the pass event")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("listen did not return after cancellation")
	}
}

func TestListen_InvalidURL(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	err := Listen(ctx, "localhost:8090", func(Event) {})
	assert.ErrorContains(t, err, "scheme and host are required")
}

func TestEvent_PayloadRoundTrip(t *testing.T) {
	ev := Event{Pass: "p", Stage: "done", Warnings: 1, Routes: []string{"GET      / -> app.Home"}, Finished: finished}
	payload := ev.payload()
	assert.Equal(t, "p", payload["pass"])

	back, err := decodeEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, ev, back)
}

func TestDecodeEvent(t *testing.T) {
	ev, err := decodeEvent(map[string]any{"pass": "x", "stage": "route", "failed": true, "errors": float64(2)})
	require.NoError(t, err)
	assert.Equal(t, Event{Pass: "x", Stage: "route", Failed: true, Errors: 2}, ev)

	_, err = decodeEvent(map[string]any{"errors": "many"})
	assert.Error(t, err)
}
