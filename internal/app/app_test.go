package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/specialistvlad/blueprintc/internal/compiler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usersHCL = `
module = "app"

type "app.ServerConfig" {}

symbol "app.NewDB" {
  inputs = ["app.ServerConfig"]
  output = "*app.DB"
}

symbol "app.GetUser" {
  inputs = ["*app.DB"]
}

config "server" {
  type    = "app.ServerConfig"
  default = { port = 8080 }
}

constructor "NewDB" {
  lifecycle = "singleton"
}

route "GET" "/users/{id}" {
  handler = "GetUser"
}
`

const brokenHCL = `
symbol "app.GetUser" {
  inputs = ["*app.DB"]
}

route "GET" "/users/{id}" {
  handler = "app.GetUser"
}
`

func writeBlueprint(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewConfig(t *testing.T) {
	testCases := []struct {
		name    string
		in      Config
		want    *Config
		wantErr string
	}{
		{
			name: "defaults",
			in:   Config{BlueprintPaths: []string{"a.hcl"}},
			want: &Config{BlueprintPaths: []string{"a.hcl"}, LogFormat: "text", LogLevel: "info", Workers: DefaultWorkers},
		},
		{
			name: "explicit values kept",
			in:   Config{LogFormat: "json", LogLevel: "debug", Workers: 3, Debounce: time.Second},
			want: &Config{LogFormat: "json", LogLevel: "debug", Workers: 3, Debounce: time.Second},
		},
		{name: "bad format", in: Config{LogFormat: "xml"}, wantErr: "invalid log-format"},
		{name: "bad level", in: Config{LogLevel: "trace"}, wantErr: "invalid log-level"},
		{name: "negative debounce", in: Config{Debounce: -time.Second}, wantErr: "debounce cannot be negative"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NewConfig(tc.in)
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("warn", "json", &buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	newLogger("bogus", "text", &buf).Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")
}

func TestNewApp_BadLintConfig(t *testing.T) {
	cfg, err := NewConfig(Config{LintConfigPath: filepath.Join(t.TempDir(), "missing.yaml")})
	require.NoError(t, err)
	_, err = NewApp(&bytes.Buffer{}, &bytes.Buffer{}, cfg)
	assert.ErrorContains(t, err, "failed to read lint config")
}

func TestApp_Compile(t *testing.T) {
	t.Run("artifact to output", func(t *testing.T) {
		a, out, logs := SetupAppTest(t, Config{BlueprintPaths: []string{writeBlueprint(t, usersHCL)}})
		require.NoError(t, a.Compile(context.Background()))

		assert.Contains(t, out.String(), "stage: done")
		assert.Contains(t, out.String(), "pattern: /users/{id}")
		assert.Contains(t, out.String(), `default: '{"port":8080}'`)
		assert.Contains(t, logs.String(), "Compile pass started.")
	})

	t.Run("artifact to file", func(t *testing.T) {
		outPath := filepath.Join(t.TempDir(), "build", "plan.yaml")
		a, out, _ := SetupAppTest(t, Config{BlueprintPaths: []string{writeBlueprint(t, usersHCL)}, OutPath: outPath})
		require.NoError(t, a.Compile(context.Background()))

		raw, err := os.ReadFile(outPath)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(raw), "stage: done\n"))
		assert.Equal(t, "0 error(s), 0 warning(s)\n", out.String())
	})

	t.Run("failed pass", func(t *testing.T) {
		a, out, _ := SetupAppTest(t, Config{BlueprintPaths: []string{writeBlueprint(t, brokenHCL)}})
		err := a.Compile(context.Background())

		var failed *compiler.FailedError
		require.True(t, errors.As(err, &failed))
		assert.Equal(t, compiler.StageDeps, failed.Stage)
		assert.Contains(t, out.String(), "stage: resolve_deps")
		assert.Contains(t, out.String(), "missing_constructor")
	})

	t.Run("unreadable input", func(t *testing.T) {
		a, out, _ := SetupAppTest(t, Config{BlueprintPaths: []string{filepath.Join(t.TempDir(), "nope")}})
		err := a.Compile(context.Background())
		assert.ErrorContains(t, err, "error accessing path")
		assert.Empty(t, out.String())
	})

	t.Run("no paths", func(t *testing.T) {
		a, _, _ := SetupAppTest(t, Config{})
		assert.EqualError(t, a.Compile(context.Background()), "no blueprint paths given")
	})
}

func TestApp_Routes(t *testing.T) {
	a, out, _ := SetupAppTest(t, Config{BlueprintPaths: []string{writeBlueprint(t, usersHCL)}})
	require.NoError(t, a.Routes(context.Background()))
	assert.Equal(t, "GET      /users/{id} -> GetUser\n", out.String())

	a, out, _ = SetupAppTest(t, Config{BlueprintPaths: []string{writeBlueprint(t, brokenHCL)}})
	err := a.Routes(context.Background())
	assert.Error(t, err)
	assert.Contains(t, out.String(), "error[missing_constructor]")
	assert.Contains(t, out.String(), "1 error(s), 0 warning(s)")
}

func TestApp_WatchDeliversPasses(t *testing.T) {
	path := writeBlueprint(t, usersHCL)
	a, out, _ := SetupAppTest(t, Config{BlueprintPaths: []string{path}, Debounce: 20 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Watch(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "pass succeeded: 1 route(s), 0 warning(s)")
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte(brokenHCL), 0o600))
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "pass failed during resolve_deps: 1 error(s), 0 warning(s)")
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
