package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/blueprintc/internal/cli"
	"github.com/stretchr/testify/require"
)

func TestRun_InvalidHCL(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	invalidHCL := `
		route "GET" "/" {
			handler = "app.Home"
		// Missing closing brace here
	`
	filePath := filepath.Join(t.TempDir(), "main.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(invalidHCL), 0o600))
	out, logs := &bytes.Buffer{}, &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, logs, []string{"compile", filePath})

	// --- Assert ---
	var exitErr *cli.ExitError
	require.True(t, errors.As(err, &exitErr))
	require.Equal(t, cli.ExitFailed, exitErr.Code)
	require.Contains(t, exitErr.Message, "failed to parse HCL file")
}

func TestRun_Help(t *testing.T) {
	t.Parallel()

	out, logs := &bytes.Buffer{}, &bytes.Buffer{}
	err := run(context.Background(), out, logs, []string{"-h"})

	require.NoError(t, err, "help should not be an error")
	require.Contains(t, out.String(), "Usage:")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	out, logs := &bytes.Buffer{}, &bytes.Buffer{}
	err := run(context.Background(), out, logs, []string{"--this-is-not-a-valid-flag"})

	var exitErr *cli.ExitError
	require.True(t, errors.As(err, &exitErr))
	require.Equal(t, cli.ExitUsage, exitErr.Code)
	require.Contains(t, exitErr.Message, "unknown flag: --this-is-not-a-valid-flag")
}
