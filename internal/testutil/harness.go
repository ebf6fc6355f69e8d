package testutil

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/specialistvlad/blueprintc/internal/app"
	"github.com/specialistvlad/blueprintc/internal/cli"
)

// DirToken in command arguments is replaced by the fixture directory.
const DirToken = "$DIR"

// HarnessResult holds the outcomes of a command run.
type HarnessResult struct {
	Dir       string
	Output    string
	LogOutput string
	Err       error
}

// RunCommand writes files to a temporary directory and runs the command line
// against it with a background context.
func RunCommand(t *testing.T, files map[string]string, args ...string) *HarnessResult {
	t.Helper()
	return RunCommandWithContext(context.Background(), t, files, args...)
}

// RunCommandWithContext is RunCommand with a caller-provided context, for
// long-running commands such as watch.
func RunCommandWithContext(ctx context.Context, t *testing.T, files map[string]string, args ...string) *HarnessResult {
	t.Helper()

	dir := WriteFiles(t, files)
	expanded := make([]string, len(args))
	for i, a := range args {
		expanded[i] = strings.ReplaceAll(a, DirToken, dir)
	}

	out, logs := &app.SafeBuffer{}, &app.SafeBuffer{}
	err := cli.Execute(ctx, expanded, out, logs)

	if os.Getenv(app.TestLogsEnv) == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
	}
	return &HarnessResult{
		Dir:       dir,
		Output:    out.String(),
		LogOutput: logs.String(),
		Err:       err,
	}
}
