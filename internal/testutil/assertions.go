package testutil

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/specialistvlad/blueprintc/internal/cli"
	"github.com/specialistvlad/blueprintc/internal/diag"
	"github.com/stretchr/testify/require"
)

// AssertExitCode checks that the run failed with the given exit code.
func AssertExitCode(t *testing.T, result *HarnessResult, code int) {
	t.Helper()
	var exitErr *cli.ExitError
	require.True(t, errors.As(result.Err, &exitErr), "expected an exit error, got %v", result.Err)
	require.Equal(t, code, exitErr.Code, "unexpected exit code, message: %s", exitErr.Message)
}

// AssertDiagnostic checks that the printed output reports an error of kind.
func AssertDiagnostic(t *testing.T, result *HarnessResult, kind diag.Kind) {
	t.Helper()
	expected := fmt.Sprintf("%s[%s]", diag.Error, kind)
	require.True(t,
		strings.Contains(result.Output, expected),
		"expected diagnostic %q in output:\n%s", expected, result.Output,
	)
}
