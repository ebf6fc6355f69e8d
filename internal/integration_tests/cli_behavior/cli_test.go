package integration_tests

import (
	"testing"

	"github.com/specialistvlad/blueprintc/internal/cli"
	"github.com/specialistvlad/blueprintc/internal/testutil"
	"github.com/stretchr/testify/require"
)

func TestCLI_Usage(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		args        []string
		exitCode    int
		errContains string
		outContains string
	}{
		{
			name:        "no arguments prints help",
			args:        nil,
			outContains: "Available Commands:",
		},
		{
			name:        "help flag",
			args:        []string{"compile", "-h"},
			outContains: "Usage:",
		},
		{
			name:        "missing paths",
			args:        []string{"compile"},
			exitCode:    cli.ExitUsage,
			errContains: "at least one blueprint file or directory is required",
		},
		{
			name:        "unknown flag",
			args:        []string{"routes", "--nope", "$DIR"},
			exitCode:    cli.ExitUsage,
			errContains: "unknown flag: --nope",
		},
		{
			name:        "invalid log format",
			args:        []string{"--log-format=xml", "compile", "$DIR"},
			exitCode:    cli.ExitUsage,
			errContains: "invalid log-format",
		},
		{
			name:        "invalid log level",
			args:        []string{"--log-level=loud", "compile", "$DIR"},
			exitCode:    cli.ExitUsage,
			errContains: "invalid log-level",
		},
		{
			name:        "unknown command",
			args:        []string{"deploy"},
			exitCode:    cli.ExitUsage,
			errContains: `unknown command "deploy"`,
		},
		{
			name:        "listen takes no paths",
			args:        []string{"listen", "$DIR"},
			exitCode:    cli.ExitUsage,
			errContains: "unknown command",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			result := testutil.RunCommand(t, map[string]string{"main.hcl": testutil.UsersBlueprint}, tc.args...)

			if tc.exitCode == 0 {
				require.NoError(t, result.Err)
			} else {
				testutil.AssertExitCode(t, result, tc.exitCode)
				require.ErrorContains(t, result.Err, tc.errContains)
			}
			if tc.outContains != "" {
				require.Contains(t, result.Output, tc.outContains)
			}
		})
	}
}

func TestCLI_Routes(t *testing.T) {
	t.Parallel()

	result := testutil.RunCommand(t, map[string]string{"main.hcl": testutil.UsersBlueprint}, "routes", "$DIR")
	require.NoError(t, result.Err)
	require.Equal(t,
		"GET      /users -> ListUsers\n"+
			"GET      /users/{id} -> GetUser\n",
		result.Output)
}

func TestCLI_LogFlags(t *testing.T) {
	t.Parallel()

	result := testutil.RunCommand(t, map[string]string{"main.hcl": testutil.UsersBlueprint},
		"--log-level=debug", "--log-format=json", "routes", "$DIR")
	require.NoError(t, result.Err)
	require.Contains(t, result.LogOutput, `"msg":"Compile pass started."`)
	require.Contains(t, result.LogOutput, `"pass":`)
}
