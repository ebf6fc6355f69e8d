package integration_tests

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/blueprintc/internal/cli"
	"github.com/specialistvlad/blueprintc/internal/diag"
	"github.com/specialistvlad/blueprintc/internal/emit"
	"github.com/specialistvlad/blueprintc/internal/testutil"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func readDocument(t *testing.T, path string) *emit.Document {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc emit.Document
	require.NoError(t, yaml.Unmarshal(raw, &doc))
	return &doc
}

func TestCompile_WritesArtifact(t *testing.T) {
	t.Parallel()

	result := testutil.RunCommand(t, map[string]string{"blueprints/main.hcl": testutil.UsersBlueprint},
		"compile", "--out", "$DIR/out/plan.yaml", "$DIR/blueprints")
	require.NoError(t, result.Err)
	require.Equal(t, "0 error(s), 0 warning(s)\n", result.Output)

	doc := readDocument(t, filepath.Join(result.Dir, "out", "plan.yaml"))
	require.Equal(t, "done", doc.Stage)
	require.Len(t, doc.Routes, 2)
	require.Len(t, doc.Plans, 2)
	require.Empty(t, doc.Diagnostics)

	for _, plan := range doc.Plans {
		require.Len(t, plan.Wrapping, 1, "the wrap registered before both routes applies to both")
		require.Equal(t, "invoke_wrap", plan.Steps[0].Kind, "steps: %+v", plan.Steps)
		require.Equal(t, "invoke_handler", plan.Steps[len(plan.Steps)-1].Kind, "steps: %+v", plan.Steps)
	}
}

func TestCompile_Deterministic(t *testing.T) {
	t.Parallel()

	files := map[string]string{"main.hcl": testutil.UsersBlueprint}
	first := testutil.RunCommand(t, files, "compile", "$DIR")
	second := testutil.RunCommand(t, files, "compile", "$DIR")
	require.NoError(t, first.Err)
	require.NoError(t, second.Err)
	require.Equal(t, first.Output, second.Output)
}

func TestCompile_FailedPass(t *testing.T) {
	t.Parallel()

	result := testutil.RunCommand(t, map[string]string{"main.hcl": testutil.MissingConstructorBlueprint},
		"compile", "-o", "$DIR/plan.yaml", "$DIR/main.hcl")
	testutil.AssertExitCode(t, result, cli.ExitFailed)
	require.EqualError(t, result.Err, "compilation failed during resolve_deps with 1 error(s)")
	testutil.AssertDiagnostic(t, result, diag.MissingConstructor)

	doc := readDocument(t, filepath.Join(result.Dir, "plan.yaml"))
	require.Equal(t, "resolve_deps", doc.Stage)
	require.Empty(t, doc.Plans)
	require.Len(t, doc.Diagnostics, 1)
}

func TestCompile_LintConfig(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"main.hcl": testutil.UsersBlueprint + `
symbol "app.NewCache" {
  output = "app.Cache"
}

constructor "NewCache" {
  lifecycle = "singleton"
}
`,
		"lints.yaml": "lints:\n  unused: deny\n",
	}

	warned := testutil.RunCommand(t, files, "compile", "-o", "$DIR/plan.yaml", "$DIR/main.hcl")
	require.NoError(t, warned.Err)
	require.Contains(t, warned.Output, "warning[unused_component]")

	denied := testutil.RunCommand(t, files, "--lints", "$DIR/lints.yaml", "compile", "-o", "$DIR/plan.yaml", "$DIR/main.hcl")
	testutil.AssertExitCode(t, denied, cli.ExitFailed)
	testutil.AssertDiagnostic(t, denied, diag.UnusedComponent)
}
