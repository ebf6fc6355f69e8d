package emit

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/specialistvlad/blueprintc/internal/blueprint"
	"github.com/specialistvlad/blueprintc/internal/compiler"
	"github.com/specialistvlad/blueprintc/internal/ctxlog"
	"github.com/specialistvlad/blueprintc/internal/signature"
	"github.com/specialistvlad/blueprintc/internal/symbols"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

func sampleTable(t *testing.T) *symbols.Table {
	t.Helper()
	tbl := symbols.NewTable()
	require.NoError(t, tbl.AddType(symbols.TypeInfo{Path: "app.ServerConfig"}))
	for _, s := range []symbols.Symbol{
		{Path: "app.NewDB", Inputs: []signature.Type{"app.ServerConfig"}, Output: "app.DB", Error: "app.DBError"},
		{Path: "app.OnDBError", Inputs: []signature.Type{"app.DBError"}, Output: "app.Response"},
		{Path: "app.GetUser", Inputs: []signature.Type{"app.DB", "blueprint.PathParams"}, Output: "app.Response"},
		{Path: "app.NotFound", Output: "app.Response"},
	} {
		require.NoError(t, tbl.AddSymbol(s))
	}
	return tbl
}

func sampleBlueprint() *blueprint.Blueprint {
	bp := blueprint.New("app")
	bp.Config("server", "app.ServerConfig").
		DefaultIfMissing(cty.ObjectVal(map[string]cty.Value{"port": cty.NumberIntVal(8080)}))
	bp.Singleton("app.NewDB").WithErrorHandler("app.OnDBError").At("main.hcl", 3)
	bp.Route("GET", "/users/{id}", "app.GetUser")
	bp.Fallback("app.NotFound")
	return bp
}

func compileSample(t *testing.T, bp *blueprint.Blueprint) *compiler.Output {
	t.Helper()
	out, err := compiler.Compile(ctxlog.Discard(context.Background()), bp, compiler.Options{Resolver: sampleTable(t)})
	require.NoError(t, err)
	return out
}

func TestBuild(t *testing.T) {
	out := compileSample(t, sampleBlueprint())

	doc, err := Build(out)
	require.NoError(t, err)
	assert.Equal(t, "done", doc.Stage)
	require.Len(t, doc.Components, 5)

	cfg := doc.Components[0]
	require.NotNil(t, cfg.Config)
	assert.Equal(t, "server", cfg.Config.Key)
	assert.Equal(t, "default_if_missing", cfg.Config.Strategy)
	assert.JSONEq(t, `{"port":8080}`, cfg.Config.Default)
	assert.Equal(t, "singleton", cfg.Lifecycle)

	db := doc.Components[1]
	assert.Equal(t, "app.NewDB", db.Path)
	assert.Equal(t, "main.hcl:3:1", db.Location)
	require.NotNil(t, db.ErrorHandler)
	assert.Equal(t, "error_handler", doc.Components[*db.ErrorHandler].Kind)

	require.Len(t, doc.Routes, 1)
	assert.Equal(t, "/users/{id}", doc.Routes[0].Pattern)
	require.NotNil(t, doc.Routes[0].Fallback)
	assert.Equal(t, []FallbackDoc{{Scope: 0, Handler: *doc.Routes[0].Fallback}}, doc.Fallbacks)

	require.Len(t, doc.Plans, 2)
	steps := doc.Plans[0].Steps
	require.Len(t, steps, 3)
	assert.Equal(t, []string{"construct", "construct", "invoke_handler"}, []string{steps[0].Kind, steps[1].Kind, steps[2].Kind})
	require.NotNil(t, steps[1].OnError)
	assert.Equal(t, db.ErrorHandler, steps[1].OnError.Handler)

	handlerInputs := steps[2].Inputs
	require.Len(t, handlerInputs, 2)
	require.NotNil(t, handlerInputs[0].From)
	assert.Equal(t, steps[1].Seq, *handlerInputs[0].From)
	assert.Nil(t, handlerInputs[1].From)
	assert.Equal(t, "framework", handlerInputs[1].Source)
}

func TestWrite_Deterministic(t *testing.T) {
	var first, second bytes.Buffer
	require.NoError(t, Write(&first, compileSample(t, sampleBlueprint())))
	require.NoError(t, Write(&second, compileSample(t, sampleBlueprint())))

	assert.Equal(t, first.String(), second.String())
	assert.Contains(t, first.String(), "methods: [GET]")
	assert.Contains(t, first.String(), "kind: invoke_handler")
	assert.NotContains(t, first.String(), "pass")

	var doc Document
	require.NoError(t, yaml.Unmarshal(first.Bytes(), &doc))
	assert.Len(t, doc.Plans, 2)
}

func TestWrite_FailedPass(t *testing.T) {
	bp := blueprint.New("app")
	bp.Route("GET", "/a/{id}", "app.GetUser")
	bp.Route("GET", "/a/{name}", "app.NotFound")

	out, err := compiler.Compile(ctxlog.Discard(context.Background()), bp, compiler.Options{Resolver: sampleTable(t)})
	require.Error(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, out))
	var doc Document
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "route", doc.Stage)
	assert.Empty(t, doc.Plans)
	require.Len(t, doc.Diagnostics, 1)
	assert.Equal(t, "route_conflict", doc.Diagnostics[0].Kind)
	assert.Equal(t, "error", doc.Diagnostics[0].Severity)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "plan.yaml")
	require.NoError(t, WriteFile(path, compileSample(t, sampleBlueprint())))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "stage: done\n"))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")
}

func TestEncodeDefault(t *testing.T) {
	testCases := []struct {
		name        string
		value       cty.Value
		expected    string
		expectError bool
	}{
		{name: "absent", value: cty.NilVal, expected: ""},
		{name: "null", value: cty.NullVal(cty.String), expected: ""},
		{name: "string", value: cty.StringVal("x"), expected: `"x"`},
		{name: "list", value: cty.ListVal([]cty.Value{cty.NumberIntVal(1), cty.NumberIntVal(2)}), expected: `[1,2]`},
		{name: "unknown", value: cty.UnknownVal(cty.String), expectError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := encodeDefault(tc.value)
			if tc.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestText(t *testing.T) {
	out := compileSample(t, sampleBlueprint())

	var routes bytes.Buffer
	require.NoError(t, Routes(&routes, out))
	assert.Equal(t, "GET      /users/{id} -> app.GetUser (fallback app.NotFound)\n", routes.String())

	var diags bytes.Buffer
	require.NoError(t, Diagnostics(&diags, out.Diagnostics))
	assert.Equal(t, "0 error(s), 0 warning(s)\n", diags.String())
}
