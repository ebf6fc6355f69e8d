package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// UsersBlueprint is a small blueprint that compiles cleanly: a config value
// feeding a singleton database, a request-scoped session, one wrapping
// middleware and two routes.
const UsersBlueprint = `
module = "app"

type "app.ServerConfig" {}

symbol "app.NewDB" {
  inputs = ["app.ServerConfig"]
  output = "*app.DB"
}

symbol "app.NewSession" {
  inputs = ["*app.DB", "*http.Request"]
  output = "app.Session"
}

symbol "app.Timeout" {}

symbol "app.GetUser" {
  inputs = ["app.Session"]
}

symbol "app.ListUsers" {
  inputs = ["*app.DB"]
}

config "server" {
  type    = "app.ServerConfig"
  default = { port = 8080 }
}

constructor "NewDB" {
  lifecycle = "singleton"
}

constructor "NewSession" {
  lifecycle = "request_scoped"
}

wrap "Timeout" {}

route "GET" "/users/{id}" {
  handler = "GetUser"
}

route "GET" "/users" {
  handler = "ListUsers"
}
`

// MissingConstructorBlueprint has a handler whose input nothing provides.
const MissingConstructorBlueprint = `
symbol "app.GetUser" {
  inputs = ["*app.DB"]
}

route "GET" "/users/{id}" {
  handler = "app.GetUser"
}
`

// WriteFiles writes files, keyed by slash-separated relative path, below a
// fresh temporary directory and returns that directory.
func WriteFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}
