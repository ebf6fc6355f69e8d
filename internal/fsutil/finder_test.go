package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		p := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("# test"), 0o644))
	}
}

func TestFindFilesByExtension(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.hcl", "b.txt", "nested/c.hcl")

	files, err := FindFilesByExtension(root, ".hcl")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join(root, "a.hcl"), filepath.Join(root, "nested", "c.hcl")}, files)

	assert.Panics(t, func() { _, _ = FindFilesByExtension(root, "") })
}

func TestCollectFiles(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "z.hcl", "dir/b.hcl", "dir/a.hcl", "dir/skip.md", "extra.bp")

	files, err := CollectFiles([]string{
		filepath.Join(root, "dir"),
		filepath.Join(root, "z.hcl"),
		filepath.Join(root, "extra.bp"),
		filepath.Join(root, "dir", "a.hcl"),
	}, ".hcl")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "dir", "a.hcl"),
		filepath.Join(root, "dir", "b.hcl"),
		filepath.Join(root, "extra.bp"),
		filepath.Join(root, "z.hcl"),
	}, files)

	_, err = CollectFiles([]string{filepath.Join(root, "missing")}, ".hcl")
	assert.ErrorContains(t, err, "error accessing path")
}

func TestWatchDirs(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.hcl", "dir/sub/b.hcl")

	dirs, err := WatchDirs([]string{filepath.Join(root, "a.hcl"), filepath.Join(root, "dir")})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Clean(root),
		filepath.Join(root, "dir"),
		filepath.Join(root, "dir", "sub"),
	}, dirs)
}
