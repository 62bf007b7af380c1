package tasks

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFSListDir_PatternAndSorting(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.pdf"), "b")
	writeFile(t, filepath.Join(dir, "a.pdf"), "a")
	writeFile(t, filepath.Join(dir, "notes.txt"), "n")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.pdf"), 0o755))

	out, err := fsListDir(context.Background(), Input{Kwargs: map[string]any{
		"path":    dir,
		"pattern": "*.pdf",
	}})
	require.NoError(t, err)

	result := out.(map[string]any)
	assert.Equal(t, 2, result["files_total"])
	assert.Equal(t, []any{
		filepath.Join(dir, "a.pdf"),
		filepath.Join(dir, "b.pdf"),
	}, result["files"])
}

func TestFSListDir_DefaultPatternListsEverything(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "one"), "1")
	writeFile(t, filepath.Join(dir, "two"), "2")

	out, err := fsListDir(context.Background(), Input{Kwargs: map[string]any{"path": dir}})
	require.NoError(t, err)
	assert.Equal(t, 2, out.(map[string]any)["files_total"])
}

func TestFSListDir_MissingPathFails(t *testing.T) {
	_, err := fsListDir(context.Background(), Input{Kwargs: map[string]any{}})
	assert.Error(t, err)
}

func TestFSCopy_CreatesParentDirs(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "nested", "deep", "dst.txt")
	writeFile(t, src, "payload")

	out, err := fsCopy(context.Background(), Input{Kwargs: map[string]any{
		"src": src,
		"dst": dst,
	}})
	require.NoError(t, err)

	result := out.(map[string]any)
	assert.Equal(t, dst, result["copied"])
	assert.Equal(t, int64(len("payload")), result["bytes"])

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestFSCopy_MissingSourceFails(t *testing.T) {
	dir := t.TempDir()
	_, err := fsCopy(context.Background(), Input{Kwargs: map[string]any{
		"src": filepath.Join(dir, "absent"),
		"dst": filepath.Join(dir, "out"),
	}})
	assert.Error(t, err)
}

func TestFSCopy_KwargValidation(t *testing.T) {
	_, err := fsCopy(context.Background(), Input{Kwargs: map[string]any{"dst": "x"}})
	assert.Error(t, err)
	_, err = fsCopy(context.Background(), Input{Kwargs: map[string]any{"src": "x"}})
	assert.Error(t, err)
}
