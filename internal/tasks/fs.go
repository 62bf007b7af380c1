package tasks

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/conveyor-engine/conveyor/pkg/schema"
)

// FSGroup returns the filesystem capability group: directory listing and
// file copying for pipelines that shuttle documents between folders.
func FSGroup() *Group {
	return NewGroup("fs", nil,
		NewFunc("list_dir", "List files in a directory matching a glob pattern", fsListDir),
		NewFunc("copy", "Copy a file to a destination path", fsCopy),
	)
}

func fsListDir(_ context.Context, in Input) (any, error) {
	dir, ok := in.GetString("path")
	if !ok || dir == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "list_dir requires a path kwarg")
	}
	pattern, _ := in.GetString("pattern")
	if pattern == "" {
		pattern = "*"
	}

	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "bad pattern %q: %s", pattern, err.Error()).WithCause(err)
	}

	files := make([]any, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, m)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].(string) < files[j].(string) })

	return map[string]any{"files": files, "files_total": len(files)}, nil
}

func fsCopy(_ context.Context, in Input) (any, error) {
	src, ok := in.GetString("src")
	if !ok || src == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "copy requires a src kwarg")
	}
	dst, ok := in.GetString("dst")
	if !ok || dst == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "copy requires a dst kwarg")
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, err
	}

	in_, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer in_.Close()

	out, err := os.Create(dst)
	if err != nil {
		return nil, err
	}
	defer out.Close()

	n, err := io.Copy(out, in_)
	if err != nil {
		return nil, err
	}
	if err := out.Sync(); err != nil {
		return nil, err
	}

	return map[string]any{"copied": dst, "bytes": n}, nil
}
