package tasks

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/conveyor-engine/conveyor/pkg/schema"
)

// PathsGroup returns the desktop-path discovery group. The default entry
// point makes plain "paths" invocable as get_desktop_dir.
func PathsGroup() *Group {
	desktop := NewFunc("get_desktop_dir", "Discover the user's desktop directory", getDesktopDir)
	return NewGroup("paths", desktop,
		NewFunc("ensure_dir", "Create a directory, parents included", ensureDir),
	)
}

// getDesktopDir probes OneDrive folder redirection first, then the XDG
// user-dirs configuration, then falls back to Desktop under the home dir.
func getDesktopDir(_ context.Context, _ Input) (any, error) {
	if p := desktopFromOneDrive(); p != "" {
		return map[string]any{"desktop_dir": p}, nil
	}
	if p := desktopFromUserDirs(); p != "" {
		return map[string]any{"desktop_dir": p}, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeTaskExecution, "cannot determine home directory").WithCause(err)
	}
	return map[string]any{"desktop_dir": filepath.Join(home, "Desktop")}, nil
}

func desktopFromOneDrive() string {
	for _, name := range []string{"OneDrive", "OneDriveCommercial", "OneDriveConsumer"} {
		od := os.Getenv(name)
		if od == "" {
			continue
		}
		p := filepath.Join(od, "Desktop")
		if dirExists(p) {
			return p
		}
	}
	return ""
}

// desktopFromUserDirs reads XDG_DESKTOP_DIR from ~/.config/user-dirs.dirs.
func desktopFromUserDirs() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	f, err := os.Open(filepath.Join(home, ".config", "user-dirs.dirs"))
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "XDG_DESKTOP_DIR=") {
			continue
		}
		val := strings.Trim(strings.TrimPrefix(line, "XDG_DESKTOP_DIR="), `"`)
		val = strings.ReplaceAll(val, "$HOME", home)
		if dirExists(val) {
			return val
		}
	}
	return ""
}

func ensureDir(_ context.Context, in Input) (any, error) {
	path, ok := in.GetString("path")
	if !ok || path == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "ensure_dir requires a path kwarg")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, err
	}
	return map[string]any{"dir": path}, nil
}

func dirExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
