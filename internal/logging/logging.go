// Package logging configures the structured log sink shared by the runner
// and the CLI: stdout plus a rotating log file, with run correlation IDs
// injected from the context.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logFileName    = "worker.log"
	logFileMaxMB   = 1
	logFileBackups = 5
)

// Setup builds the process logger. Records go to stdout and to a rotating
// file under dir (created if needed). Verbose lowers the level to debug,
// which also enables the masked context snapshot line.
func Setup(verbose bool, dir string) (*slog.Logger, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	var out io.Writer = os.Stdout
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   filepath.Join(dir, logFileName),
			MaxSize:    logFileMaxMB,
			MaxBackups: logFileBackups,
		})
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	return slog.New(NewCorrelationHandler(handler)), nil
}

// DefaultDir returns the conventional log directory for the current user.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".conveyor", "logs")
	}
	return filepath.Join(home, ".conveyor", "logs")
}
