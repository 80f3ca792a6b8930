// Package logging sets up the slog logger. The TUIs own the terminal, so
// by default everything goes to a file under the log directory.
package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
)

// FileName is the log file created inside the log directory.
const FileName = "smartfarm.log"

// Options controls Init.
type Options struct {
	Dir    string
	Debug  bool
	Stdout bool // also write to stdout (simulator and one-shot commands)
}

// Init opens <Dir>/smartfarm.log and returns a text logger writing to it.
// The stdlib log package is pointed at the same writer. The returned
// closer must be closed on shutdown. When the file cannot be opened the
// logger falls back to stderr.
func Init(opts Options) (*slog.Logger, io.Closer) {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}

	_ = os.MkdirAll(opts.Dir, 0o755)
	path := filepath.Join(opts.Dir, FileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger := slog.New(slog.NewTextHandler(os.Stderr, hopts))
		logger.Error("failed to open log file; falling back to stderr", "path", path, "error", err)
		return logger, nopCloser{}
	}

	var w io.Writer = f
	if opts.Stdout {
		w = io.MultiWriter(f, os.Stdout)
	}
	logger := slog.New(slog.NewTextHandler(w, hopts))
	log.SetOutput(w)
	return logger, f
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
