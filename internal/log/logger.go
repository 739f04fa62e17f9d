package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options mirrors the [logging] config section.
type Options struct {
	Level     string
	File      string
	MaxSizeMB int
	MaxFiles  int

	// Stderr receives text output when File is empty. Defaults to os.Stderr.
	Stderr io.Writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds the process logger. With a file configured it writes JSON to a
// rotating file; otherwise text to stderr. The returned closer releases the
// file and must be called on shutdown.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	if opts.File != "" {
		writer, err := openLogFile(opts)
		if err != nil {
			return nil, nil, err
		}
		logger := slog.New(NewRedactingHandler(slog.NewJSONHandler(writer, handlerOpts)))
		return logger, writer, nil
	}

	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := slog.New(NewRedactingHandler(slog.NewTextHandler(stderr, handlerOpts)))
	return logger, nopCloser{}, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func ParseLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", raw)
}
