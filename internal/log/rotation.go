package log

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultMaxSizeMB = 10
	defaultMaxFiles  = 5
)

var errNoLogFile = errors.New("log file path must not be empty")

// openLogFile returns a size-rotated writer for opts.File. Rotated copies are
// named with the local timestamp next to the active file. MaxFiles of zero
// keeps every rotated copy; a negative value falls back to the default.
func openLogFile(opts Options) (*lumberjack.Logger, error) {
	if opts.File == "" {
		return nil, errNoLogFile
	}

	size := opts.MaxSizeMB
	if size <= 0 {
		size = defaultMaxSizeMB
	}
	keep := opts.MaxFiles
	if keep < 0 {
		keep = defaultMaxFiles
	}

	dir := filepath.Dir(opts.File)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create log directory %s: %w", dir, err)
	}

	return &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    size,
		MaxBackups: keep,
		LocalTime:  true,
	}, nil
}
