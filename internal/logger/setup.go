package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultFileMaxSizeMB  = 10
	defaultFileMaxBackups = 3
	defaultFileMaxAgeDays = 28
	logDirPermissions     = 0o750
)

// Options selects where the global logger writes.
type Options struct {
	// Level is the minimum level written to the console.
	Level zapcore.Level
	// Console enables the colored stdout output. Disable it when another
	// component owns the terminal.
	Console bool
	// File enables a rotating JSON log file when its Path is set.
	File FileOptions
}

// FileOptions configures the rotating log file.
type FileOptions struct {
	// Path of the active log file. Empty disables the file sink.
	Path string
	// Level is the minimum level written to the file.
	Level zapcore.Level
	// MaxSizeMB rotates the file after it grows past this size.
	MaxSizeMB int
	// MaxBackups is the number of rotated files to keep.
	MaxBackups int
	// MaxAgeDays removes rotated files older than this.
	MaxAgeDays int
}

// Setup replaces the global logger according to opts and returns a function
// that flushes and closes the sinks.
func Setup(opts Options) (func() error, error) {
	defaultLevel.SetLevel(opts.Level)

	cores := make([]zapcore.Core, 0, 2)
	if opts.Console {
		cores = append(cores, newConsoleCore(os.Stdout, defaultLevel))
	}

	var file *lumberjack.Logger

	if opts.File.Path != "" {
		if err := os.MkdirAll(filepath.Dir(filepath.Clean(opts.File.Path)), logDirPermissions); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}

		file = newRotatingFile(opts.File)
		cores = append(cores, newFileCore(file, opts.File.Level))
	}

	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller()).Sugar()
	SetLogger(l)

	closeFn := func() error {
		// Sync on stdout commonly fails with EINVAL, only the file matters here.
		_ = l.Sync()

		if file == nil {
			return nil
		}

		if err := file.Close(); err != nil {
			return fmt.Errorf("close log file: %w", err)
		}

		return nil
	}

	return closeFn, nil
}

func newRotatingFile(opts FileOptions) *lumberjack.Logger {
	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = defaultFileMaxSizeMB
	}

	if opts.MaxBackups <= 0 {
		opts.MaxBackups = defaultFileMaxBackups
	}

	if opts.MaxAgeDays <= 0 {
		opts.MaxAgeDays = defaultFileMaxAgeDays
	}

	return &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   true,
	}
}

// newFileCore writes JSON lines at its own pinned level.
func newFileCore(w *lumberjack.Logger, level zapcore.Level) zapcore.Core {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(cfg), zapcore.AddSync(w), zapcore.DebugLevel)

	return &coreWithLevel{Core: core, level: level}
}
