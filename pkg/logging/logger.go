package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Global logger instance and synchronization
var (
	logger   *slog.Logger
	loggerMu sync.RWMutex
	logFile  *os.File
	isInited bool
	initOnce sync.Once
)

// LogLevel represents logging verbosity
type LogLevel string

const (
	LevelDebug LogLevel = "DEBUG"
	LevelInfo  LogLevel = "INFO"
	LevelWarn  LogLevel = "WARN"
	LevelError LogLevel = "ERROR"
)

// Config holds logger configuration
type Config struct {
	Level      LogLevel
	OutputPath string // Empty for stderr, or file path
	Format     string // "json" or "text"
}

// Init initializes the global logger with the given configuration.
// Calling it again reconfigures the logger, closing any log file the
// previous configuration opened.
func Init(config Config) error {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if logFile != nil {
		if err := logFile.Close(); err != nil {
			return fmt.Errorf("closing previous log file: %w", err)
		}
		logFile = nil
	}

	// Logs go to stderr by default so they never interleave with
	// result output on stdout.
	var writer io.Writer
	if config.OutputPath == "" {
		writer = os.Stderr
	} else {
		if err := os.MkdirAll(filepath.Dir(config.OutputPath), 0o750); err != nil {
			return err
		}
		file, err := os.OpenFile(config.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return err
		}
		writer = file
		logFile = file
	}

	var level slog.Level
	switch config.Level {
	case LevelDebug:
		level = slog.LevelDebug
	case LevelWarn:
		level = slog.LevelWarn
	case LevelError:
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if config.Format == "json" {
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(writer, opts)
	}

	logger = slog.New(handler)
	isInited = true
	return nil
}

// InitDefault initializes the logger with INFO/text/stderr defaults.
// Safe to call multiple times.
func InitDefault() {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if isInited {
		return
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	isInited = true
}

// Close closes the logger and any open file handle. After Close, Init
// may be called again.
func Close() error {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if !isInited {
		return nil
	}
	var err error
	if logFile != nil {
		err = logFile.Close()
		logFile = nil
	}
	logger = nil
	isInited = false
	initOnce = sync.Once{}
	return err
}

// GetLogger returns the current logger, lazily initializing defaults.
func GetLogger() *slog.Logger {
	loggerMu.RLock()
	if isInited {
		l := logger
		loggerMu.RUnlock()
		return l
	}
	loggerMu.RUnlock()

	initOnce.Do(InitDefault)

	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()
	return l
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	GetLogger().Debug(msg, args...)
}

// Info logs an info message
func Info(msg string, args ...any) {
	GetLogger().Info(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	GetLogger().Warn(msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	GetLogger().Error(msg, args...)
}
