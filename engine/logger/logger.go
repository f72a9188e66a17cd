// Package logger wraps log/slog behind the engine.Logger interface and adds
// daily log files alongside stdout.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rae1st/oscillate/engine"
)

const logDir = "./log"

// Logger adapts slog.Logger to engine.Logger and owns the log file handle.
type Logger struct {
	logger  *slog.Logger
	logFile *os.File
}

// New creates a logger writing to stdout and a per-day file under ./log.
// Format is "text" or "json"; level one of debug, info, warn, error.
func New(level, format string, addSource bool) (*Logger, error) {
	file, err := openDailyFile(logDir)
	if err != nil {
		return nil, err
	}

	output := io.MultiWriter(os.Stdout, file)
	return &Logger{
		logger:  slog.New(newHandler(output, level, format, addSource)),
		logFile: file,
	}, nil
}

// NewDiscard returns a logger that drops everything; useful in tests.
func NewDiscard() *Logger {
	return &Logger{logger: slog.New(newHandler(io.Discard, "error", "text", false))}
}

// Close closes the log file handle.
func (l *Logger) Close() error {
	if l == nil || l.logFile == nil {
		return nil
	}
	return l.logFile.Close()
}

// With returns a child logger with additional fields.
func (l *Logger) With(args ...any) engine.Logger {
	return &Logger{logger: l.logger.With(args...)}
}

func (l *Logger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

// Slog returns the underlying slog.Logger.
func (l *Logger) Slog() *slog.Logger {
	return l.logger
}

func newHandler(output io.Writer, level, format string, addSource bool) slog.Handler {
	options := &slog.HandlerOptions{
		Level:     parseLevel(level),
		AddSource: addSource,
	}
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return slog.NewJSONHandler(output, options)
	}
	return slog.NewTextHandler(output, options)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openDailyFile(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	name := "oscillate-" + time.Now().Local().Format("2006-01-02") + ".log"
	return os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}
