// Package logger provides structured logging capabilities for the application.
// It supports multiple log levels (Debug, Info, Warn, Error) and structured fields,
// and is backed by logrus.
//
// Example usage:
//
//	logger := logger.New(logger.LevelInfo)
//	logger.Info("Favourite toggled", map[string]interface{}{
//	    "match_id": "2052718",
//	    "favourite": true,
//	})
//
// Or use the global logger:
//
//	logger.Info("Application started", nil)
package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Level represents the severity level of a log message
type Level int

const (
	// LevelDebug is for detailed debugging information
	LevelDebug Level = iota
	// LevelInfo is for general informational messages
	LevelInfo
	// LevelWarn is for warning messages
	LevelWarn
	// LevelError is for error messages
	LevelError
)

// String returns the string representation of the log level
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a level name ("debug", "info", "warn", "error") to a Level.
// Unknown names fall back to LevelInfo.
func ParseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) logrusLevel() logrus.Level {
	switch l {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Format selects the log line encoding
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Logger provides structured logging capabilities
type Logger struct {
	level Level
	base  *logrus.Logger
	entry *logrus.Entry
}

// New creates a new Logger instance writing text lines to stdout
func New(level Level) *Logger {
	return NewWithFormat(level, FormatText)
}

// NewWithFormat creates a new Logger with the given output format
func NewWithFormat(level Level, format Format) *Logger {
	base := logrus.New()
	base.SetOutput(os.Stdout)
	base.SetLevel(level.logrusLevel())
	if format == FormatJSON {
		base.SetFormatter(&logrus.JSONFormatter{})
	} else {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return &Logger{
		level: level,
		base:  base,
		entry: logrus.NewEntry(base),
	}
}

// Default returns a default logger instance with Info level
func Default() *Logger {
	return New(LevelInfo)
}

// SetOutput redirects log output
func (l *Logger) SetOutput(w io.Writer) {
	l.base.SetOutput(w)
}

// Level returns the minimum level this logger emits
func (l *Logger) Level() Level {
	return l.level
}

func (l *Logger) log(level Level, msg string, fields map[string]interface{}) {
	if level < l.level {
		return
	}

	entry := l.entry
	if len(fields) > 0 {
		entry = entry.WithFields(logrus.Fields(fields))
	}

	switch level {
	case LevelDebug:
		entry.Debug(msg)
	case LevelInfo:
		entry.Info(msg)
	case LevelWarn:
		entry.Warn(msg)
	default:
		entry.Error(msg)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, fields map[string]interface{}) {
	l.log(LevelDebug, msg, fields)
}

// Info logs an info message
func (l *Logger) Info(msg string, fields map[string]interface{}) {
	l.log(LevelInfo, msg, fields)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, fields map[string]interface{}) {
	l.log(LevelWarn, msg, fields)
}

// Error logs an error message
func (l *Logger) Error(msg string, fields map[string]interface{}) {
	l.log(LevelError, msg, fields)
}

type contextKey struct{}

// WithContext returns a logger carrying the fields stored in ctx by ContextWithFields
func (l *Logger) WithContext(ctx context.Context) *Logger {
	fields, ok := ctx.Value(contextKey{}).(map[string]interface{})
	if !ok || len(fields) == 0 {
		return l
	}
	return l.WithFields(fields)
}

// ContextWithFields attaches log fields to ctx for later use with WithContext
func ContextWithFields(ctx context.Context, fields map[string]interface{}) context.Context {
	return context.WithValue(ctx, contextKey{}, fields)
}

// WithField returns a logger with a single field
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{level: l.level, base: l.base, entry: l.entry.WithField(key, value)}
}

// WithFields returns a logger with multiple fields
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{level: l.level, base: l.base, entry: l.entry.WithFields(logrus.Fields(fields))}
}

// Global logger instance
var globalLogger = Default()

// SetGlobalLogger sets the global logger instance
func SetGlobalLogger(logger *Logger) {
	globalLogger = logger
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *Logger {
	return globalLogger
}

// Debug logs a debug message using the global logger
func Debug(msg string, fields map[string]interface{}) {
	globalLogger.Debug(msg, fields)
}

// Info logs an info message using the global logger
func Info(msg string, fields map[string]interface{}) {
	globalLogger.Info(msg, fields)
}

// Warn logs a warning message using the global logger
func Warn(msg string, fields map[string]interface{}) {
	globalLogger.Warn(msg, fields)
}

// Error logs an error message using the global logger
func Error(msg string, fields map[string]interface{}) {
	globalLogger.Error(msg, fields)
}
