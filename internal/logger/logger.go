// Package logger provides a small logging interface for gpubench components.
// Packages log through Logger so tests can swap in a BufferLogger or Noop
// without touching global state in the backend.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

// DebugEnvVar enables debug output when set to any non-empty value.
const DebugEnvVar = "GPUBENCH_DEBUG"

// Logger defines the interface for logging operations.
// All methods accept a format string and arguments, similar to fmt.Printf.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// envLogger writes through charmbracelet/log. Debug messages are dropped
// unless GPUBENCH_DEBUG is set or SetVerbose(true) was called.
type envLogger struct {
	l *log.Logger
}

var verbose bool

// SetVerbose forces debug output on or off for loggers created afterwards
// and for the default logger.
func SetVerbose(v bool) {
	verbose = v
	if el, ok := defaultLogger.(*envLogger); ok {
		el.l.SetLevel(levelFor())
	}
}

func levelFor() log.Level {
	if verbose || os.Getenv(DebugEnvVar) != "" {
		return log.DebugLevel
	}
	return log.InfoLevel
}

// NewEnvLogger creates a logger writing to stderr with the given prefix
// (e.g. "mesh" or "ssh").
func NewEnvLogger(prefix string) Logger {
	return NewWriterLogger(os.Stderr, prefix)
}

// NewWriterLogger creates an env-style logger writing to w.
func NewWriterLogger(w io.Writer, prefix string) Logger {
	l := log.NewWithOptions(w, log.Options{
		Prefix:          prefix,
		Level:           levelFor(),
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
	return &envLogger{l: l}
}

func (l *envLogger) Debug(format string, args ...interface{}) {
	l.l.Debugf(format, args...)
}

func (l *envLogger) Info(format string, args ...interface{}) {
	l.l.Infof(format, args...)
}

func (l *envLogger) Warn(format string, args ...interface{}) {
	l.l.Warnf(format, args...)
}

func (l *envLogger) Error(format string, args ...interface{}) {
	l.l.Errorf(format, args...)
}

type noopLogger struct{}

// Noop returns a logger that discards all messages.
func Noop() Logger {
	return &noopLogger{}
}

func (l *noopLogger) Debug(format string, args ...interface{}) {}
func (l *noopLogger) Info(format string, args ...interface{})  {}
func (l *noopLogger) Warn(format string, args ...interface{})  {}
func (l *noopLogger) Error(format string, args ...interface{}) {}

// LogMessage represents a captured log message.
type LogMessage struct {
	Level   string
	Message string
}

// BufferLogger captures log messages for test assertions.
// It is safe for concurrent use since measurement tasks log from goroutines.
type BufferLogger struct {
	mu       sync.Mutex
	messages []LogMessage
}

// NewBufferLogger creates a logger that captures messages for inspection.
func NewBufferLogger() *BufferLogger {
	return &BufferLogger{}
}

func (l *BufferLogger) add(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, LogMessage{Level: level, Message: fmt.Sprintf(format, args...)})
}

func (l *BufferLogger) Debug(format string, args ...interface{}) { l.add("debug", format, args...) }
func (l *BufferLogger) Info(format string, args ...interface{})  { l.add("info", format, args...) }
func (l *BufferLogger) Warn(format string, args ...interface{})  { l.add("warn", format, args...) }
func (l *BufferLogger) Error(format string, args ...interface{}) { l.add("error", format, args...) }

// Messages returns a copy of everything logged so far.
func (l *BufferLogger) Messages() []LogMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogMessage, len(l.messages))
	copy(out, l.messages)
	return out
}

// HasLevel returns true if any message was logged at the given level.
func (l *BufferLogger) HasLevel(level string) bool {
	for _, m := range l.Messages() {
		if m.Level == level {
			return true
		}
	}
	return false
}

// Clear removes all captured messages.
func (l *BufferLogger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = l.messages[:0]
}

var defaultLogger = NewEnvLogger("gpubench")

// Default returns the package-level logger.
func Default() Logger {
	return defaultLogger
}

// SetDefault replaces the package-level logger.
func SetDefault(l Logger) {
	defaultLogger = l
}
