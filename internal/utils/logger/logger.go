package logger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

// Logger is a prefixed console logger used across the service.
type Logger struct {
	prefix string
	debug  bool
}

// New creates a logger with the given component prefix.
func New(prefix string) *Logger {
	return &Logger{
		prefix: strings.ToUpper(prefix),
		debug:  os.Getenv("DEBUG") != "",
	}
}

func (l *Logger) print(c color.Attribute, level, msg string) {
	ts := time.Now().Format("2006-01-02 15:04:05")
	color.New(c).Fprintf(os.Stderr, "%s [%s] %-7s %s\n", ts, l.prefix, level, msg)
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	l.print(color.FgCyan, "INFO", fmt.Sprintf(format, args...))
}

// Success logs a success message.
func (l *Logger) Success(format string, args ...interface{}) {
	l.print(color.FgGreen, "SUCCESS", fmt.Sprintf(format, args...))
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.print(color.FgYellow, "WARN", fmt.Sprintf(format, args...))
}

// Debug logs a debug message when the DEBUG environment variable is set.
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.print(color.FgMagenta, "DEBUG", fmt.Sprintf(format, args...))
}

// Error logs an error and returns it wrapped so call sites can
// `return log.Error("failed to x", err)`.
func (l *Logger) Error(msg string, err error) error {
	wrapped := fmt.Errorf("%s: %w", msg, err)
	l.print(color.FgRed, "ERROR", wrapped.Error())
	return wrapped
}
