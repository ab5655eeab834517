// Package logger provides leveled logging for ragify.
// Debug and Info lines are printed only when verbose mode is enabled via
// the --verbose flag; Warn and Error lines are always printed. All output
// goes to stderr so it never mixes with answers written to stdout.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Level is the severity of a log line.
type Level int

// Levels in increasing severity.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the tag printed in front of a line.
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
		return "LOG"
	}
}

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables Debug and Info output.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the writer for log lines. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func enabled(l Level) bool {
	return l >= LevelWarn || verbose
}

func write(l Level, component, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if !enabled(l) {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if component != "" {
		fmt.Fprintf(output, "[%s] %s: %s\n", l, component, msg)
		return
	}
	fmt.Fprintf(output, "[%s] %s\n", l, msg)
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) { write(LevelDebug, "", format, args...) }

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) { write(LevelInfo, "", format, args...) }

// Warn prints a warning.
func Warn(format string, args ...any) { write(LevelWarn, "", format, args...) }

// Error prints an error.
func Error(format string, args ...any) { write(LevelError, "", format, args...) }

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Logger prefixes every line with a component name.
// The zero value logs without a prefix.
type Logger struct {
	component string
}

// With returns a Logger for the named component.
func With(component string) Logger {
	return Logger{component: component}
}

// Debug prints a message if verbose mode is enabled.
func (l Logger) Debug(format string, args ...any) { write(LevelDebug, l.component, format, args...) }

// Info prints an informational message if verbose mode is enabled.
func (l Logger) Info(format string, args ...any) { write(LevelInfo, l.component, format, args...) }

// Warn prints a warning.
func (l Logger) Warn(format string, args ...any) { write(LevelWarn, l.component, format, args...) }

// Error prints an error.
func (l Logger) Error(format string, args ...any) { write(LevelError, l.component, format, args...) }
