package app

import (
	"fmt"
	"io"
	"os"
)

// Logger interface for app layer
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// defaultLogger writes directly to stderr without level control
type defaultLogger struct {
	output io.Writer
}

func (l *defaultLogger) Debug(format string, args ...interface{}) {
	fmt.Fprintf(l.output, "DEBUG: "+format+"\n", args...)
}

func (l *defaultLogger) Info(format string, args ...interface{}) {
	fmt.Fprintf(l.output, "INFO: "+format+"\n", args...)
}

func (l *defaultLogger) Warn(format string, args ...interface{}) {
	fmt.Fprintf(l.output, "WARN: "+format+"\n", args...)
}

func (l *defaultLogger) Error(format string, args ...interface{}) {
	fmt.Fprintf(l.output, "ERROR: "+format+"\n", args...)
}

// nopLogger discards everything
type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// NopLogger returns a logger that discards all output
func NopLogger() Logger {
	return nopLogger{}
}

// prefixLogger tags every line with a fixed prefix such as a request id
type prefixLogger struct {
	next   Logger
	prefix string
}

// Scoper is a Logger that renders a scope itself
type Scoper interface {
	With(scope string) Logger
}

// WithPrefix returns a logger that tags every message with prefix. Loggers
// implementing Scoper do the tagging; others get "[prefix] " prepended.
func WithPrefix(l Logger, prefix string) Logger {
	if l == nil {
		l = GetLogger()
	}
	if s, ok := l.(Scoper); ok {
		return s.With(prefix)
	}
	return &prefixLogger{next: l, prefix: "[" + prefix + "] "}
}

func (l *prefixLogger) Debug(format string, args ...interface{}) {
	l.next.Debug(l.prefix+format, args...)
}

func (l *prefixLogger) Info(format string, args ...interface{}) {
	l.next.Info(l.prefix+format, args...)
}

func (l *prefixLogger) Warn(format string, args ...interface{}) {
	l.next.Warn(l.prefix+format, args...)
}

func (l *prefixLogger) Error(format string, args ...interface{}) {
	l.next.Error(l.prefix+format, args...)
}

// globalLogger is the process-wide log sink, set once at startup
var globalLogger Logger = &defaultLogger{output: os.Stderr}

// SetLogger sets the global logger for app layer
func SetLogger(logger Logger) {
	if logger != nil {
		globalLogger = logger
	}
}

// GetLogger returns the current logger
func GetLogger() Logger {
	return globalLogger
}
