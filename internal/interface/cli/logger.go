package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/YoshitsuguKoike/deepatch/internal/app"
)

// LogLevel orders log severities
type LogLevel int32

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l LogLevel) String() string {
	if l < LogLevelDebug || l > LogLevelError {
		return "LEVEL(" + fmt.Sprint(int32(l)) + ")"
	}
	return levelNames[l]
}

// LogLevelFromString converts a string to LogLevel; unknown values mean info
func LogLevelFromString(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// sink is shared by a logger and every scoped child
type sink struct {
	mu    sync.Mutex
	out   io.Writer
	level atomic.Int32
	now   func() time.Time
}

// Logger writes timestamped, leveled lines. Scoped children created by With
// share the level and writer, so lines from concurrent requests interleave
// whole and stay attributable.
type Logger struct {
	sink  *sink
	scope string
}

// NewLogger creates a logger writing to out at minLevel and above
func NewLogger(minLevel LogLevel, out io.Writer) *Logger {
	s := &sink{out: out, now: time.Now}
	s.level.Store(int32(minLevel))
	return &Logger{sink: s}
}

// NewStderrLogger creates the process logger from a level name
func NewStderrLogger(level string) *Logger {
	return NewLogger(LogLevelFromString(level), os.Stderr)
}

// SetLevel changes the minimum level for this logger and all its children
func (l *Logger) SetLevel(level LogLevel) { l.sink.level.Store(int32(level)) }

// With returns a child logger whose lines carry scope, nested as a/b
func (l *Logger) With(scope string) app.Logger {
	if l.scope != "" {
		scope = l.scope + "/" + scope
	}
	return &Logger{sink: l.sink, scope: scope}
}

func (l *Logger) Debug(format string, args ...interface{}) { l.log(LogLevelDebug, format, args) }
func (l *Logger) Info(format string, args ...interface{})  { l.log(LogLevelInfo, format, args) }
func (l *Logger) Warn(format string, args ...interface{})  { l.log(LogLevelWarn, format, args) }
func (l *Logger) Error(format string, args ...interface{}) { l.log(LogLevelError, format, args) }

func (l *Logger) log(level LogLevel, format string, args []interface{}) {
	if int32(level) < l.sink.level.Load() {
		return
	}
	var b strings.Builder
	b.WriteString(l.sink.now().UTC().Format("15:04:05.000"))
	fmt.Fprintf(&b, " %-5s ", level)
	if l.scope != "" {
		b.WriteString("[" + l.scope + "] ")
	}
	fmt.Fprintf(&b, format, args...)
	b.WriteByte('\n')

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	_, _ = io.WriteString(l.sink.out, b.String())
}

// InitializeLoggers installs logger as the app-layer logger and returns it
func InitializeLoggers(logger *Logger) app.Logger {
	app.SetLogger(logger)
	return logger
}
