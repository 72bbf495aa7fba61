// Package logging provides the small leveled logger shared by the form engine.
// Library packages accept a Logger through options and default to Nop so they
// stay silent unless a caller opts in.
package logging

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Level represents log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

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

// ParseLevel maps a config string onto a Level. Unknown values fall back to
// LevelInfo.
func ParseLevel(raw string) Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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

// Logger records key/value annotated messages.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
	With(fields ...any) Logger
}

type writerLogger struct {
	mu       *sync.Mutex
	out      io.Writer
	minLevel Level
	fields   []any
	now      func() time.Time
}

// New returns a Logger writing one line per entry to w:
//
//	2026-01-02T15:04:05 [WARN] message key=value
func New(w io.Writer, level Level) Logger {
	if w == nil {
		return Nop()
	}
	return &writerLogger{
		mu:       &sync.Mutex{},
		out:      w,
		minLevel: level,
		now:      time.Now,
	}
}

func (l *writerLogger) Debug(msg string, fields ...any) { l.log(LevelDebug, msg, fields) }
func (l *writerLogger) Info(msg string, fields ...any)  { l.log(LevelInfo, msg, fields) }
func (l *writerLogger) Warn(msg string, fields ...any)  { l.log(LevelWarn, msg, fields) }
func (l *writerLogger) Error(msg string, fields ...any) { l.log(LevelError, msg, fields) }

func (l *writerLogger) With(fields ...any) Logger {
	clone := *l
	clone.fields = append(append([]any(nil), l.fields...), fields...)
	return &clone
}

func (l *writerLogger) log(level Level, msg string, fields []any) {
	if level < l.minLevel {
		return
	}

	var b strings.Builder
	b.WriteString(l.now().Format("2006-01-02T15:04:05"))
	b.WriteString(" [")
	b.WriteString(level.String())
	b.WriteString("] ")
	b.WriteString(msg)

	all := append(append([]any(nil), l.fields...), fields...)
	for i := 0; i+1 < len(all); i += 2 {
		fmt.Fprintf(&b, " %v=%v", all[i], all[i+1])
	}
	if len(all)%2 != 0 {
		fmt.Fprintf(&b, " %v=<missing>", all[len(all)-1])
	}
	b.WriteString("\n")

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.out, b.String())
}

type nopLogger struct{}

// Nop returns a Logger that discards everything.
func Nop() Logger { return nopLogger{} }

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (n nopLogger) With(...any) Logger { return n }
