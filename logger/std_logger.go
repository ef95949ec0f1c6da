package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// LogLevel represents the severity of a log message.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns the upper-case label written in front of each entry.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a string to a LogLevel. Defaults to LevelInfo on unknown input.
func ParseLevel(levelStr string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	default:
		return LevelInfo
	}
}

// field is a single persistent key-value pair. Fields keep insertion order
// so entries render deterministically.
type field struct {
	key string
	val any
}

// StdLogger writes entries through a standard library *log.Logger.
type StdLogger struct {
	out      *log.Logger
	fields   []field
	minLevel LogLevel
	exit     func(int)
}

// NewStdLogger returns a StdLogger writing to the standard logger's output
// and dropping entries below minLevelStr.
func NewStdLogger(minLevelStr string) Logger {
	return NewStdLoggerTo(log.Default(), minLevelStr)
}

// NewStdLoggerTo is NewStdLogger with an explicit destination.
func NewStdLoggerTo(out *log.Logger, minLevelStr string) Logger {
	if out == nil {
		out = log.Default()
	}
	return &StdLogger{
		out:      out,
		minLevel: ParseLevel(minLevelStr),
		exit:     os.Exit,
	}
}

func (l *StdLogger) log(level LogLevel, msg string, kvs ...any) {
	if level < l.minLevel {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", level, msg)
	for _, f := range l.fields {
		fmt.Fprintf(&b, " %s=%v", f.key, f.val)
	}
	for _, f := range pairs(kvs) {
		fmt.Fprintf(&b, " %s=%v", f.key, f.val)
	}
	l.out.Println(b.String())

	if level == LevelFatal {
		l.exit(1)
	}
}

func (l *StdLogger) Debugw(msg string, kvs ...any) { l.log(LevelDebug, msg, kvs...) }
func (l *StdLogger) Infow(msg string, kvs ...any)  { l.log(LevelInfo, msg, kvs...) }
func (l *StdLogger) Warnw(msg string, kvs ...any)  { l.log(LevelWarn, msg, kvs...) }
func (l *StdLogger) Errorw(msg string, kvs ...any) { l.log(LevelError, msg, kvs...) }
func (l *StdLogger) Fatalw(msg string, kvs ...any) { l.log(LevelFatal, msg, kvs...) }

// With adds key-value pairs to the logger's context. A key that is already
// present is overwritten in place.
func (l *StdLogger) With(kvs ...any) Logger {
	return l.clone(pairs(kvs)...)
}

// WithComponent returns a logger with a component name added to the context.
func (l *StdLogger) WithComponent(name string) Logger {
	return l.clone(field{key: "component", val: name})
}

func (l *StdLogger) clone(extra ...field) *StdLogger {
	fields := make([]field, len(l.fields), len(l.fields)+len(extra))
	copy(fields, l.fields)
outer:
	for _, e := range extra {
		for i := range fields {
			if fields[i].key == e.key {
				fields[i].val = e.val
				continue outer
			}
		}
		fields = append(fields, e)
	}
	return &StdLogger{out: l.out, fields: fields, minLevel: l.minLevel, exit: l.exit}
}

// pairs converts alternating key-value arguments into fields.
func pairs(kvs []any) []field {
	out := make([]field, 0, len(kvs)/2)
	for i := 0; i+1 < len(kvs); i += 2 {
		key, ok := kvs[i].(string)
		if !ok {
			continue
		}
		out = append(out, field{key: key, val: kvs[i+1]})
	}
	return out
}
