package fits3

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

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
	}
	return "ERROR"
}

// DefaultLogger writes debug and info lines to stdout, warnings and errors
// to stderr, as "[prefix] LEVEL: message".
type DefaultLogger struct {
	mu     sync.Mutex
	debug  bool
	prefix string
	out    *log.Logger
	err    *log.Logger
}

func NewDefaultLogger(prefix string, debug bool) *DefaultLogger {
	flags := log.LstdFlags | log.Lmicroseconds
	return &DefaultLogger{
		debug:  debug,
		prefix: prefix,
		out:    log.New(os.Stdout, "", flags),
		err:    log.New(os.Stderr, "", flags),
	}
}

func (l *DefaultLogger) DebugEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debug
}

func (l *DefaultLogger) SetDebug(enabled bool) {
	l.mu.Lock()
	l.debug = enabled
	l.mu.Unlock()
}

func (l *DefaultLogger) logf(level Level, format string, args ...any) {
	if level == LevelDebug && !l.DebugEnabled() {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if l.prefix != "" {
		msg = fmt.Sprintf("[%s] %s: %s", l.prefix, level, msg)
	} else {
		msg = fmt.Sprintf("%s: %s", level, msg)
	}
	if level >= LevelWarn {
		l.err.Print(msg)
		return
	}
	l.out.Print(msg)
}

func (l *DefaultLogger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }

func (l *DefaultLogger) Infof(format string, args ...any) { l.logf(LevelInfo, format, args...) }

func (l *DefaultLogger) Warnf(format string, args ...any) { l.logf(LevelWarn, format, args...) }

func (l *DefaultLogger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }

type nopLogger struct{}

func NewNopLogger() Logger { return nopLogger{} }

func (nopLogger) DebugEnabled() bool    { return false }
func (nopLogger) SetDebug(bool)         {}
func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// OrNop returns l, or a no-op logger when l is nil. Never returns nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NewNopLogger()
	}
	return l
}

// ThrottledLogger passes warnings and errors through at most once per
// interval for each format string. The frame loop reports the same failure
// every frame; suppressed repeats are counted and appended to the next line
// that gets through.
type ThrottledLogger struct {
	Logger

	every time.Duration
	now   func() time.Time

	mu         sync.Mutex
	last       map[string]time.Time
	suppressed map[string]int
}

func NewThrottledLogger(l Logger, every time.Duration, now func() time.Time) *ThrottledLogger {
	if now == nil {
		now = time.Now
	}
	return &ThrottledLogger{
		Logger:     OrNop(l),
		every:      every,
		now:        now,
		last:       make(map[string]time.Time),
		suppressed: make(map[string]int),
	}
}

func (t *ThrottledLogger) Warnf(format string, args ...any) {
	if suffix, ok := t.admit(format); ok {
		t.Logger.Warnf(format+suffix, args...)
	}
}

func (t *ThrottledLogger) Errorf(format string, args ...any) {
	if suffix, ok := t.admit(format); ok {
		t.Logger.Errorf(format+suffix, args...)
	}
}

func (t *ThrottledLogger) admit(format string) (suffix string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	if last, seen := t.last[format]; seen && now.Sub(last) < t.every {
		t.suppressed[format]++
		return "", false
	}
	t.last[format] = now
	if n := t.suppressed[format]; n > 0 {
		delete(t.suppressed, format)
		suffix = fmt.Sprintf(" (%d similar suppressed)", n)
	}
	return suffix, true
}
