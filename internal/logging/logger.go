// Package logging provides the leveled logging interface used throughout
// driftdb. It deliberately has no Fatalf: driftdb's fatal conditions are
// invariant-violation panics, not a logged-then-continue failure mode.
//
// Log format: YYYY/MM/DD HH:MM:SS LEVEL [component] message
package logging

import (
	"fmt"
	"io"
	"log"
)

// Level represents the logging level.
type Level int

const (
	// LevelError logs only errors.
	LevelError Level = iota
	// LevelWarn logs warnings and errors.
	LevelWarn
	// LevelInfo logs info, warnings, and errors.
	LevelInfo
	// LevelDebug logs everything including debug messages.
	LevelDebug
)

// Logger is the interface driftdb components log through.
type Logger interface {
	Errorf(format string, args ...any)
	Warnf(format string, args ...any)
	Infof(format string, args ...any)
	Debugf(format string, args ...any)
}

// stdLogger is the default Logger, backed by the standard library's log
// package with a level filter and a component prefix.
type stdLogger struct {
	level     Level
	component string
	logger    *log.Logger
}

// New returns a Logger that writes lines at level and above to w, tagged
// with [component].
func New(w io.Writer, level Level, component string) Logger {
	return &stdLogger{
		level:     level,
		component: component,
		logger:    log.New(w, "", log.Ldate|log.Ltime),
	}
}

func (l *stdLogger) log(level Level, tag, format string, args ...any) {
	if level > l.level {
		return
	}
	l.logger.Printf("%s [%s] %s", tag, l.component, fmt.Sprintf(format, args...))
}

func (l *stdLogger) Errorf(format string, args ...any) { l.log(LevelError, "ERROR", format, args...) }
func (l *stdLogger) Warnf(format string, args ...any)  { l.log(LevelWarn, "WARN", format, args...) }
func (l *stdLogger) Infof(format string, args ...any)  { l.log(LevelInfo, "INFO", format, args...) }
func (l *stdLogger) Debugf(format string, args ...any) { l.log(LevelDebug, "DEBUG", format, args...) }

// Discard is a Logger that drops every message. It is the default logger
// for PartitionWindows when none is supplied.
var Discard Logger = discardLogger{}

type discardLogger struct{}

func (discardLogger) Errorf(string, ...any) {}
func (discardLogger) Warnf(string, ...any)  {}
func (discardLogger) Infof(string, ...any)  {}
func (discardLogger) Debugf(string, ...any) {}
