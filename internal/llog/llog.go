// Package llog implements a simple logger on top of logrus with two log levels.
package llog

import (
	"io"

	"github.com/sirupsen/logrus"
)

// A Logger passes info-level output straight through to the underlying logrus logger and emits debug
// output only if it was created with debug set.
type Logger struct {
	logrus.FieldLogger
	dbg bool
}

// NewLogger wraps logger. Debug output is still subject to logger's own level.
func NewLogger(logger logrus.FieldLogger, debug bool) *Logger {
	return &Logger{logger, debug}
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Logger{l, false}
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.dbg {
		l.FieldLogger.Debugf(format, args...)
	}
}

func (l *Logger) Debugln(args ...interface{}) {
	if l.dbg {
		l.FieldLogger.Debugln(args...)
	}
}

// Debugging reports whether debug output is enabled.
func (l *Logger) Debugging() bool { return l.dbg }
