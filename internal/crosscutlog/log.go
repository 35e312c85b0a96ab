// Copyright 2026 The Crosscut Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package crosscutlog is a small structured logger: leveled log records
// (a message plus key/value Labels) written to an io.Writer. It is used
// by the compiler driver, the dbgrpc debugger bridge, and cmd/crosscut to
// report non-effect-worthy diagnostics — things the embedder doesn't need to
// suspend on, just know about ("replaced fragment X with Y", "cluster
// {f,g} compiled").
package crosscutlog

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Level orders a log record's severity, the way internal/event's
// exporters gate on a minimum severity before formatting anything.
type Level int

const (
	Debug Level = iota
	Info
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// Label is one key/value pair attached to a record, printed on its own
// indented line the way internal/event/export.Printer lays out a label
// per line after the message.
type Label struct {
	Key   string
	Value any
}

// Logger writes leveled records to an underlying io.Writer. Its zero
// value has no writer and discards every record; use New to set a writer
// and a threshold. A Logger is safe for concurrent use, since the
// compiler pipeline and the debugger bridge both log from whatever
// goroutine is driving them.
type Logger struct {
	mu  sync.Mutex
	w   io.Writer
	min Level
	now func() time.Time
}

// New returns a Logger writing records at or above min to w. A nil w
// discards every record.
func New(w io.Writer, min Level) *Logger {
	return &Logger{w: w, min: min, now: time.Now}
}

// Discard is a Logger that drops every record, for callers (tests, a
// library user with no interest in diagnostics) that don't want to wire
// up an io.Writer.
var Discard = New(nil, Error+1)

// Log writes one record at level, if it meets the Logger's threshold.
func (l *Logger) Log(level Level, msg string, labels ...Label) {
	if l == nil || l.w == nil || level < l.min {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now
	if l.now != nil {
		now = l.now
	}
	fmt.Fprintf(l.w, "%s %s %s", now().Format("2006/01/02 15:04:05"), level, msg)
	for _, lb := range labels {
		fmt.Fprintf(l.w, "\n\t%s=%v", lb.Key, lb.Value)
	}
	fmt.Fprintln(l.w)
}

func (l *Logger) Debugf(msg string, labels ...Label)   { l.Log(Debug, msg, labels...) }
func (l *Logger) Infof(msg string, labels ...Label)    { l.Log(Info, msg, labels...) }
func (l *Logger) Warningf(msg string, labels ...Label) { l.Log(Warning, msg, labels...) }
func (l *Logger) Errorf(msg string, labels ...Label)   { l.Log(Error, msg, labels...) }
