package game

import (
	"fmt"
	"io"
	"log"
	"strings"

	"crashd/internal/wire"
)

// EventLogger emits the server's structured round log: one line per
// event, `event=<tag> | id=<n>|*` followed by whichever fields apply.
// It writes through a bare log.Logger so lines carry no prefix or
// timestamp and stay grep-friendly.
type EventLogger struct {
	l *log.Logger
}

func NewEventLogger(w io.Writer) *EventLogger {
	return &EventLogger{l: log.New(w, "", 0)}
}

// Field is one key=value datum on an event line.
type Field struct {
	Key   string
	Value string
}

// Num formats a monetary or multiplier field with two decimals.
func Num(key string, v float64) Field {
	return Field{Key: key, Value: fmt.Sprintf("%.2f", v)}
}

// Count formats an integer field.
func Count(key string, n int) Field {
	return Field{Key: key, Value: fmt.Sprintf("%d", n)}
}

// Log writes one event line. Pass wire.BroadcastID for events not
// attributable to a single player; those log `id=*`.
func (e *EventLogger) Log(tag string, playerID int32, fields ...Field) {
	if e == nil || e.l == nil {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "event=%s", tag)
	if playerID == wire.BroadcastID {
		b.WriteString(" | id=*")
	} else {
		fmt.Fprintf(&b, " | id=%d", playerID)
	}
	for _, f := range fields {
		fmt.Fprintf(&b, " | %s=%s", f.Key, f.Value)
	}
	e.l.Print(b.String())
}
