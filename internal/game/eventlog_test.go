package game

import (
	"bytes"
	"strings"
	"testing"

	"crashd/internal/wire"
)

func TestEventLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	events := NewEventLogger(&buf)

	events.Log(wire.TagStart, wire.BroadcastID, Count("N", 3), Num("house_profit", -20))
	events.Log(wire.TagBet, 7, Num("bet", 100))
	events.Log(wire.TagPayout, 7, Num("payout", 120.456))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}

	if lines[0] != "event=start | id=* | N=3 | house_profit=-20.00" {
		t.Errorf("broadcast line = %q", lines[0])
	}
	if lines[1] != "event=bet | id=7 | bet=100.00" {
		t.Errorf("bet line = %q", lines[1])
	}
	if lines[2] != "event=payout | id=7 | payout=120.46" {
		t.Errorf("payout line = %q", lines[2])
	}
}

func TestEventLogger_NilSafe(t *testing.T) {
	var events *EventLogger
	events.Log(wire.TagStart, wire.BroadcastID) // must not panic
}

func TestEventLogger_NoFields(t *testing.T) {
	var buf bytes.Buffer
	NewEventLogger(&buf).Log(wire.TagBye, 4)

	if got := strings.TrimSpace(buf.String()); got != "event=bye | id=4" {
		t.Errorf("line = %q, want %q", got, "event=bye | id=4")
	}
}
