package wire

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"strings"
	"testing"
)

func TestMessage_EncodeLayout(t *testing.T) {
	m := Message{
		PlayerID:     7,
		Value:        1.25,
		Type:         TagMultiplier,
		PlayerProfit: -3.5,
		HouseProfit:  12.0,
	}

	buf, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if len(buf) != MessageSize {
		t.Fatalf("Encode() length = %d, want %d", len(buf), MessageSize)
	}

	if got := int32(binary.LittleEndian.Uint32(buf[0:4])); got != 7 {
		t.Errorf("player_id bytes = %d, want 7", got)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[4:8])); got != 1.25 {
		t.Errorf("value bytes = %v, want 1.25", got)
	}
	if !bytes.Equal(buf[8:8+len(TagMultiplier)], []byte(TagMultiplier)) {
		t.Errorf("tag bytes = %q, want %q", buf[8:8+TagLen], TagMultiplier)
	}
	for i := 8 + len(TagMultiplier); i < 8+TagLen; i++ {
		if buf[i] != 0 {
			t.Errorf("tag padding byte %d = %#x, want NUL", i, buf[i])
		}
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[23:27])); got != 12.0 {
		t.Errorf("house_profit bytes = %v, want 12.0", got)
	}
}

func TestMessage_RoundTrip(t *testing.T) {
	var stream bytes.Buffer
	in := Message{PlayerID: BroadcastID, Value: 10, Type: TagStart, PlayerProfit: Unused, HouseProfit: -20}

	if err := WriteMessage(&stream, in); err != nil {
		t.Fatalf("WriteMessage() error: %v", err)
	}
	out, err := ReadMessage(&stream)
	if err != nil {
		t.Fatalf("ReadMessage() error: %v", err)
	}
	if out != in {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
}

func TestMessage_TagTooLong(t *testing.T) {
	_, err := Message{Type: "multipliers"}.Encode()
	if err != ErrTagTooLong {
		t.Errorf("Encode() error = %v, want ErrTagTooLong", err)
	}
}

func TestReadMessage_ShortStream(t *testing.T) {
	t.Run("clean EOF", func(t *testing.T) {
		if _, err := ReadMessage(bytes.NewReader(nil)); err != io.EOF {
			t.Errorf("ReadMessage() error = %v, want io.EOF", err)
		}
	})

	t.Run("truncated record", func(t *testing.T) {
		_, err := ReadMessage(bytes.NewReader(make([]byte, MessageSize-1)))
		if err == nil || err == io.EOF {
			t.Errorf("ReadMessage() error = %v, want truncation error", err)
		}
	})
}

func TestNickname_DoesNotSwallowNextRecord(t *testing.T) {
	var stream bytes.Buffer
	if err := WriteNickname(&stream, "ace"); err != nil {
		t.Fatalf("WriteNickname() error: %v", err)
	}
	if err := WriteMessage(&stream, Message{Type: TagBet, Value: 50}); err != nil {
		t.Fatalf("WriteMessage() error: %v", err)
	}

	name, err := ReadNickname(&stream)
	if err != nil {
		t.Fatalf("ReadNickname() error: %v", err)
	}
	if name != "ace" {
		t.Errorf("ReadNickname() = %q, want %q", name, "ace")
	}

	m, err := ReadMessage(&stream)
	if err != nil {
		t.Fatalf("ReadMessage() after nickname error: %v", err)
	}
	if m.Type != TagBet || m.Value != 50 {
		t.Errorf("record after nickname = %+v, want bet/50", m)
	}
}

func TestNickname_Limits(t *testing.T) {
	t.Run("write rejects oversized", func(t *testing.T) {
		err := WriteNickname(io.Discard, strings.Repeat("x", MaxNicknameLen))
		if err != ErrNicknameTooLong {
			t.Errorf("WriteNickname() error = %v, want ErrNicknameTooLong", err)
		}
	})

	t.Run("write rejects empty", func(t *testing.T) {
		if err := WriteNickname(io.Discard, ""); err != ErrNicknameEmpty {
			t.Errorf("WriteNickname() error = %v, want ErrNicknameEmpty", err)
		}
	})

	t.Run("read rejects unterminated", func(t *testing.T) {
		raw := bytes.Repeat([]byte("y"), MaxNicknameLen)
		if _, err := ReadNickname(bytes.NewReader(raw)); err != ErrNicknameTooLong {
			t.Errorf("ReadNickname() error = %v, want ErrNicknameTooLong", err)
		}
	})

	t.Run("read accepts max length", func(t *testing.T) {
		raw := append(bytes.Repeat([]byte("y"), MaxNicknameLen-1), 0)
		name, err := ReadNickname(bytes.NewReader(raw))
		if err != nil {
			t.Fatalf("ReadNickname() error: %v", err)
		}
		if len(name) != MaxNicknameLen-1 {
			t.Errorf("ReadNickname() length = %d, want %d", len(name), MaxNicknameLen-1)
		}
	})
}
