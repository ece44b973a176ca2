// Package wire implements the fixed-record protocol spoken between the
// crash server and its clients. Every message after the nickname bootstrap
// is exactly MessageSize bytes: an explicit little-endian encoding of five
// fields, so both ends agree on the layout without sharing a struct.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	// TagLen is the on-wire size of the type field: up to 10 ASCII bytes
	// plus a terminating NUL.
	TagLen = 11

	// MessageSize is the exact number of bytes of one encoded Message.
	// int32 + float32 + tag + float32 + float32.
	MessageSize = 4 + 4 + TagLen + 4 + 4

	// MaxNicknameLen is the maximum size of the nickname bootstrap
	// message, terminating NUL included.
	MaxNicknameLen = 13

	// BroadcastID marks a message not attributable to a single player.
	BroadcastID int32 = -1

	// Unused fills numeric fields that carry no meaning for a given tag.
	Unused float32 = -1.0
)

// Closed tag namespace. Anything else is a protocol violation and is
// silently dropped by the receiver.
const (
	TagStart      = "start"      // S->C: seconds remaining in the betting window
	TagClosed     = "closed"     // S->C: betting window closed
	TagMultiplier = "multiplier" // S->C: current flight multiplier
	TagExplode    = "explode"    // S->C: explosion multiplier
	TagPayout     = "payout"     // S->C targeted: multiplier at cashout
	TagProfit     = "profit"     // S->C: updated player or house profit
	TagBye        = "bye"        // both: quit / server shutdown
	TagBet        = "bet"        // C->S: stake amount
	TagCashout    = "cashout"    // C->S: cash out now
)

var (
	ErrTagTooLong      = errors.New("wire: message tag exceeds 10 bytes")
	ErrNicknameEmpty   = errors.New("wire: empty nickname")
	ErrNicknameTooLong = fmt.Errorf("wire: nickname exceeds %d bytes", MaxNicknameLen-1)
)

// Message is the single record that carries every round event in both
// directions. Value semantics depend on Type.
type Message struct {
	PlayerID     int32
	Value        float32
	Type         string
	PlayerProfit float32
	HouseProfit  float32
}

// Encode serializes m into its fixed little-endian layout.
func (m Message) Encode() ([]byte, error) {
	if len(m.Type) >= TagLen {
		return nil, ErrTagTooLong
	}
	buf := make([]byte, MessageSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(m.PlayerID))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(m.Value))
	copy(buf[8:8+TagLen], m.Type) // remainder stays NUL
	binary.LittleEndian.PutUint32(buf[19:23], math.Float32bits(m.PlayerProfit))
	binary.LittleEndian.PutUint32(buf[23:27], math.Float32bits(m.HouseProfit))
	return buf, nil
}

// Decode parses one fixed record. buf must hold at least MessageSize bytes.
func Decode(buf []byte) (Message, error) {
	if len(buf) < MessageSize {
		return Message{}, fmt.Errorf("wire: short record: %d of %d bytes", len(buf), MessageSize)
	}
	tag := buf[8 : 8+TagLen]
	end := 0
	for end < TagLen && tag[end] != 0 {
		end++
	}
	return Message{
		PlayerID:     int32(binary.LittleEndian.Uint32(buf[0:4])),
		Value:        math.Float32frombits(binary.LittleEndian.Uint32(buf[4:8])),
		Type:         string(tag[:end]),
		PlayerProfit: math.Float32frombits(binary.LittleEndian.Uint32(buf[19:23])),
		HouseProfit:  math.Float32frombits(binary.LittleEndian.Uint32(buf[23:27])),
	}, nil
}

// WriteMessage encodes m and writes the full record to w.
func WriteMessage(w io.Writer, m Message) error {
	buf, err := m.Encode()
	if err != nil {
		return err
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("wire: write %s: %w", m.Type, err)
	}
	return nil
}

// ReadMessage reads exactly one record from r. A partial read is an error;
// io.EOF on a clean record boundary is returned as-is so callers can tell
// an orderly close from a truncated stream.
func ReadMessage(r io.Reader) (Message, error) {
	buf := make([]byte, MessageSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF {
			return Message{}, io.EOF
		}
		return Message{}, fmt.Errorf("wire: read record: %w", err)
	}
	return Decode(buf)
}

// WriteNickname sends the one-off nickname bootstrap: the raw name bytes
// followed by a NUL, at most MaxNicknameLen bytes in total.
func WriteNickname(w io.Writer, name string) error {
	if name == "" {
		return ErrNicknameEmpty
	}
	if len(name) >= MaxNicknameLen {
		return ErrNicknameTooLong
	}
	buf := append([]byte(name), 0)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("wire: write nickname: %w", err)
	}
	return nil
}

// ReadNickname consumes the nickname bootstrap from r, stopping at the
// NUL terminator. It reads byte by byte so it never swallows the first
// fixed record that follows on the same stream.
func ReadNickname(r io.Reader) (string, error) {
	var name []byte
	var b [1]byte
	for i := 0; i < MaxNicknameLen; i++ {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			if err == io.EOF && i == 0 {
				return "", io.EOF
			}
			return "", fmt.Errorf("wire: read nickname: %w", err)
		}
		if b[0] == 0 {
			if len(name) == 0 {
				return "", ErrNicknameEmpty
			}
			return string(name), nil
		}
		name = append(name, b[0])
	}
	return "", ErrNicknameTooLong
}
