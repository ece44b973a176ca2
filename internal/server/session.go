package server

import (
	"errors"
	"io"
	"log"
	"net"

	"crashd/internal/game"
	"crashd/internal/wire"
)

// handleSession runs one player's ingress loop: nickname bootstrap, a
// phase-priming join, then fixed records until the stream ends. All
// state changes go through engine intents; the session never touches
// round state and never sends flight ticks itself.
func (s *Server) handleSession(p *game.Player, conn net.Conn) {
	// Teardown is unconditional and idempotent, whichever branch exits.
	defer s.engine.Leave(p)

	name, err := wire.ReadNickname(conn)
	if err != nil {
		if err != io.EOF {
			log.Printf("[SERVER] Player %d nickname: %v", p.ID, err)
		}
		return
	}
	p.Name = name
	log.Printf("[SERVER] Player %d nickname: %s connected", p.ID, name)

	s.engine.Join(p)

	for {
		m, err := wire.ReadMessage(conn)
		if err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) {
				log.Printf("[SERVER] Player %d read: %v", p.ID, err)
			}
			log.Printf("[SERVER] Player %d nickname: %s disconnected", p.ID, p.Name)
			return
		}

		switch m.Type {
		case wire.TagBet:
			s.engine.Bet(p, float64(m.Value))
		case wire.TagCashout:
			s.engine.Cashout(p)
		case wire.TagBye:
			log.Printf("[SERVER] Player %d nickname: %s disconnected", p.ID, p.Name)
			return
		default:
			// Unknown tags are a protocol violation; drop silently.
		}
	}
}
