// Package server owns the transport edge of the crash game: the TCP
// listener that admits players into the registry, the per-connection
// session loop, and the optional HTTP status surface.
package server

import (
	"errors"
	"fmt"
	"log"
	"net"
	"sync"

	"crashd/internal/game"
)

// Server accepts player connections and hands each one to a detached
// session goroutine. Round logic lives entirely in the engine; the
// server only translates the socket into intents.
type Server struct {
	network  string // "tcp4" or "tcp6"
	addr     string
	registry *game.Registry
	engine   *game.Engine

	mu     sync.Mutex
	ln     net.Listener
	closed bool
}

// New builds a server for the given address family. family must be "v4"
// or "v6", matching the CLI contract.
func New(family, port string, registry *game.Registry, engine *game.Engine) (*Server, error) {
	var network string
	switch family {
	case "v4":
		network = "tcp4"
	case "v6":
		network = "tcp6"
	default:
		return nil, fmt.Errorf("server: unknown address family %q (want v4 or v6)", family)
	}
	return &Server{
		network:  network,
		addr:     ":" + port,
		registry: registry,
		engine:   engine,
	}, nil
}

// ListenAndServe binds the listener and runs the accept loop until Close.
// Connections over capacity are rejected with an immediate close, before
// any protocol exchange.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen(s.network, s.addr)
	if err != nil {
		return fmt.Errorf("server: listen %s %s: %w", s.network, s.addr, err)
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return nil
	}
	s.ln = ln
	s.mu.Unlock()

	log.Printf("[SERVER] Listening on %s (%s), capacity %d", ln.Addr(), s.network, game.MAX_PLAYERS)
	return s.Serve(ln)
}

// Serve runs the accept loop on an existing listener. Split out so tests
// can bind their own.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isClosed() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("server: accept: %w", err)
		}

		p, err := s.registry.Acquire(conn, func(dead *game.Player) {
			// Writer hit a dead socket; let the engine settle and free it.
			s.engine.Leave(dead)
		})
		if err != nil {
			log.Printf("[SERVER] Max players reached. Connection from %s rejected", conn.RemoteAddr())
			conn.Close()
			continue
		}

		log.Printf("[SERVER] Connection from %s, assigned player_id: %d", conn.RemoteAddr(), p.ID)
		go s.handleSession(p, conn)
	}
}

// Close stops the accept loop. In-flight sessions end on their own when
// their sockets close.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.ln != nil {
		return s.ln.Close()
	}
	return nil
}

// Addr returns the bound listener address, or nil before bind.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
