package game

import (
	"errors"
	"fmt"
	"log"
	"net"
	"sync"

	"crashd/internal/wire"
)

const (
	// MAX_PLAYERS is the fixed capacity of the slot table. Connections
	// beyond this are rejected at accept time.
	MAX_PLAYERS = 10

	// OUTBOUND_QUEUE is the per-client outbound buffer. Multiplier ticks
	// are dropped oldest-first on overflow; lifecycle events never are.
	OUTBOUND_QUEUE = 64
)

// ErrServerFull is returned by Acquire when every slot is occupied.
var ErrServerFull = errors.New("game: max players reached")

// Player is one connected session's slot in the registry. The transport
// fields are guarded by the registry mutex; the round bookkeeping fields
// (betValue, currentProfit, hasBet, hasCashedOut) are owned by the engine
// goroutine and must only be touched there.
type Player struct {
	ID   int32
	Name string

	conn net.Conn
	slot int
	out  chan wire.Message
	quit chan struct{}

	betValue      float64
	currentProfit float64
	hasBet        bool
	hasCashedOut  bool
	released      bool
}

// Profit returns the player's running profit as last settled by the
// engine. Only meaningful from the engine goroutine.
func (p *Player) Profit() float64 { return p.currentProfit }

// Released reports whether the slot has been reclaimed.
func (p *Player) Released() bool {
	select {
	case <-p.quit:
		return true
	default:
		return false
	}
}

// send enqueues a lifecycle message. It blocks while the queue is full
// but gives up as soon as the slot is released, so a dead client can
// never stall the engine indefinitely.
func (p *Player) send(m wire.Message) bool {
	select {
	case p.out <- m:
		return true
	case <-p.quit:
		return false
	}
}

// trySend enqueues a flight tick, dropping the oldest queued message
// when the buffer is full. Ticks are disposable; the next one supersedes.
func (p *Player) trySend(m wire.Message) {
	select {
	case p.out <- m:
	default:
		select {
		case <-p.out:
		default:
		}
		select {
		case p.out <- m:
		case <-p.quit:
		}
	}
}

// writeLoop drains the outbound queue onto the socket. After the first
// write error it keeps draining without writing, so producers blocked on
// the queue are released until the slot is torn down.
func (p *Player) writeLoop(onError func(*Player)) {
	failed := false
	for {
		select {
		case m := <-p.out:
			if failed {
				continue
			}
			if err := wire.WriteMessage(p.conn, m); err != nil {
				failed = true
				if onError != nil {
					onError(p)
				}
			}
		case <-p.quit:
			return
		}
	}
}

// Registry is the fixed-capacity table of active sessions. It hands out
// monotonically increasing player ids that are never reused within a
// process run.
type Registry struct {
	mu            sync.Mutex
	slots         [MAX_PLAYERS]*Player
	live          int
	nextID        int32
	timeRemaining int
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Acquire claims the first free slot for conn and starts its writer.
// onSendError is invoked once, off the engine goroutine, when the slot's
// socket write fails.
func (r *Registry) Acquire(conn net.Conn, onSendError func(*Player)) (*Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.live >= MAX_PLAYERS {
		return nil, ErrServerFull
	}
	for i := 0; i < MAX_PLAYERS; i++ {
		if r.slots[i] != nil {
			continue
		}
		r.nextID++
		p := &Player{
			ID:   r.nextID,
			conn: conn,
			slot: i,
			out:  make(chan wire.Message, OUTBOUND_QUEUE),
			quit: make(chan struct{}),
		}
		r.slots[i] = p
		r.live++
		go p.writeLoop(onSendError)
		return p, nil
	}
	return nil, fmt.Errorf("game: no free slot with %d live players", r.live)
}

// Release frees p's slot, stops its writer and closes the transport.
// Releasing an already-released slot is a no-op.
func (r *Registry) Release(p *Player) {
	if p == nil {
		return
	}
	r.mu.Lock()
	if p.released {
		r.mu.Unlock()
		return
	}
	p.released = true
	r.slots[p.slot] = nil
	r.live--
	close(p.quit)
	r.mu.Unlock()

	if err := p.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.Printf("[GAME] Close player %d: %v", p.ID, err)
	}
}

// Snapshot returns the currently occupied slots for fan-out. The slice is
// the caller's to keep; sends on it go through the per-player queues, so
// no lock is held across socket writes.
func (r *Registry) Snapshot() []*Player {
	r.mu.Lock()
	defer r.mu.Unlock()

	players := make([]*Player, 0, r.live)
	for _, p := range r.slots {
		if p != nil {
			players = append(players, p)
		}
	}
	return players
}

// Live reports the number of occupied slots.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live
}

// SetTimeRemaining publishes the betting countdown for late joiners.
func (r *Registry) SetTimeRemaining(seconds int) {
	r.mu.Lock()
	r.timeRemaining = seconds
	r.mu.Unlock()
}

// TimeRemaining reads the published betting countdown.
func (r *Registry) TimeRemaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timeRemaining
}
