package game

import (
	"sync"

	"crashd/internal/wire"
)

// Hub fans engine events out to connected players. Every send goes
// through the target's bounded outbound queue, so the engine never holds
// a lock across a socket write. Lifecycle events (start, closed, explode,
// payout, profit, bye) are delivered or the slot is marked dead; flight
// ticks are best-effort and may be dropped under backpressure.
type Hub struct {
	registry *Registry

	mu        sync.RWMutex
	observers map[chan wire.Message]struct{}
}

func NewHub(registry *Registry) *Hub {
	return &Hub{
		registry:  registry,
		observers: make(map[chan wire.Message]struct{}),
	}
}

// Broadcast delivers a lifecycle event to every occupied slot.
func (h *Hub) Broadcast(m wire.Message) {
	for _, p := range h.registry.Snapshot() {
		p.send(m)
	}
	h.observe(m)
}

// Tick delivers a multiplier update to every player keep selects. A full
// queue drops its oldest tick; the next update supersedes anyway.
func (h *Hub) Tick(m wire.Message, keep func(*Player) bool) {
	for _, p := range h.registry.Snapshot() {
		if keep == nil || keep(p) {
			p.trySend(m)
		}
	}
	h.observe(m)
}

// Send delivers a targeted lifecycle event to a single player. It
// reports false when the slot is already released.
func (h *Hub) Send(p *Player, m wire.Message) bool {
	ok := p.send(m)
	h.observe(m)
	return ok
}

// Subscribe attaches a read-only observer of every outbound event, used
// by the status server's spectator feed. The returned channel is never
// closed by the hub; call the cancel func to detach.
func (h *Hub) Subscribe() (<-chan wire.Message, func()) {
	ch := make(chan wire.Message, OUTBOUND_QUEUE)
	h.mu.Lock()
	h.observers[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.observers, ch)
		h.mu.Unlock()
	}
	return ch, cancel
}

func (h *Hub) observe(m wire.Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.observers {
		select {
		case ch <- m:
		default:
			// Spectators are strictly best-effort.
		}
	}
}

// ObserverCount reports attached spectator feeds.
func (h *Hub) ObserverCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := len(h.observers)
	return n
}
