package game

import (
	"testing"
	"time"

	"crashd/internal/wire"
)

// bareP builds a player with a tiny queue and no writer, so queue
// semantics can be observed directly.
func bareP(queueCap int) *Player {
	return &Player{
		ID:   1,
		out:  make(chan wire.Message, queueCap),
		quit: make(chan struct{}),
	}
}

func TestPlayer_TrySendDropsOldest(t *testing.T) {
	p := bareP(2)

	p.trySend(wire.Message{Type: wire.TagMultiplier, Value: 1.01})
	p.trySend(wire.Message{Type: wire.TagMultiplier, Value: 1.02})
	p.trySend(wire.Message{Type: wire.TagMultiplier, Value: 1.03}) // overflows, drops 1.01

	first := <-p.out
	second := <-p.out
	if first.Value != 1.02 || second.Value != 1.03 {
		t.Errorf("queue = %.2f, %.2f, want 1.02, 1.03", first.Value, second.Value)
	}
	select {
	case m := <-p.out:
		t.Errorf("unexpected extra queued message %+v", m)
	default:
	}
}

func TestPlayer_SendAbortsOnRelease(t *testing.T) {
	p := bareP(1)
	close(p.quit)

	done := make(chan bool, 1)
	go func() {
		p.send(wire.Message{Type: wire.TagStart}) // queue may accept one
		done <- p.send(wire.Message{Type: wire.TagStart})
	}()

	select {
	case ok := <-done:
		if ok {
			t.Error("send() = true on released slot with full queue")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("send() blocked on a released slot")
	}
}

func TestHub_BroadcastReachesAllSlots(t *testing.T) {
	reg := NewRegistry()
	hub := NewHub(reg)

	clients := []*testClient{newTestClient(t, reg), newTestClient(t, reg)}

	hub.Broadcast(wire.Message{PlayerID: wire.BroadcastID, Type: wire.TagStart, Value: 10})

	for i, c := range clients {
		m := c.next(t)
		if m.Type != wire.TagStart || m.Value != 10 {
			t.Errorf("client %d got %+v, want start/10", i, m)
		}
	}
}

func TestHub_TickFilters(t *testing.T) {
	reg := NewRegistry()
	hub := NewHub(reg)

	bettor := newTestClient(t, reg)
	spectator := newTestClient(t, reg)
	bettor.p.hasBet = true

	hub.Tick(wire.Message{Type: wire.TagMultiplier, Value: 1.05},
		func(p *Player) bool { return p.hasBet && !p.hasCashedOut })

	if m := bettor.next(t); m.Type != wire.TagMultiplier {
		t.Errorf("bettor got %+v, want multiplier", m)
	}
	spectator.expectNothing(t)
}

func TestHub_Subscribe(t *testing.T) {
	reg := NewRegistry()
	hub := NewHub(reg)

	events, cancel := hub.Subscribe()
	if hub.ObserverCount() != 1 {
		t.Fatalf("ObserverCount() = %d, want 1", hub.ObserverCount())
	}

	hub.Broadcast(wire.Message{Type: wire.TagExplode, Value: 1.5})

	select {
	case m := <-events:
		if m.Type != wire.TagExplode {
			t.Errorf("observer got %+v, want explode", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("observer never received the broadcast")
	}

	cancel()
	if hub.ObserverCount() != 0 {
		t.Errorf("ObserverCount() = %d after cancel, want 0", hub.ObserverCount())
	}
}
