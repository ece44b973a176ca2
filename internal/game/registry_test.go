package game

import (
	"net"
	"testing"
)

func pipeConn(t *testing.T) net.Conn {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	return server
}

func TestRegistry_AcquireAssignsMonotonicIDs(t *testing.T) {
	reg := NewRegistry()

	a, err := reg.Acquire(pipeConn(t), nil)
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	b, err := reg.Acquire(pipeConn(t), nil)
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if a.ID != 1 || b.ID != 2 {
		t.Errorf("ids = %d, %d, want 1, 2", a.ID, b.ID)
	}

	// Ids are never reused, even when a slot is.
	reg.Release(a)
	c, err := reg.Acquire(pipeConn(t), nil)
	if err != nil {
		t.Fatalf("Acquire() after release error: %v", err)
	}
	if c.ID != 3 {
		t.Errorf("reacquired slot id = %d, want 3", c.ID)
	}
	if c.slot != a.slot {
		t.Errorf("new player got slot %d, want freed slot %d", c.slot, a.slot)
	}
}

func TestRegistry_CapacityExhaustion(t *testing.T) {
	reg := NewRegistry()

	for i := 0; i < MAX_PLAYERS; i++ {
		if _, err := reg.Acquire(pipeConn(t), nil); err != nil {
			t.Fatalf("Acquire() %d error: %v", i, err)
		}
	}
	if reg.Live() != MAX_PLAYERS {
		t.Fatalf("Live() = %d, want %d", reg.Live(), MAX_PLAYERS)
	}

	if _, err := reg.Acquire(pipeConn(t), nil); err != ErrServerFull {
		t.Errorf("Acquire() over capacity error = %v, want ErrServerFull", err)
	}
}

func TestRegistry_ReleaseIdempotent(t *testing.T) {
	reg := NewRegistry()

	p, err := reg.Acquire(pipeConn(t), nil)
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if p.Released() {
		t.Fatal("fresh player reports released")
	}

	reg.Release(p)
	if !p.Released() {
		t.Error("Released() = false after Release")
	}
	if reg.Live() != 0 {
		t.Fatalf("Live() = %d after release, want 0", reg.Live())
	}

	// Second release must leave the registry unchanged.
	reg.Release(p)
	if reg.Live() != 0 {
		t.Errorf("Live() = %d after double release, want 0", reg.Live())
	}
	reg.Release(nil) // also a no-op
}

func TestRegistry_SnapshotSkipsReleased(t *testing.T) {
	reg := NewRegistry()

	a, _ := reg.Acquire(pipeConn(t), nil)
	b, _ := reg.Acquire(pipeConn(t), nil)
	reg.Release(a)

	snap := reg.Snapshot()
	if len(snap) != 1 || snap[0] != b {
		t.Errorf("Snapshot() = %v players, want only player %d", len(snap), b.ID)
	}
}

func TestRegistry_TimeRemaining(t *testing.T) {
	reg := NewRegistry()

	if reg.TimeRemaining() != 0 {
		t.Errorf("TimeRemaining() = %d, want 0", reg.TimeRemaining())
	}
	reg.SetTimeRemaining(7)
	if reg.TimeRemaining() != 7 {
		t.Errorf("TimeRemaining() = %d, want 7", reg.TimeRemaining())
	}
}
