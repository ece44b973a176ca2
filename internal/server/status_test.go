package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"crashd/internal/game"
)

func newTestStatus() *StatusServer {
	reg := game.NewRegistry()
	hub := game.NewHub(reg)
	engine := game.NewEngine(reg, hub)
	return NewStatus(engine, hub, nil, nil)
}

func TestStatusHealth(t *testing.T) {
	s := newTestStatus()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := s.App.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if _, ok := body["game"]; !ok {
		t.Error("health response missing game section")
	}
	// Neither store is configured, so neither reports health.
	if _, ok := body["cache"]; ok {
		t.Error("health response has cache section without a cache")
	}
	if _, ok := body["database"]; ok {
		t.Error("health response has database section without a database")
	}
}

func TestStatusRound(t *testing.T) {
	s := newTestStatus()

	req := httptest.NewRequest(http.MethodGet, "/round", nil)
	resp, err := s.App.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var snap game.RoundSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Players != 0 {
		t.Errorf("players = %d, want 0", snap.Players)
	}
}

func TestStatusRoundsWithoutDatabase(t *testing.T) {
	s := newTestStatus()

	req := httptest.NewRequest(http.MethodGet, "/rounds", nil)
	resp, err := s.App.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}
