package server

import (
	"log"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"crashd/internal/cache"
	"crashd/internal/database"
	"crashd/internal/game"
)

// StatusServer is the read-only ops surface next to the game port:
// health of the backing stores, a JSON snapshot of the live round, and a
// websocket feed mirroring engine broadcasts for spectators/dashboards.
// It never accepts bets; the game speaks only the TCP record protocol.
type StatusServer struct {
	*fiber.App

	engine *game.Engine
	hub    *game.Hub
	cache  cache.Service
	db     database.Service
}

func NewStatus(engine *game.Engine, hub *game.Hub, cacheSvc cache.Service, dbSvc database.Service) *StatusServer {
	s := &StatusServer{
		App: fiber.New(fiber.Config{
			ServerHeader: "crashd",
			AppName:      "crashd",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		}),
		engine: engine,
		hub:    hub,
		cache:  cacheSvc,
		db:     dbSvc,
	}

	s.App.Use(recover.New())
	s.registerRoutes()
	return s
}

func (s *StatusServer) registerRoutes() {
	s.App.Get("/health", s.healthHandler)
	s.App.Get("/round", s.roundHandler)
	s.App.Get("/rounds", s.recentRoundsHandler)
	s.App.Get("/ws/feed", websocket.New(s.feedHandler))
}

func (s *StatusServer) healthHandler(c *fiber.Ctx) error {
	health := fiber.Map{
		"game": fiber.Map{
			"status":     "running",
			"players":    s.engine.Snapshot().Players,
			"spectators": s.hub.ObserverCount(),
		},
	}
	if s.cache != nil {
		health["cache"] = s.cache.Health()
	}
	if s.db != nil {
		health["database"] = s.db.Health()
	}
	return c.JSON(health)
}

func (s *StatusServer) roundHandler(c *fiber.Ctx) error {
	return c.JSON(s.engine.Snapshot())
}

func (s *StatusServer) recentRoundsHandler(c *fiber.Ctx) error {
	if s.db == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "round history not configured",
		})
	}
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	rounds, err := s.db.RecentRounds(c.Context(), limit)
	if err != nil {
		log.Printf("[STATUS] Recent rounds: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load rounds",
		})
	}
	return c.JSON(rounds)
}

// feedHandler streams every outbound engine event as JSON. Spectators
// are best-effort consumers: a slow socket misses ticks, never stalls
// the engine.
func (s *StatusServer) feedHandler(c *websocket.Conn) {
	events, cancel := s.hub.Subscribe()
	defer cancel()
	defer c.Close()

	for m := range events {
		payload := fiber.Map{
			"type":         m.Type,
			"player_id":    m.PlayerID,
			"value":        m.Value,
			"house_profit": m.HouseProfit,
		}
		if err := c.WriteJSON(payload); err != nil {
			return
		}
	}
}
