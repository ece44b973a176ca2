package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"crashd/internal/cache"
	"crashd/internal/database"
	"crashd/internal/game"
	"crashd/internal/server"
)

func usage() {
	fmt.Printf("usage: %s <v4|v6> <server port>\n", os.Args[0])
	fmt.Printf("example: %s v4 51511\n", os.Args[0])
	os.Exit(1)
}

func main() {
	if len(os.Args) < 3 {
		usage()
	}
	family, port := os.Args[1], os.Args[2]

	registry := game.NewRegistry()
	hub := game.NewHub(registry)
	engine := game.NewEngine(registry, hub)

	// Redis and Postgres are optional round-history sinks; the game runs
	// fine in memory only.
	cacheSvc := cache.New()
	if cacheSvc != nil {
		engine.AddRecorder(cacheSvc)
	}
	dbSvc := database.New()
	if dbSvc != nil {
		engine.AddRecorder(dbSvc)
	}

	srv, err := server.New(family, port, registry, engine)
	if err != nil {
		fmt.Println(err)
		usage()
	}

	go engine.Run()

	var status *server.StatusServer
	if statusPort := os.Getenv("STATUS_PORT"); statusPort != "" {
		status = server.NewStatus(engine, hub, cacheSvc, dbSvc)
		go func() {
			if err := status.Listen(":" + statusPort); err != nil {
				log.Printf("[STATUS] %v", err)
			}
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Println("[SERVER] Shutting down...")
		engine.Stop()
		srv.Close()
		if status != nil {
			status.Shutdown()
		}
		if cacheSvc != nil {
			cacheSvc.Close()
		}
		if dbSvc != nil {
			dbSvc.Close()
		}
	}()

	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("[SERVER] %v", err)
	}
}
