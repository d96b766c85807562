package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/caretray/api/internal/catalog"
	"github.com/caretray/api/internal/config"
	"github.com/caretray/api/internal/database"
	"github.com/caretray/api/internal/router"
	"github.com/caretray/api/internal/session"
	"github.com/caretray/api/internal/ws"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg := config.Load()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	queries := database.New(pool)

	// Gateway the kiosk sessions load catalog data through
	gateway := catalog.NewGateway(cfg.CatalogBaseURL, cfg.LoadTimeout)
	sessions := session.NewManager(gateway)

	hub := ws.NewHub()
	go hub.Run()

	r := router.New(cfg, queries, pool, sessions, hub)

	log.Printf("Starting server on :%s", cfg.Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.Fatal(err)
	}
}
