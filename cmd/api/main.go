package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xelth-com/loci/internal/broadcast"
	"github.com/xelth-com/loci/internal/buildinfo"
	"github.com/xelth-com/loci/internal/config"
	"github.com/xelth-com/loci/internal/content"
	"github.com/xelth-com/loci/internal/database"
	"github.com/xelth-com/loci/internal/geocoding"
	"github.com/xelth-com/loci/internal/handlers"
	"github.com/xelth-com/loci/internal/loci"
	"github.com/xelth-com/loci/internal/models"
	"github.com/xelth-com/loci/internal/storage"
	"github.com/xelth-com/loci/internal/websocket"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 2. Initialize database (Detects Embedded vs External automatically)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// 3. Auto-Migrate Schema
	log.Println("🚀 Synchronizing database schema...")
	if err := database.Migrate(db.DB); err != nil {
		log.Printf("⚠️ Migration warning: %v\n", err)
	} else {
		log.Println("✅ Schema synchronized successfully")
	}

	// 4. Host object kinds
	registry := content.NewRegistry()
	if err := registry.Register("device", content.GormResolver[models.Device](db.DB)); err != nil {
		log.Fatalf("Failed to register content kind: %v", err)
	}

	// 5. Floorplan assets
	assets, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to open asset store: %v", err)
	}
	media, _ := assets.(*storage.FileStore)

	// 6. Live location broadcast: local hub, optionally shared over Redis
	hub := websocket.NewHub()
	go hub.Run(ctx)

	var publisher broadcast.Publisher = hub
	if rdb := broadcast.OpenRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); rdb != nil {
		relay := broadcast.NewRedisRelay(rdb, hub)
		go relay.Run(ctx)
		publisher = relay
		defer rdb.Close()
		log.Printf("✅ Broadcast: Redis relay on %s", cfg.Redis.Addr)
	}
	svc := loci.NewService(db.DB, assets, broadcast.NewBroadcaster(publisher), registry)

	// 7. Geocoding
	geocoder, err := geocoding.New(cfg.Geocode)
	if err != nil {
		log.Fatalf("Failed to configure geocoder: %v", err)
	}
	log.Printf("🌍 Geocoding via %s", geocoder.Provider().Name())
	if !cfg.Debug && cfg.Geocode.Check {
		checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := geocoding.HealthCheck(checkCtx, geocoder, cfg.Geocode.StrictTest)
		cancel()
		if err != nil {
			log.Fatalf("Geocoder check failed: %v", err)
		}
	}

	// 8. Set up HTTP router
	router := handlers.NewRouter(handlers.Options{
		DB:       db.DB,
		Config:   cfg,
		Service:  svc,
		Geocoder: geocoder,
		Gateway:  websocket.NewGateway(hub, websocket.GormDirectory{DB: db.DB}, cfg.JWTSecret),
		Media:    media,
	})

	// 9. Start server with graceful shutdown
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Channel to listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		log.Printf("🚀 loci %s starting on port %s", buildinfo.String(), cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	sig := <-shutdown
	log.Printf("\n⚠️  Received signal: %v. Shutting down gracefully...\n", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// Stops the hub (closing every subscriber) and the Redis relay
	stop()

	// Close database (this also stops embedded PostgreSQL)
	log.Println("🛑 Closing database connection...")
	if err := db.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}
