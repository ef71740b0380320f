package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playpool/billiards/internal/api"
	"github.com/playpool/billiards/internal/config"
	"github.com/playpool/billiards/internal/database"
	"github.com/playpool/billiards/internal/game"
	"github.com/playpool/billiards/internal/migrations"
	"github.com/playpool/billiards/internal/redis"
	"github.com/playpool/billiards/internal/ws"
)

func main() {
	// Initialize configuration (.env is loaded by config.Load)
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Shot journal (optional)
	var db *sqlx.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if cfg.MigrateOnStart {
			log.Println("[MIGRATE] Running DB migrations on startup...")
			if err := migrations.RunMigrations(cfg.DatabaseURL, "migrations"); err != nil {
				log.Fatalf("Failed to run migrations: %v", err)
			}
		}
	} else {
		log.Println("[DB] DATABASE_URL not set; shot journal disabled")
	}
	journal := game.NewShotJournal(db)

	// Table manager and frame stream hub
	gm := game.NewTableManager(cfg)
	gm.Start(ctx)

	hub := ws.NewHub()
	go hub.Run(ctx.Done())
	gm.AddSink(hub)
	gm.AddSink(journal)

	// Event fan-out through Redis when configured, straight to the hub otherwise
	if cfg.RedisURL != "" {
		rdb, err := redis.Connect(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()

		gm.AddSink(game.NewEventPublisher(rdb))
		ws.StartTableEventSubscriber(ctx, rdb, hub)
	} else {
		log.Println("[REDIS] REDIS_URL not set; table events go straight to local watchers")
		gm.AddSink(hub.LocalRelay())
	}

	// Close tables nobody is playing on
	game.StartIdleWorker(ctx, gm, cfg)

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	api.SetupRoutes(router, gm, journal, hub, cfg)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{Addr: ":" + port, Handler: router}

	go func() {
		log.Printf("Starting billiards table server on port %s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	for _, t := range gm.Tables() {
		gm.CloseTable(t.ID, game.StatusCancelled)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
