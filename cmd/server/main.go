package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-seat-reservation/internal/clock"
	"github.com/iliyamo/cinema-seat-reservation/internal/config"
	"github.com/iliyamo/cinema-seat-reservation/internal/database"
	"github.com/iliyamo/cinema-seat-reservation/internal/engine"
	"github.com/iliyamo/cinema-seat-reservation/internal/eventpublisher"
	"github.com/iliyamo/cinema-seat-reservation/internal/idgen"
	"github.com/iliyamo/cinema-seat-reservation/internal/queue"
	"github.com/iliyamo/cinema-seat-reservation/internal/reaper"
	"github.com/iliyamo/cinema-seat-reservation/internal/router"
	"github.com/iliyamo/cinema-seat-reservation/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("info: .env not found; using defaults/env")
	}

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: open failed: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatalf("database: migrate failed: %v", err)
	}

	reaperDB, err := database.OpenReaperHandle(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: reaper handle open failed: %v", err)
	}
	defer reaperDB.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("warning: redis unavailable; rate limiting and caching are disabled")
	}

	publisher := eventpublisher.New(cfg.AMQPURL)

	mainStore := store.New(db)
	reaperStore := store.New(reaperDB)

	eng := engine.New(mainStore, clock.SystemClock{}, idgen.UUIDSource{},
		engine.WithPublisher(publisher),
		engine.WithHoldDurationBounds(cfg.DefaultHoldSeconds, cfg.MinHoldSeconds, cfg.MaxHoldSeconds),
	)
	reaperEngine := engine.New(reaperStore, clock.SystemClock{}, idgen.UUIDSource{},
		engine.WithHoldDurationBounds(cfg.DefaultHoldSeconds, cfg.MinHoldSeconds, cfg.MaxHoldSeconds),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := reaper.New(reaperEngine, cfg.ReaperInterval)
	go r.Run(ctx)

	go func() {
		if err := queue.StartBookingConsumer(cfg.AMQPURL); err != nil {
			log.Printf("booking-consumer: stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e, router.Deps{
		Engine:    eng,
		Store:     mainStore,
		Redis:     rdb,
		Cfg:       cfg,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
	})

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("shutting down")
	cancel() // stop the reaper

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("server: graceful shutdown failed: %v", err)
	}
}
