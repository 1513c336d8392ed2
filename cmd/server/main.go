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

	"github.com/leakwatch/leakwatch/internal/config"
	"github.com/leakwatch/leakwatch/internal/database"
	"github.com/leakwatch/leakwatch/internal/handler"
	"github.com/leakwatch/leakwatch/internal/notify"
	"github.com/leakwatch/leakwatch/internal/queue"
	"github.com/leakwatch/leakwatch/internal/repository"
	"github.com/leakwatch/leakwatch/internal/router"
	"github.com/leakwatch/leakwatch/internal/scheduler"
	queue_publisher "github.com/leakwatch/leakwatch/internal/service"
	"github.com/leakwatch/leakwatch/internal/ws"
)

func main() {
	// .env is optional; real deployments pass env vars directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// nil client disables rate limiting and the response cache.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, rate limiting and response cache disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := ws.NewHub()
	go hub.Run(ctx)

	// reconnect loop, runs for the life of the process
	go func() {
		if err := queue.StartDispatchConsumer(); err != nil {
			log.Printf("queue consumer stopped: %v", err)
		}
	}()

	principals := repository.NewPrincipalRepo(db)
	tokens := repository.NewTokenRepo(db)
	channels := repository.NewChannelRepo(db)
	plumbers := repository.NewPlumberRepo(db)
	notifications := repository.NewNotificationRepo(db)
	reports := repository.NewReportRepo(db)

	dispatcher := notify.NewDispatcher(channels, notifications, hub, queue_publisher.PublishNotificationDispatched)
	dispatcher.Dedup = cfg.NotifyDedup

	gen := scheduler.NewGenerator(channels, reports)
	sched := scheduler.New(gen)
	if err := sched.Start(); err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	defer sched.Stop()

	e := echo.New()
	e.Validator = handler.NewValidator()

	router.RegisterRoutes(e, cfg, rdb, hub)
	auth := handler.NewAuthHandler(cfg, principals, tokens)
	router.RegisterAuth(e, auth, cfg.JWTSecret)
	router.RegisterChannels(e, handler.NewChannelHandler(channels, dispatcher), cfg.JWTSecret)
	router.RegisterPlumbers(e, handler.NewPlumberHandler(plumbers, principals, tokens), auth, cfg.JWTSecret)
	router.RegisterManager(e, handler.NewManagerHandler(channels, plumbers), cfg.JWTSecret, rdb)
	router.RegisterNotifications(e, handler.NewNotificationHandler(dispatcher, notifications), cfg.JWTSecret)
	router.RegisterReports(e, handler.NewReportHandler(reports, gen), cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
