package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/i474232898/tidal-acquisition/internal/config"
	"github.com/i474232898/tidal-acquisition/internal/relay"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := relay.New(nil)

	go func() {
		if err := r.ListenUDP(ctx, cfg.RelayUDPAddr); err != nil {
			log.Printf("ERROR: relay: udp listener stopped: %v", err)
			stop()
		}
	}()

	app := fiber.New(fiber.Config{
		AppName:               "station-relay",
		DisableStartupMessage: true,
	})
	app.Use(logger.New())
	app.Use(recover.New())
	r.Register(app)

	go func() {
		if err := app.Listen(cfg.RelayHTTPAddr); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
