package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/i474232898/tidal-acquisition/internal/api/http"
	"github.com/i474232898/tidal-acquisition/internal/config"
	"github.com/i474232898/tidal-acquisition/internal/locator"
	"github.com/i474232898/tidal-acquisition/internal/observability"
	"github.com/i474232898/tidal-acquisition/internal/scheduler"
	"github.com/i474232898/tidal-acquisition/internal/store"
	"github.com/i474232898/tidal-acquisition/internal/weather"
	"github.com/i474232898/tidal-acquisition/internal/weather/providers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	// Shared HTTP client for outbound upstream calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	newFetcher := func(name string, delay time.Duration) *providers.Fetcher {
		f := providers.NewFetcher(name, providers.HTTPClientConfig{
			Client:    httpClient,
			Retry:     providers.RetryConfig{MaxAttempts: cfg.FetchAttempts, Delay: delay},
			UserAgent: cfg.UserAgent,
		})
		f.OnQuery(metrics.QueryHook(name))
		return f
	}

	noaa := newFetcher("noaa", cfg.FetchRetryDelay)
	sun := newFetcher("sunrise-sunset", cfg.FetchRetryDelay)
	nws := newFetcher("nws", cfg.FetchRetryDelay)
	station := newFetcher("station", cfg.StationRetryDelay)

	loc, err := locator.New(locator.Config{
		Subnet:       cfg.StationSubnet,
		Port:         cfg.StationPort,
		ProbeTimeout: cfg.ProbeTimeout,
		Cooldown:     cfg.ScanCooldown,
		Prober:       locator.HTTPProber{Client: &http.Client{}},
		OnScan:       metrics.ScanHook(),
	})
	if err != nil {
		log.Fatalf("failed to create station locator: %v", err)
	}

	grid := providers.NewGridInfoProvider(nws, cfg.Latitude, cfg.Longitude, clock)
	pipelines := []weather.Pipeline{
		providers.NewTideProvider(noaa, cfg.NOAAStationID),
		providers.NewExtremeProvider(noaa, cfg.NOAAStationID),
		providers.NewSunProvider(sun, cfg.Latitude, cfg.Longitude),
		grid,
		providers.NewForecastProvider(grid, nws, clock),
		providers.NewStationProvider(loc, station),
	}

	// Core service orchestrating pipelines and store.
	service := weather.NewService(store.NewMemoryStore(clock), pipelines, clock, metrics)

	// gridinfo is uncached, so only the cached kinds are kept warm.
	sched := scheduler.New(cachedOnly{service}, cfg.RefreshInterval, 2*time.Minute)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "tidal-acquisition",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          2 * time.Minute,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "tidal-acquisition",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	httpapi.RegisterRoutes(app, service, loc)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}

// cachedOnly hides uncached kinds from the scheduler.
type cachedOnly struct {
	*weather.Service
}

func (c cachedOnly) Kinds() []weather.Kind {
	var out []weather.Kind
	for _, k := range c.Service.Kinds() {
		if k.Policy().Cached {
			out = append(out, k)
		}
	}
	return out
}
