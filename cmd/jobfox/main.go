package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ManuelReschke/JobFox/internal/pkg/apidoc"
	"github.com/ManuelReschke/JobFox/internal/pkg/cache"
	"github.com/ManuelReschke/JobFox/internal/pkg/constants"
	"github.com/ManuelReschke/JobFox/internal/pkg/currency"
	"github.com/ManuelReschke/JobFox/internal/pkg/database"
	"github.com/ManuelReschke/JobFox/internal/pkg/engine"
	"github.com/ManuelReschke/JobFox/internal/pkg/env"
	"github.com/ManuelReschke/JobFox/internal/pkg/fx"
	"github.com/ManuelReschke/JobFox/internal/pkg/geo"
	"github.com/ManuelReschke/JobFox/internal/pkg/pricing"
	"github.com/ManuelReschke/JobFox/internal/pkg/router"
	"github.com/ManuelReschke/JobFox/internal/pkg/scheduler"
)

func main() {
	app, e := NewApplication()

	sched := scheduler.NewScheduler(e)
	if err := sched.Start(); err != nil {
		log.Fatalf("Error scheduling jobs: %v", err)
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down...")
		sched.Stop()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	if err != nil {
		log.Fatal(err)
	}
}

func NewApplication() (*fiber.App, *engine.Engine) {
	env.SetupEnvFile()
	cacheReady := cache.SetupCache()

	e := engine.New(engine.State{
		Rates:    newRateStore(cacheReady),
		Catalog:  pricing.NewCatalog(newCatalogSource()),
		Resolver: geo.NewDefaultResolver(currency.IsSupported, geo.NewIPLocatorFromEnv(), geo.NewReverseGeocoderFromEnv()),
	})

	startCtx, cancel := context.WithTimeout(context.Background(), env.GetEnvDuration("STARTUP_TIMEOUT", 15*time.Second))
	e.Start(startCtx)
	cancel()

	app := fiber.New(fiber.Config{
		AppName:   "JobFox Pricing",
		BodyLimit: 1 << 20,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	if pass := env.GetEnv("METRICS_PASSWORD", ""); pass != "" {
		app.Get(constants.MetricsRoute, basicauth.New(basicauth.Config{
			Users: map[string]string{
				env.GetEnv("METRICS_USER", "admin"): pass,
			},
		}), monitor.New())
	}

	// SWAGGER / OPENAPI
	apidoc.Install(app, env.GetEnv("OPENAPI_PATH", apidoc.DefaultPath))

	// ROUTER
	router.InstallRouter(app, e)

	return app, e
}

// newRateStore persists the shared rate snapshot in Redis when the cache is
// reachable and in process memory otherwise.
func newRateStore(cacheReady bool) *currency.RateStore {
	var store cache.Store = cache.NewMemory()
	if cacheReady {
		store = cache.NewRedis(cache.GetClient(), env.GetEnv("CACHE_PREFIX", "jobfox:"), 0)
	}
	return currency.NewRateStore(fx.NewClientFromEnv(), store,
		currency.WithMaxAge(env.GetEnvDuration("RATES_MAX_AGE", currency.DefaultMaxAge)),
		currency.WithRetryAfter(env.GetEnvDuration("RATES_RETRY_AFTER", currency.DefaultRetryAfter)),
	)
}

// newCatalogSource picks the catalog backend from PRICING_CATALOG_SOURCE:
// http, db or none. A nil source keeps the compiled-in tiers.
func newCatalogSource() pricing.Source {
	switch strings.ToLower(env.GetEnv("PRICING_CATALOG_SOURCE", "none")) {
	case "http":
		if src := pricing.NewHTTPSourceFromEnv(); src != nil {
			return src
		}
		log.Printf("Warning: PRICING_CATALOG_SOURCE=http but PRICING_CATALOG_URL is empty, using default tiers")
	case "db":
		db, err := database.SetupDatabase()
		if err != nil {
			log.Printf("Warning: catalog database unavailable, using default tiers: %v", err)
			return nil
		}
		src := pricing.NewGormSource(db)
		if env.GetEnvBool("PRICING_CATALOG_SEED", true) {
			if err := src.Seed(context.Background(), pricing.DefaultTiers()); err != nil {
				log.Printf("Warning: could not seed pricing tiers: %v", err)
			}
		}
		return src
	}
	return nil
}
