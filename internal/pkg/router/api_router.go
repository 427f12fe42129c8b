package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/JobFox/app/controllers"
	"github.com/ManuelReschke/JobFox/internal/pkg/cache"
	"github.com/ManuelReschke/JobFox/internal/pkg/constants"
	"github.com/ManuelReschke/JobFox/internal/pkg/engine"
	"github.com/ManuelReschke/JobFox/internal/pkg/env"
	"github.com/ManuelReschke/JobFox/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/JobFox/internal/pkg/middleware"
)

type ApiRouter struct {
	engine     *engine.Engine
	adminToken string
	limit      int
	window     time.Duration
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group(constants.APIRoute, limiter.New(limiter.Config{
		Max:        h.limit,
		Expiration: h.window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return controllers.GetClientIP(c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too_many_requests", "message": "Rate limit exceeded"})
		},
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	pc := controllers.NewPricingController(h.engine, counter.New(cache.GetClient(), counter.DetectionsKey))

	v1 := api.Group(constants.V1SubRoute)
	v1.Get(constants.HealthRoute, pc.HandleHealth)
	v1.Get("/currency", pc.HandleGetCurrency)
	v1.Put("/currency", pc.HandleSetCurrency)
	v1.Get("/currencies", pc.HandleListCurrencies)
	v1.Get("/format", pc.HandleFormat)
	v1.Get("/plans", pc.HandleListPlans)
	v1.Get("/plans/:id", pc.HandleGetPlan)
	v1.Get("/plans/:id/compare", pc.HandleComparePlan)
	v1.Get("/plans/:id/savings", pc.HandlePlanSavings)
	v1.Post("/plans/:id/recommendation", pc.HandleRecommendation)
	v1.Get("/features", pc.HandleFeatureMatrix)
	v1.Get("/tiers", pc.HandleListTiers)

	admin := v1.Group(constants.AdminSubRoute, middleware.AdminTokenMiddleware(h.adminToken))
	admin.Post("/tiers", pc.HandleSaveTier)
	admin.Post("/rates/refresh", pc.HandleRefreshRates)
}

// NewApiRouter reads PRICING_ADMIN_TOKEN and the API_RATE_LIMIT settings.
func NewApiRouter(e *engine.Engine) *ApiRouter {
	return &ApiRouter{
		engine:     e,
		adminToken: env.GetEnv("PRICING_ADMIN_TOKEN", ""),
		limit:      env.GetEnvInt("API_RATE_LIMIT", 120),
		window:     env.GetEnvDuration("API_RATE_WINDOW", time.Minute),
	}
}
