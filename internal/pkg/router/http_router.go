package router

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/redis"

	"github.com/vadesk/VADesk/internal/pkg/middleware"
)

type HttpRouter struct {
	deps Deps
}

func NewHttpRouter(deps Deps) *HttpRouter {
	return &HttpRouter{deps: deps}
}

func (h *HttpRouter) InstallRouter(app *fiber.App) {
	cfg := h.deps.Config
	gw := h.deps.Gateway

	// Global middleware first: method allowlist, CORS, then identity
	app.Use(allowMethods)
	if cfg.CORSOrigin != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigin,
			AllowMethods:     "GET,POST,OPTIONS",
			AllowHeaders:     "Content-Type,Stripe-Signature",
			AllowCredentials: true,
		}))
	}
	app.Use(middleware.UserContext(cfg.CookieName, h.deps.Codec, h.deps.Auth))

	app.Get("/health", gw.HandleHealth)

	app.Post("/stripe/webhook", gw.HandleStripeWebhook)

	app.Post("/auth/login", gw.HandleAuthLogin)
	app.Get("/auth/confirm", gw.HandleAuthConfirm)
	app.Get("/auth/session", gw.HandleAuthSession)
	app.Post("/auth/logout", gw.HandleAuthLogout)

	app.Get("/directory", gw.HandleDirectory)
	app.Get("/directory/:slug", gw.HandleProfile)
	app.Get("/support/status", gw.HandleSupportStatus)

	// Browser-facing form endpoints: session required, rate limit of their
	// own. RequireSession sits on the routes, not the group, so OPTIONS
	// preflights fall through to the 204 catch-all.
	forms := app.Group("/forms", h.formsLimiter())
	forms.Post("/support/message", middleware.RequireSession, gw.HandleSupportSubmit)
	forms.Post("/va/publish", middleware.RequireSession, gw.HandlePublish)
}

// allowMethods rejects every verb outside the gateway's surface with a 405
// that names the offending method.
func allowMethods(c *fiber.Ctx) error {
	switch c.Method() {
	case fiber.MethodGet, fiber.MethodPost, fiber.MethodOptions:
		return c.Next()
	}
	return c.Status(fiber.StatusMethodNotAllowed).JSON(fiber.Map{
		"error":  "Method not allowed",
		"method": c.Method(),
	})
}

// formsLimiter rate-limits form submissions. With a redis binding the
// counters are shared across instances; without one the in-memory default
// still protects a single instance.
func (h *HttpRouter) formsLimiter() fiber.Handler {
	limiterCfg := limiter.Config{
		Max:        30,
		Expiration: time.Minute,
	}
	if h.deps.Cache != nil {
		port, err := strconv.Atoi(h.deps.Config.CachePort)
		if err != nil {
			port = 6379
		}
		limiterCfg.Storage = redis.New(redis.Config{
			Host:     h.deps.Config.CacheHost,
			Port:     port,
			Password: h.deps.Config.CachePassword,
			Database: 1,
			Reset:    false,
		})
	}
	return limiter.New(limiterCfg)
}
