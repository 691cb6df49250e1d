package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type ApiRouter struct {
	deps Deps
}

func NewApiRouter(deps Deps) *ApiRouter {
	return &ApiRouter{deps: deps}
}

func (h *ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())

	// API v1 routes
	v1 := api.Group("/v1")
	if h.deps.Config.MetricsPassword != "" {
		v1.Get("/stats", basicauth.New(basicauth.Config{
			Users: map[string]string{
				h.deps.Config.MetricsUser: h.deps.Config.MetricsPassword,
			},
		}), h.deps.Gateway.HandleStats)
	}
}
