package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vadesk/VADesk/app/controllers"
	"github.com/vadesk/VADesk/app/repository"
	"github.com/vadesk/VADesk/internal/pkg/cache"
	"github.com/vadesk/VADesk/internal/pkg/config"
	"github.com/vadesk/VADesk/internal/pkg/session"
)

// Router installs a set of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// Deps carries everything the routers need; routers never reach for globals.
type Deps struct {
	Config  *config.Config
	Gateway *controllers.Gateway
	Codec   *session.CookieCodec
	Auth    repository.AuthRepository
	Cache   *cache.Client
}

// InstallRouter wires all routes. The HTTP router goes first so its global
// middleware (method allowlist, CORS, UserContext) covers the API routes; the
// deny-by-default fallbacks go last so they only catch what nothing matched.
func InstallRouter(app *fiber.App, deps Deps) {
	setup(app, NewHttpRouter(deps), NewApiRouter(deps))
	installFallbacks(app)
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}

// installFallbacks closes the surface: unmatched OPTIONS get an empty 204,
// everything else unmatched gets a JSON 404 echoing the path.
func installFallbacks(app *fiber.App) {
	app.Options("/*", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Not found",
			"path":  c.Path(),
		})
	})
}
