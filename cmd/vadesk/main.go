package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/vadesk/VADesk/app/controllers"
	"github.com/vadesk/VADesk/app/repository"
	"github.com/vadesk/VADesk/internal/pkg/cache"
	"github.com/vadesk/VADesk/internal/pkg/config"
	"github.com/vadesk/VADesk/internal/pkg/env"
	"github.com/vadesk/VADesk/internal/pkg/metrics/counter"
	"github.com/vadesk/VADesk/internal/pkg/objectstore"
	"github.com/vadesk/VADesk/internal/pkg/projection"
	"github.com/vadesk/VADesk/internal/pkg/router"
	"github.com/vadesk/VADesk/internal/pkg/session"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	storeCfg, err := objectstore.LoadConfig()
	if err != nil {
		log.Fatalf("object store config: %v", err)
	}
	store, err := objectstore.NewS3Store(context.Background(), storeCfg)
	if err != nil {
		log.Fatalf("object store: %v", err)
	}

	repos := repository.NewFactory(store).GetRepositories()

	cacheClient := cache.Setup(cfg)
	ingestCounter := counter.New(cacheClient.Redis())
	sink := projection.NewClient(cfg)
	codec := session.NewCookieCodec(cfg.AuthSecret)

	gateway := controllers.NewGateway(cfg, repos, codec, cacheClient, ingestCounter, sink)

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024, // webhook and form payloads only
	})
	app.Use(recover.New(), logger.New())

	metrics := monitor.New()
	if cfg.MetricsPassword != "" {
		app.Get("/metrics", basicauth.New(basicauth.Config{
			Users: map[string]string{cfg.MetricsUser: cfg.MetricsPassword},
		}), metrics)
	} else if env.IsDev() {
		app.Get("/metrics", metrics)
	}

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: "./public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app, router.Deps{
		Config:  cfg,
		Gateway: gateway,
		Codec:   codec,
		Auth:    repos.Auth,
		Cache:   cacheClient,
	})

	return app
}
