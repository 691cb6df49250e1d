package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/vadesk/VADesk/internal/pkg/objectstore"
)

const (
	directoryCacheKey = "directory:index"
	directoryCacheTTL = 60 * time.Second
)

// HandleDirectory serves the public directory of published profiles. The
// index document is already sorted at write time; a short redis cache keeps
// the hot path off the object store.
func (g *Gateway) HandleDirectory(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if cached := g.cache.Get(ctx, directoryCacheKey); cached != "" {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.SendString(cached)
	}

	index, err := g.repos.Directory.GetIndex(ctx)
	if err != nil {
		log.Errorf("[Directory] Index load failed: %v", err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to load directory")
	}

	body, err := json.Marshal(index)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to encode directory")
	}
	if err := g.cache.Set(ctx, directoryCacheKey, string(body), directoryCacheTTL); err != nil {
		log.Warnf("[Directory] Could not cache index: %v", err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(body)
}

// HandleProfile serves one published profile by slug.
func (g *Gateway) HandleProfile(c *fiber.Ctx) error {
	slug := c.Params("slug")
	if slug == "" {
		return errorJSON(c, fiber.StatusBadRequest, "slug is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	page, err := g.repos.Directory.GetProfile(ctx, slug)
	if errors.Is(err, objectstore.ErrNotFound) {
		return errorJSON(c, fiber.StatusNotFound, "profile not found")
	}
	if err != nil {
		log.Errorf("[Directory] Profile load failed for %s: %v", slug, err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to load profile")
	}
	return c.JSON(page)
}

// HandleHealth is the unauthenticated liveness probe.
func (g *Gateway) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"ok": true})
}

// HandleStats exposes the ingest counters. The route sits behind basic auth.
func (g *Gateway) HandleStats(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	counters, err := g.counter.Snapshot(ctx)
	if err != nil {
		log.Errorf("[Stats] Counter snapshot failed: %v", err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to load counters")
	}
	return c.JSON(fiber.Map{
		"ok":       true,
		"counters": counters,
	})
}
