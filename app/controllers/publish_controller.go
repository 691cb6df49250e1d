package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gosimple/slug"
	"github.com/oklog/ulid/v2"

	"github.com/vadesk/VADesk/app/models"
	"github.com/vadesk/VADesk/internal/pkg/ingest"
	"github.com/vadesk/VADesk/internal/pkg/metrics/counter"
	"github.com/vadesk/VADesk/internal/pkg/objectstore"
	"github.com/vadesk/VADesk/internal/pkg/usercontext"
)

const publishSource = "publish"

// HandlePublish publishes (or republishes) the caller's directory profile.
// The route sits behind RequireSession, so the owning account always comes
// from the verified session. The profile document is replaced wholesale at
// its slug; CreatedAt survives republishes.
func (g *Gateway) HandlePublish(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)

	page := &models.ProfilePage{
		Slug:        strings.TrimSpace(c.FormValue("slug")),
		AccountID:   uc.AccountID,
		DisplayName: strings.TrimSpace(c.FormValue("displayName")),
		Headline:    strings.TrimSpace(c.FormValue("headline")),
		Bio:         strings.TrimSpace(c.FormValue("bio")),
		HourlyRate:  strings.TrimSpace(c.FormValue("hourlyRate")),
		Location:    strings.TrimSpace(c.FormValue("location")),
		Website:     strings.TrimSpace(c.FormValue("website")),
	}
	if services := strings.TrimSpace(c.FormValue("services")); services != "" {
		for _, s := range strings.Split(services, ",") {
			if s = strings.TrimSpace(s); s != "" {
				page.Services = append(page.Services, s)
			}
		}
	}
	if page.Slug == "" {
		page.Slug = slug.Make(page.DisplayName)
	} else {
		page.Slug = slug.Make(page.Slug)
	}

	if err := page.Validate(); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "profile is not valid: "+err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Slug squatting check happens before any write
	existing, err := g.repos.Directory.GetProfile(ctx, page.Slug)
	if err != nil && !errors.Is(err, objectstore.ErrNotFound) {
		log.Errorf("[Publish] Profile lookup failed for %s: %v", page.Slug, err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to publish profile")
	}
	if existing != nil && existing.AccountID != "" && existing.AccountID != uc.AccountID {
		return errorJSON(c, fiber.StatusConflict, "slug is taken by another account")
	}

	g.counter.Incr(ctx, publishSource, counter.FieldReceived)

	eventID := strings.TrimSpace(c.FormValue("idempotencyKey"))
	if eventID == "" {
		eventID = ulid.Make().String()
	}

	payload, _ := json.Marshal(page)
	receipt := &models.Receipt{
		Source:     publishSource,
		EventID:    eventID,
		EventType:  "profile.published",
		ReceivedAt: time.Now().UTC(),
		Payload:    payload,
	}
	deduped, err := ingest.Gate(ctx, g.repos.Receipt, receipt)
	if err != nil {
		log.Errorf("[Publish] Receipt write failed for %s: %v", eventID, err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to record publish")
	}
	if deduped {
		g.counter.Incr(ctx, publishSource, counter.FieldDeduped)
		return c.JSON(fiber.Map{
			"ok":      true,
			"deduped": true,
			"slug":    page.Slug,
		})
	}

	now := time.Now().UTC()
	page.CreatedAt = now
	if existing != nil && !existing.CreatedAt.IsZero() {
		page.CreatedAt = existing.CreatedAt
	}
	page.UpdatedAt = now

	if err := g.repos.Directory.PutProfile(ctx, page); err != nil {
		log.Errorf("[Publish] Profile write failed for %s: %v", page.Slug, err)
		g.counter.Incr(ctx, publishSource, counter.FieldSkipped)
		return c.JSON(fiber.Map{
			"ok":      true,
			"slug":    page.Slug,
			"applied": false,
			"note":    "profile write failed",
		})
	}

	if err := g.updateDirectory(ctx, page, now); err != nil {
		log.Errorf("[Publish] Directory index update failed for %s: %v", page.Slug, err)
		g.counter.Incr(ctx, publishSource, counter.FieldSkipped)
		return c.JSON(fiber.Map{
			"ok":      true,
			"slug":    page.Slug,
			"applied": false,
			"note":    "directory index update failed",
		})
	}
	g.counter.Incr(ctx, publishSource, counter.FieldApplied)

	g.cache.Delete(ctx, directoryCacheKey)

	return c.JSON(fiber.Map{
		"ok":   true,
		"slug": page.Slug,
	})
}

func (g *Gateway) updateDirectory(ctx context.Context, page *models.ProfilePage, now time.Time) error {
	index, err := g.repos.Directory.GetIndex(ctx)
	if err != nil {
		return err
	}
	index.Upsert(models.DirectoryEntry{
		AccountID:   page.AccountID,
		Slug:        page.Slug,
		DisplayName: page.DisplayName,
		Headline:    page.Headline,
		UpdatedAt:   now,
	})
	index.UpdatedAt = now
	return g.repos.Directory.PutIndex(ctx, index)
}
