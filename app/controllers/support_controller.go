package controllers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/oklog/ulid/v2"

	"github.com/vadesk/VADesk/app/models"
	"github.com/vadesk/VADesk/internal/pkg/ingest"
	"github.com/vadesk/VADesk/internal/pkg/metrics/counter"
	"github.com/vadesk/VADesk/internal/pkg/objectstore"
	"github.com/vadesk/VADesk/internal/pkg/usercontext"
)

const supportSource = "support"

// supportFields is the closed set of accepted top-level fields. Anything
// else (except utm_* tracking noise, which is dropped) is a hard reject so
// typos like "mesage" surface at submit time instead of losing content.
// Sender identity comes from the session, never from the body.
var supportFields = map[string]bool{
	"subject":        true,
	"message":        true,
	"idempotencyKey": true,
}

type supportRequest struct {
	Subject        string
	Message        string
	IdempotencyKey string
}

func parseSupportRequest(body []byte) (*supportRequest, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.New("Invalid JSON body")
	}

	req := &supportRequest{}
	for field, value := range raw {
		if strings.HasPrefix(field, "utm_") {
			continue
		}
		if !supportFields[field] {
			return nil, fmt.Errorf("unknown field: %s", field)
		}
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return nil, fmt.Errorf("field %s must be a string", field)
		}
		switch field {
		case "subject":
			req.Subject = strings.TrimSpace(s)
		case "message":
			req.Message = strings.TrimSpace(s)
		case "idempotencyKey":
			req.IdempotencyKey = strings.TrimSpace(s)
		}
	}

	if req.Subject == "" {
		return nil, errors.New("subject is required")
	}
	if req.Message == "" {
		return nil, errors.New("message is required")
	}
	return req, nil
}

// SupportIDFor derives the stable thread id from the submission's event id.
// Retries with the same idempotency key land on the same thread.
func SupportIDFor(eventID string) string {
	sum := sha256.Sum256([]byte(eventID))
	return "SUP-" + strings.ToUpper(hex.EncodeToString(sum[:])[:8])
}

// HandleSupportSubmit ingests a support form submission. Validation happens
// before the receipt gate; once the receipt is written, the thread upsert and
// the tracker mirror are best-effort and the response stays a success.
func (g *Gateway) HandleSupportSubmit(c *fiber.Ctx) error {
	req, err := parseSupportRequest(c.BodyRaw())
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	eventID := req.IdempotencyKey
	if eventID == "" {
		eventID = ulid.Make().String()
	}
	supportID := SupportIDFor(eventID)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	g.counter.Incr(ctx, supportSource, counter.FieldReceived)

	payload, _ := json.Marshal(fiber.Map{
		"subject": req.Subject,
		"message": req.Message,
	})
	receipt := &models.Receipt{
		Source:     supportSource,
		EventID:    eventID,
		EventType:  "support.submitted",
		ReceivedAt: time.Now().UTC(),
		Payload:    payload,
	}
	deduped, err := ingest.Gate(ctx, g.repos.Receipt, receipt)
	if err != nil {
		log.Errorf("[Support] Receipt write failed for %s: %v", eventID, err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to record submission")
	}
	if deduped {
		g.counter.Incr(ctx, supportSource, counter.FieldDeduped)
		return c.JSON(fiber.Map{
			"ok":        true,
			"deduped":   true,
			"supportId": supportID,
		})
	}

	uc := usercontext.GetUserContext(c)
	thread, created, err := g.upsertThread(ctx, supportID, req, uc)
	if err != nil {
		// Receipted; do not invite a retry that would dedupe into nothing
		log.Errorf("[Support] Thread upsert failed for %s: %v", supportID, err)
		g.counter.Incr(ctx, supportSource, counter.FieldSkipped)
		return c.JSON(fiber.Map{
			"ok":        true,
			"supportId": supportID,
			"applied":   false,
			"note":      "thread update failed",
		})
	}
	g.counter.Incr(ctx, supportSource, counter.FieldApplied)

	response := fiber.Map{
		"ok":        true,
		"supportId": supportID,
	}
	if g.sink.Enabled() {
		response["projection"] = projectionJSON(g.projectThread(ctx, thread, created, req))
	}
	return c.JSON(response)
}

func (g *Gateway) upsertThread(ctx context.Context, supportID string, req *supportRequest, uc usercontext.UserContext) (*models.SupportThread, bool, error) {
	now := time.Now().UTC()

	thread, err := g.repos.Support.Get(ctx, supportID)
	created := false
	if errors.Is(err, objectstore.ErrNotFound) {
		thread = &models.SupportThread{
			SupportID: supportID,
			Status:    models.SupportStatusOpen,
			CreatedAt: now,
		}
		created = true
	} else if err != nil {
		return nil, false, err
	}

	// Identity comes from the verified session, never from the body
	thread.AccountID = uc.AccountID
	thread.Email = uc.Email

	thread.Messages = append(thread.Messages, models.SupportMessage{
		Subject:   req.Subject,
		Message:   req.Message,
		CreatedAt: now,
	})
	thread.LatestUpdate = req.Subject
	thread.UpdatedAt = now

	if err := g.repos.Support.Put(ctx, thread); err != nil {
		return nil, false, err
	}
	return thread, created, nil
}

// projectThread mirrors the thread into the tracker: a card per thread, a
// comment per follow-up message.
func (g *Gateway) projectThread(ctx context.Context, thread *models.SupportThread, created bool, req *supportRequest) models.ProjectionState {
	state := thread.Projection

	if created || state.CardID == "" {
		name := fmt.Sprintf("[%s] %s", thread.SupportID, req.Subject)
		desc := fmt.Sprintf("From: %s\n\n%s", thread.Email, req.Message)
		cardID, err := g.sink.CreateCard(ctx, g.sink.SupportListID, name, desc)
		if err != nil {
			state = models.ProjectionState{Error: err.Error()}
			g.counter.Incr(ctx, supportSource, counter.FieldProjectionFailed)
			log.Warnf("[Support] Projection failed for %s: %v", thread.SupportID, err)
		} else {
			state = models.ProjectionState{OK: true, CardID: cardID}
			g.counter.Incr(ctx, supportSource, counter.FieldProjected)
		}
	} else {
		text := fmt.Sprintf("%s\n\n%s", req.Subject, req.Message)
		if err := g.sink.CommentCard(ctx, state.CardID, text); err != nil {
			state.OK = false
			state.Error = err.Error()
			g.counter.Incr(ctx, supportSource, counter.FieldProjectionFailed)
			log.Warnf("[Support] Comment projection failed for %s: %v", thread.SupportID, err)
		} else {
			state.OK = true
			state.Error = ""
			g.counter.Incr(ctx, supportSource, counter.FieldProjected)
		}
	}

	now := time.Now().UTC()
	state.UpdatedAt = &now
	thread.Projection = state
	if err := g.repos.Support.Put(ctx, thread); err != nil {
		log.Warnf("[Support] Could not record projection state for %s: %v", thread.SupportID, err)
	}
	return state
}

// HandleSupportStatus returns the public view of a thread.
func (g *Gateway) HandleSupportStatus(c *fiber.Ctx) error {
	supportID := c.Query("supportId")
	if supportID == "" {
		return errorJSON(c, fiber.StatusBadRequest, "supportId is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	thread, err := g.repos.Support.Get(ctx, supportID)
	if errors.Is(err, objectstore.ErrNotFound) {
		return errorJSON(c, fiber.StatusNotFound, "support thread not found")
	}
	if err != nil {
		log.Errorf("[Support] Thread lookup failed for %s: %v", supportID, err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to load support thread")
	}

	return c.JSON(fiber.Map{
		"supportId":    thread.SupportID,
		"status":       thread.Status,
		"latestUpdate": thread.LatestUpdate,
		"messageCount": len(thread.Messages),
		"updatedAt":    thread.UpdatedAt,
	})
}
