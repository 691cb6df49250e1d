package controllers

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/vadesk/VADesk/app/models"
	"github.com/vadesk/VADesk/internal/pkg/billing"
	"github.com/vadesk/VADesk/internal/pkg/ingest"
	"github.com/vadesk/VADesk/internal/pkg/metrics/counter"
)

const webhookSource = "stripe"

// HandleStripeWebhook ingests signed payment events. Order of operations is
// fixed: verify signature, write receipt, upsert canonical, best-effort
// projection. Once the receipt is durable the response is a success no
// matter what happens afterwards, so the sender's retrier stands down.
func (g *Gateway) HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	header := c.Get("Stripe-Signature")

	if err := billing.VerifySignature(rawBody, header, g.cfg.WebhookSecrets, time.Now(), g.cfg.WebhookTolerance); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	event, err := billing.ParseEvent(rawBody)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	g.counter.Incr(ctx, webhookSource, counter.FieldReceived)

	receipt := &models.Receipt{
		Source:     webhookSource,
		EventID:    event.ID,
		EventType:  event.Type,
		ReceivedAt: time.Now().UTC(),
		Payload:    rawBody,
	}
	deduped, err := ingest.Gate(ctx, g.repos.Receipt, receipt)
	if err != nil {
		// No side effect happened yet; failing is safe and triggers a retry
		log.Errorf("[Webhook] Receipt write failed for %s: %v", event.ID, err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to record event")
	}
	if deduped {
		g.counter.Incr(ctx, webhookSource, counter.FieldDeduped)
		return c.JSON(fiber.Map{
			"ok":        true,
			"deduped":   true,
			"eventId":   event.ID,
			"eventType": event.Type,
		})
	}

	outcome, err := g.billing.Apply(ctx, event)
	if err != nil {
		// Receipt is durable; reporting failure now would cause a
		// duplicate-delivery storm. The event is receipted and parked.
		log.Errorf("[Webhook] Canonical mutation failed for %s: %v", event.ID, err)
		g.counter.Incr(ctx, webhookSource, counter.FieldSkipped)
		return c.JSON(fiber.Map{
			"ok":      true,
			"eventId": event.ID,
			"applied": false,
			"note":    "canonical mutation failed",
		})
	}

	response := fiber.Map{
		"ok":        true,
		"eventId":   event.ID,
		"eventType": event.Type,
		"applied":   outcome.Result.Applied,
	}
	if outcome.AccountID != "" {
		response["accountId"] = outcome.AccountID
	}

	if !outcome.Result.Applied {
		g.counter.Incr(ctx, webhookSource, counter.FieldSkipped)
		response["note"] = string(outcome.Result.Reason)
		return c.JSON(response)
	}
	g.counter.Incr(ctx, webhookSource, counter.FieldApplied)

	// Mirror activations into the task tracker; never a request failure
	if g.sink.Enabled() && event.Type == billing.EventCheckoutCompleted {
		response["projection"] = projectionJSON(g.projectAccount(ctx, outcome))
	}

	return c.JSON(response)
}

func (g *Gateway) projectAccount(ctx context.Context, outcome *billing.Outcome) models.ProjectionState {
	name := fmt.Sprintf("Subscription activated: %s", outcome.AccountID)
	desc := fmt.Sprintf("Email: %s\nPayment intent: %s", outcome.Account.Email, outcome.Account.Processor.PaymentIntentID)

	state := models.ProjectionState{}
	cardID, err := g.sink.CreateCard(ctx, g.sink.PaymentsListID, name, desc)
	if err != nil {
		state.Error = err.Error()
		g.counter.Incr(ctx, webhookSource, counter.FieldProjectionFailed)
		log.Warnf("[Webhook] Projection failed for %s: %v", outcome.AccountID, err)
	} else {
		state.OK = true
		state.CardID = cardID
		g.counter.Incr(ctx, webhookSource, counter.FieldProjected)
	}

	if err := g.billing.SetProjection(ctx, outcome.AccountID, state); err != nil {
		log.Warnf("[Webhook] Could not record projection state for %s: %v", outcome.AccountID, err)
	}
	return state
}
