package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vadesk/VADesk/app/models"
)

// errorJSON renders the machine-readable error shape used on every 4xx/5xx.
func errorJSON(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

// projectionJSON renders the projection sub-object included in success
// responses for entry points that mirror into the task tracker.
func projectionJSON(state models.ProjectionState) fiber.Map {
	m := fiber.Map{"ok": state.OK}
	if state.Error != "" {
		m["error"] = state.Error
	}
	if state.CardID != "" {
		m["cardId"] = state.CardID
	}
	return m
}
