package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vadesk/VADesk/internal/pkg/usercontext"
)

// RequireSession ensures a valid session for mutation routes and returns
// JSON 401 otherwise.
func RequireSession(c *fiber.Ctx) error {
	if !usercontext.IsAuthenticated(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	return c.Next()
}
