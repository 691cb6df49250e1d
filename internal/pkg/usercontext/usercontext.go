package usercontext

import "github.com/gofiber/fiber/v2"

// ContextKey is the Locals key the middleware stores the context under.
const ContextKey = "USER_CONTEXT"

// UserContext represents the resolved identity for a request. Identity comes
// exclusively from the verified session; client-submitted accountId fields
// are never trusted.
type UserContext struct {
	SessionID       string `json:"session_id"`
	AccountID       string `json:"account_id"`
	Email           string `json:"email"`
	IsAuthenticated bool   `json:"is_authenticated"`
}

// GetUserContext retrieves the user context from fiber context.
// Returns a default anonymous context if none is set.
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx := c.Locals(ContextKey); ctx != nil {
		if uc, ok := ctx.(UserContext); ok {
			return uc
		}
	}
	return UserContext{}
}

// IsAuthenticated checks if the current request carries a valid session.
func IsAuthenticated(c *fiber.Ctx) bool {
	return GetUserContext(c).IsAuthenticated
}
