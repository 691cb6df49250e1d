package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/vadesk/VADesk/app/repository"
	"github.com/vadesk/VADesk/internal/pkg/session"
	"github.com/vadesk/VADesk/internal/pkg/usercontext"
)

// UserContext resolves the session cookie into a UserContext for every
// request. The cookie's HMAC validity is necessary but not sufficient: the
// server-side session record is loaded and checked for revocation and
// expiry, so a cryptographically valid cookie for a revoked session still
// yields an anonymous context.
func UserContext(cookieName string, codec *session.CookieCodec, auth repository.AuthRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		anonymous := func() error {
			c.Locals(usercontext.ContextKey, usercontext.UserContext{})
			return c.Next()
		}

		value := c.Cookies(cookieName)
		if value == "" {
			return anonymous()
		}

		now := time.Now().UTC()
		sessionID, err := codec.Verify(value, now)
		if err != nil {
			return anonymous()
		}

		record, err := auth.GetSession(c.Context(), sessionID)
		if err != nil || !record.Valid(now) {
			return anonymous()
		}

		c.Locals(usercontext.ContextKey, usercontext.UserContext{
			SessionID:       record.SessionID,
			AccountID:       record.AccountID,
			Email:           record.Email,
			IsAuthenticated: true,
		})
		return c.Next()
	}
}
