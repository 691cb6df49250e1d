package controllers

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/vadesk/VADesk/app/models"
	"github.com/vadesk/VADesk/internal/pkg/env"
	"github.com/vadesk/VADesk/internal/pkg/objectstore"
	"github.com/vadesk/VADesk/internal/pkg/usercontext"
)

type loginRequest struct {
	Email string `json:"email"`
}

// HandleAuthLogin issues a single-use magic-link token for the given email.
// The response is identical whether or not an account exists for the address,
// so the endpoint cannot be used to probe the account base.
func (g *Gateway) HandleAuthLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid JSON body")
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" {
		return errorJSON(c, fiber.StatusBadRequest, "email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "email is not a valid address")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	rawToken, err := newRawToken()
	if err != nil {
		log.Errorf("[Auth] Token generation failed: %v", err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to issue login token")
	}

	accountID := ""
	account, err := g.repos.Account.FindByEmail(ctx, email)
	if err == nil {
		accountID = account.AccountID
	} else if !errors.Is(err, objectstore.ErrNotFound) {
		log.Errorf("[Auth] Account lookup failed for login: %v", err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to issue login token")
	}

	now := time.Now().UTC()
	token := &models.LoginToken{
		TokenHash: hashToken(rawToken),
		Email:     email,
		AccountID: accountID,
		CreatedAt: now,
		ExpiresAt: now.Add(g.cfg.TokenTTL),
	}
	if err := g.repos.Auth.CreateLoginToken(ctx, token); err != nil {
		log.Errorf("[Auth] Could not store login token: %v", err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to issue login token")
	}

	// Delivery is the mailer's job; locally the link lands in the log.
	if env.IsDev() {
		log.Infof("[Auth] Magic link for %s: http://%s:%s/auth/confirm?token=%s",
			email, g.cfg.AppHost, g.cfg.AppPort, rawToken)
	}

	return c.JSON(fiber.Map{"ok": true})
}

// HandleAuthConfirm consumes a magic-link token and establishes a session.
// Each failure mode gets its own message so the login page can say what
// happened; the token is burned before the session is minted.
func (g *Gateway) HandleAuthConfirm(c *fiber.Ctx) error {
	rawToken := c.Query("token")
	if rawToken == "" {
		return errorJSON(c, fiber.StatusBadRequest, "token is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	token, err := g.repos.Auth.GetLoginToken(ctx, hashToken(rawToken))
	if errors.Is(err, objectstore.ErrNotFound) {
		return errorJSON(c, fiber.StatusBadRequest, "token is not valid")
	}
	if err != nil {
		log.Errorf("[Auth] Token lookup failed: %v", err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to confirm login")
	}

	now := time.Now().UTC()
	if token.Used() {
		return errorJSON(c, fiber.StatusBadRequest, "token was already used")
	}
	if token.Expired(now) {
		return errorJSON(c, fiber.StatusBadRequest, "token has expired")
	}

	token.UsedAt = &now
	if err := g.repos.Auth.SaveLoginToken(ctx, token); err != nil {
		log.Errorf("[Auth] Could not mark token used: %v", err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to confirm login")
	}

	sess := &models.Session{
		SessionID: uuid.New().String(),
		Email:     token.Email,
		AccountID: token.AccountID,
		CreatedAt: now,
		ExpiresAt: now.Add(g.cfg.SessionTTL),
	}
	if err := g.repos.Auth.CreateSession(ctx, sess); err != nil {
		log.Errorf("[Auth] Could not store session: %v", err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to confirm login")
	}

	value, err := g.codec.Mint(sess.SessionID, sess.ExpiresAt)
	if err != nil {
		log.Errorf("[Auth] Could not mint session cookie: %v", err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to confirm login")
	}
	c.Cookie(&fiber.Cookie{
		Name:     g.cfg.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(g.cfg.SessionTTL.Seconds()),
		HTTPOnly: true,
		Secure:   !env.IsDev(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.Redirect(g.cfg.ConfirmRedirectURL, fiber.StatusFound)
}

// HandleAuthSession reports the caller's resolved identity.
func (g *Gateway) HandleAuthSession(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	if !uc.IsAuthenticated {
		return c.JSON(fiber.Map{"authenticated": false})
	}
	resp := fiber.Map{
		"authenticated": true,
		"email":         uc.Email,
	}
	if uc.AccountID != "" {
		resp["accountId"] = uc.AccountID
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if sess, err := g.repos.Auth.GetSession(ctx, uc.SessionID); err == nil {
		resp["expiresAt"] = sess.ExpiresAt
	}
	return c.JSON(resp)
}

// HandleAuthLogout revokes the server-side session and clears the cookie.
// Revocation is what makes a stolen cookie useless afterwards; clearing is
// only a courtesy to the browser.
func (g *Gateway) HandleAuthLogout(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	if uc.IsAuthenticated {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		sess, err := g.repos.Auth.GetSession(ctx, uc.SessionID)
		if err == nil && sess.RevokedAt == nil {
			now := time.Now().UTC()
			sess.RevokedAt = &now
			if err := g.repos.Auth.SaveSession(ctx, sess); err != nil {
				log.Errorf("[Auth] Could not revoke session %s: %v", uc.SessionID, err)
				return errorJSON(c, fiber.StatusInternalServerError, "Failed to log out")
			}
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     g.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   !env.IsDev(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(fiber.Map{"ok": true})
}

func newRawToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
