package config

import (
	"errors"
	"strings"
	"time"

	"github.com/vadesk/VADesk/internal/pkg/env"
)

// Config is the immutable runtime configuration for the gateway. It is built
// exactly once at process start via Load and handed to every component that
// needs it; handlers never read the environment directly.
type Config struct {
	AppHost string
	AppPort string

	// AuthSecret signs session cookies.
	AuthSecret string
	// WebhookSecrets holds the active webhook signing secret first, followed
	// by previous secrets still accepted during rotation.
	WebhookSecrets []string
	// WebhookTolerance bounds |now - t| on the signature timestamp.
	WebhookTolerance time.Duration

	// CORSOrigin is the single origin allowed to make credentialed
	// cross-origin requests. Empty means same-origin only.
	CORSOrigin string

	CookieName string
	// ConfirmRedirectURL is where /auth/confirm sends the browser after
	// consuming a login token.
	ConfirmRedirectURL string

	TokenTTL   time.Duration
	SessionTTL time.Duration

	// Redis cache binding (optional; empty host disables caching, counters
	// and the redis-backed rate limiter storage).
	CacheHost     string
	CachePort     string
	CachePassword string

	// Projection sink (optional).
	ProjectionBaseURL        string
	ProjectionKey            string
	ProjectionToken          string
	ProjectionSupportListID  string
	ProjectionPaymentsListID string

	// Basic auth for /metrics and /api/v1/stats.
	MetricsUser     string
	MetricsPassword string
}

// Load reads the environment once and validates required bindings. Call
// env.SetupEnvFile first. A missing secret fails closed at startup rather
// than per request.
func Load() (*Config, error) {
	cfg := &Config{
		AppHost:            env.GetEnv("APP_HOST", "localhost"),
		AppPort:            env.GetEnv("APP_PORT", "4000"),
		AuthSecret:         strings.TrimSpace(env.GetEnv("AUTH_SECRET", "")),
		WebhookTolerance:   5 * time.Minute,
		CORSOrigin:         strings.TrimSpace(env.GetEnv("CORS_ALLOW_ORIGIN", "")),
		CookieName:         env.GetEnv("SESSION_COOKIE_NAME", "vadesk_session"),
		ConfirmRedirectURL: env.GetEnv("AUTH_CONFIRM_REDIRECT", "/"),
		TokenTTL:           15 * time.Minute,
		SessionTTL:         7 * 24 * time.Hour,

		CacheHost:     env.GetEnv("CACHE_HOST", ""),
		CachePort:     env.GetEnv("CACHE_PORT", "6379"),
		CachePassword: env.GetEnv("CACHE_PASSWORD", ""),

		ProjectionBaseURL:        strings.TrimSpace(env.GetEnv("PROJECTION_BASE_URL", "")),
		ProjectionKey:            strings.TrimSpace(env.GetEnv("PROJECTION_KEY", "")),
		ProjectionToken:          strings.TrimSpace(env.GetEnv("PROJECTION_TOKEN", "")),
		ProjectionSupportListID:  strings.TrimSpace(env.GetEnv("PROJECTION_SUPPORT_LIST_ID", "")),
		ProjectionPaymentsListID: strings.TrimSpace(env.GetEnv("PROJECTION_PAYMENTS_LIST_ID", "")),

		MetricsUser:     env.GetEnv("METRICS_USER", "admin"),
		MetricsPassword: env.GetEnv("METRICS_PASSWORD", ""),
	}

	if primary := strings.TrimSpace(env.GetEnv("STRIPE_WEBHOOK_SECRET", "")); primary != "" {
		cfg.WebhookSecrets = append(cfg.WebhookSecrets, primary)
	}
	if prev := strings.TrimSpace(env.GetEnv("STRIPE_WEBHOOK_SECRET_PREVIOUS", "")); prev != "" {
		cfg.WebhookSecrets = append(cfg.WebhookSecrets, prev)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.AuthSecret == "" {
		return errors.New("AUTH_SECRET is required")
	}
	if len(c.WebhookSecrets) == 0 {
		return errors.New("STRIPE_WEBHOOK_SECRET is required")
	}
	return nil
}

// ProjectionEnabled reports whether a projection sink is configured.
func (c *Config) ProjectionEnabled() bool {
	return c.ProjectionBaseURL != "" || (c.ProjectionKey != "" && c.ProjectionToken != "")
}

// CacheEnabled reports whether a redis binding is configured.
func (c *Config) CacheEnabled() bool {
	return c.CacheHost != ""
}
