package models

import (
	"fmt"
	"time"
)

// LoginToken is a single-use magic-link credential, stored by the SHA-256 hex
// of the raw token. The raw value is only ever part of the emailed link.
// Marking UsedAt is the one sanctioned mutation; everything else is
// write-once.
type LoginToken struct {
	TokenHash string     `json:"tokenHash"`
	Email     string     `json:"email"`
	AccountID string     `json:"accountId,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
}

// Expired reports whether the token has passed its expiry at the given time.
func (t *LoginToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Used reports whether the token was already consumed.
func (t *LoginToken) Used() bool {
	return t.UsedAt != nil
}

// Session is the server-side session record. The cookie's cryptographic
// validity is necessary but not sufficient: RevokedAt and ExpiresAt on this
// record always win.
type Session struct {
	SessionID string     `json:"sessionId"`
	Email     string     `json:"email"`
	AccountID string     `json:"accountId,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
}

// Valid reports whether the session is unrevoked and unexpired at now.
func (s *Session) Valid(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// LoginTokenKey addresses a token record by its hash.
func LoginTokenKey(tokenHash string) string {
	return fmt.Sprintf("auth/login-tokens/%s.json", tokenHash)
}

// SessionKey addresses a session record.
func SessionKey(sessionID string) string {
	return fmt.Sprintf("auth/sessions/%s.json", sessionID)
}
