package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidCookie = errors.New("invalid session cookie")
)

// cookieClaims is the public half of the session cookie. The sessionId is
// only trusted after the HMAC checks out AND the server-side session record
// is found unrevoked and unexpired.
type cookieClaims struct {
	SessionID string `json:"sessionId"`
	ExpiresAt int64  `json:"expiresAt"`
}

// CookieCodec mints and verifies the signed session cookie value:
// base64url(JSON{sessionId, expiresAt}) + "." + base64url(HMAC-SHA256(secret, b64)).
type CookieCodec struct {
	secret []byte
}

func NewCookieCodec(secret string) *CookieCodec {
	return &CookieCodec{secret: []byte(secret)}
}

// Mint produces the cookie value for a session.
func (c *CookieCodec) Mint(sessionID string, expiresAt time.Time) (string, error) {
	if len(c.secret) == 0 {
		return "", errors.New("secret is required for cookie minting")
	}
	payload, err := json.Marshal(cookieClaims{
		SessionID: sessionID,
		ExpiresAt: expiresAt.Unix(),
	})
	if err != nil {
		return "", err
	}
	b64 := base64.RawURLEncoding.EncodeToString(payload)
	return b64 + "." + base64.RawURLEncoding.EncodeToString(c.sign(b64)), nil
}

// Verify recomputes the HMAC over the payload half and, on a constant-time
// match, returns the embedded sessionId. Expiry embedded in the cookie is
// checked here; revocation is the caller's server-side lookup.
func (c *CookieCodec) Verify(value string, now time.Time) (string, error) {
	if len(c.secret) == 0 {
		return "", errors.New("secret is required for cookie verification")
	}
	parts := strings.SplitN(value, ".", 2)
	if len(parts) != 2 {
		return "", ErrInvalidCookie
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", ErrInvalidCookie
	}
	if !hmac.Equal(c.sign(parts[0]), sig) {
		return "", ErrInvalidCookie
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", ErrInvalidCookie
	}
	var claims cookieClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return "", ErrInvalidCookie
	}
	if claims.SessionID == "" || now.Unix() > claims.ExpiresAt {
		return "", ErrInvalidCookie
	}
	return claims.SessionID, nil
}

func (c *CookieCodec) sign(b64 string) []byte {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(b64))
	return mac.Sum(nil)
}
