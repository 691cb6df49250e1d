package session

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookieRoundTrip(t *testing.T) {
	t.Parallel()

	codec := NewCookieCodec("top-secret")
	now := time.Unix(1700000000, 0)

	value, err := codec.Mint("sess-1", now.Add(time.Hour))
	require.NoError(t, err)

	sessionID, err := codec.Verify(value, now)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", sessionID)
}

func TestCookieTamperedSignatureRejected(t *testing.T) {
	t.Parallel()

	codec := NewCookieCodec("top-secret")
	now := time.Unix(1700000000, 0)

	value, err := codec.Mint("sess-1", now.Add(time.Hour))
	require.NoError(t, err)

	// Flip one byte in the signature portion
	parts := strings.SplitN(value, ".", 2)
	sig := []byte(parts[1])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + string(sig)

	_, err = codec.Verify(tampered, now)
	assert.ErrorIs(t, err, ErrInvalidCookie)
}

func TestCookieTamperedPayloadRejected(t *testing.T) {
	t.Parallel()

	codec := NewCookieCodec("top-secret")
	other := NewCookieCodec("other-secret")
	now := time.Unix(1700000000, 0)

	// A cookie minted under a different secret must not verify
	value, err := other.Mint("sess-1", now.Add(time.Hour))
	require.NoError(t, err)
	_, err = codec.Verify(value, now)
	assert.ErrorIs(t, err, ErrInvalidCookie)
}

func TestCookieExpiryEnforced(t *testing.T) {
	t.Parallel()

	codec := NewCookieCodec("top-secret")
	now := time.Unix(1700000000, 0)

	value, err := codec.Mint("sess-1", now.Add(-time.Minute))
	require.NoError(t, err)
	_, err = codec.Verify(value, now)
	assert.ErrorIs(t, err, ErrInvalidCookie)
}

func TestCookieGarbageRejected(t *testing.T) {
	t.Parallel()

	codec := NewCookieCodec("top-secret")
	now := time.Unix(1700000000, 0)

	for _, v := range []string{"", "no-dot", "a.b", "!!!.###"} {
		_, err := codec.Verify(v, now)
		assert.ErrorIs(t, err, ErrInvalidCookie, "value %q", v)
	}
}
