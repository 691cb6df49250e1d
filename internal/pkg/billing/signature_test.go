package billing

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const testSecret = "whsec_test"

var testTolerance = 5 * time.Minute

func TestVerifySignatureValid(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	payload := []byte(`{"id":"evt_1"}`)
	header := SignPayload(payload, testSecret, now)

	assert.NoError(t, VerifySignature(payload, header, []string{testSecret}, now, testTolerance))
}

func TestVerifySignatureToleranceBoundary(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	payload := []byte(`{"id":"evt_1"}`)

	// Exactly at now-300 is accepted
	header := SignPayload(payload, testSecret, now.Add(-300*time.Second))
	assert.NoError(t, VerifySignature(payload, header, []string{testSecret}, now, testTolerance))

	// now-301 is rejected with the tolerance reason
	header = SignPayload(payload, testSecret, now.Add(-301*time.Second))
	err := VerifySignature(payload, header, []string{testSecret}, now, testTolerance)
	assert.ErrorIs(t, err, ErrTimestampTolerance)

	// Future skew is bounded the same way
	header = SignPayload(payload, testSecret, now.Add(301*time.Second))
	err = VerifySignature(payload, header, []string{testSecret}, now, testTolerance)
	assert.ErrorIs(t, err, ErrTimestampTolerance)
}

func TestVerifySignatureDistinctFailures(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	payload := []byte(`{"id":"evt_1"}`)

	tests := []struct {
		name   string
		header string
		want   error
	}{
		{"empty header", "", ErrMissingTimestamp},
		{"missing timestamp", "v1=abcdef", ErrMissingTimestamp},
		{"garbage timestamp", "t=notanumber,v1=abcdef", ErrMissingTimestamp},
		{"missing v1", fmt.Sprintf("t=%d", now.Unix()), ErrMissingSignature},
		{"wrong signature", fmt.Sprintf("t=%d,v1=%s", now.Unix(), strings.Repeat("ab", 32)), ErrSignatureMismatch},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := VerifySignature(payload, tc.header, []string{testSecret}, now, testTolerance)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestVerifySignatureSecretRotation(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	payload := []byte(`{"id":"evt_1"}`)

	// Signed with the previous secret, verified against [current, previous]
	header := SignPayload(payload, "whsec_old", now)
	err := VerifySignature(payload, header, []string{"whsec_new", "whsec_old"}, now, testTolerance)
	assert.NoError(t, err)
}

func TestVerifySignatureMultipleV1Candidates(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	payload := []byte(`{"id":"evt_1"}`)

	valid := SignPayload(payload, testSecret, now)
	// Prepend a stale candidate; any v1 match must accept
	header := fmt.Sprintf("t=%d,v1=%s,%s", now.Unix(), strings.Repeat("00", 32), strings.SplitN(valid, ",", 2)[1])
	assert.NoError(t, VerifySignature(payload, header, []string{testSecret}, now, testTolerance))
}
