package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Signature verification failures are reported distinctly so the webhook
// response can name the reason without leaking secret material.
var (
	ErrMissingTimestamp   = errors.New("missing timestamp in signature header")
	ErrMissingSignature   = errors.New("missing v1 signature in signature header")
	ErrTimestampTolerance = errors.New("timestamp outside tolerance")
	ErrSignatureMismatch  = errors.New("signature mismatch")
)

// VerifySignature checks a header of the form
//
//	t=<unix-seconds>,v1=<hex-hmac>[,v1=<hex-hmac>...]
//
// against HMAC-SHA256(secret, "{t}.{payload}"). Any v1 candidate matching
// any configured secret accepts, which covers secret rotation on both sides.
// |now - t| must be within tolerance; comparison is constant-time over the
// hex strings.
func VerifySignature(payload []byte, header string, secrets []string, now time.Time, tolerance time.Duration) error {
	timestamp, candidates, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	age := now.Unix() - timestamp
	if age < 0 {
		age = -age
	}
	if age > int64(tolerance/time.Second) {
		return ErrTimestampTolerance
	}

	signedPayload := fmt.Sprintf("%d.%s", timestamp, payload)
	for _, secret := range secrets {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write([]byte(signedPayload))
		expected := hex.EncodeToString(mac.Sum(nil))
		for _, candidate := range candidates {
			if subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(candidate))) == 1 {
				return nil
			}
		}
	}
	return ErrSignatureMismatch
}

func parseSignatureHeader(header string) (int64, []string, error) {
	var (
		timestamp  int64
		hasTS      bool
		candidates []string
	)
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return 0, nil, ErrMissingTimestamp
			}
			timestamp = ts
			hasTS = true
		case "v1":
			if kv[1] != "" {
				candidates = append(candidates, kv[1])
			}
		}
	}
	if !hasTS {
		return 0, nil, ErrMissingTimestamp
	}
	if len(candidates) == 0 {
		return 0, nil, ErrMissingSignature
	}
	return timestamp, candidates, nil
}

// SignPayload produces a valid signature header for the payload at the given
// timestamp. Used by tests and local tooling.
func SignPayload(payload []byte, secret string, at time.Time) string {
	signedPayload := fmt.Sprintf("%d.%s", at.Unix(), payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}
