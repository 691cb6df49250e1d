package controllers_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadesk/VADesk/app/controllers"
	"github.com/vadesk/VADesk/app/models"
	"github.com/vadesk/VADesk/app/repository"
	"github.com/vadesk/VADesk/internal/pkg/billing"
	"github.com/vadesk/VADesk/internal/pkg/config"
	"github.com/vadesk/VADesk/internal/pkg/objectstore"
	"github.com/vadesk/VADesk/internal/pkg/projection"
	"github.com/vadesk/VADesk/internal/pkg/router"
	"github.com/vadesk/VADesk/internal/pkg/session"
)

const testWebhookSecret = "whsec_test"

type testEnv struct {
	app   *fiber.App
	store *objectstore.MemoryStore
	repos *repository.Repositories
	codec *session.CookieCodec
	cfg   *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newSinkEnv(t, nil)
}

func newSinkEnv(t *testing.T, sink *projection.Client) *testEnv {
	t.Helper()

	cfg := &config.Config{
		AuthSecret:         "test-auth-secret",
		WebhookSecrets:     []string{testWebhookSecret},
		WebhookTolerance:   5 * time.Minute,
		CookieName:         "vadesk_session",
		ConfirmRedirectURL: "/welcome",
		TokenTTL:           15 * time.Minute,
		SessionTTL:         7 * 24 * time.Hour,
		MetricsUser:        "admin",
	}

	store := objectstore.NewMemoryStore()
	repos := repository.NewRepositories(store)
	codec := session.NewCookieCodec(cfg.AuthSecret)
	gateway := controllers.NewGateway(cfg, repos, codec, nil, nil, sink)

	app := fiber.New()
	router.InstallRouter(app, router.Deps{
		Config:  cfg,
		Gateway: gateway,
		Codec:   codec,
		Auth:    repos.Auth,
	})

	return &testEnv{app: app, store: store, repos: repos, codec: codec, cfg: cfg}
}

func (e *testEnv) request(t *testing.T, req *http.Request) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := e.app.Test(req, 5000)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var body map[string]interface{}
	if len(raw) > 0 && strings.Contains(resp.Header.Get("Content-Type"), "json") {
		require.NoError(t, json.Unmarshal(raw, &body), "body: %s", raw)
	}
	return resp, body
}

func webhookRequest(payload []byte, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/stripe/webhook", strings.NewReader(string(payload)))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	return req
}

func signedWebhookRequest(payload []byte) *http.Request {
	return webhookRequest(payload, billing.SignPayload(payload, testWebhookSecret, time.Now()))
}

// fakeTracker stands in for the card API the projection sink posts to.
type fakeTracker struct {
	srv   *httptest.Server
	cards int
	fail  bool
}

func newFakeTracker(t *testing.T) (*fakeTracker, *projection.Client) {
	t.Helper()

	f := &fakeTracker{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f.fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPost && r.URL.Path == "/cards" {
			f.cards++
			fmt.Fprintf(w, `{"id":"card_%d"}`, f.cards)
			return
		}
		fmt.Fprint(w, `{}`)
	}))
	t.Cleanup(f.srv.Close)

	sink := &projection.Client{
		BaseURL:        f.srv.URL,
		Key:            "key",
		Token:          "token",
		SupportListID:  "list_support",
		PaymentsListID: "list_payments",
		HTTPClient:     f.srv.Client(),
	}
	return f, sink
}

func completionPayload(eventID, paymentIntent, email string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"type": "checkout.session.completed",
		"created": 1700000000,
		"data": {"object": {
			"id": "cs_1",
			"customer": "cus_1",
			"payment_intent": %q,
			"amount_total": 4900,
			"currency": "usd",
			"customer_details": {"email": %q}
		}}
	}`, eventID, paymentIntent, email))
}

func TestWebhookRejectsUnsignedAndTamperedRequests(t *testing.T) {
	env := newTestEnv(t)
	payload := completionPayload("evt_1", "pi_1", "jane@example.com")

	cases := []struct {
		name      string
		signature string
	}{
		{"missing header", ""},
		{"garbage header", "not-a-signature"},
		{"wrong secret", billing.SignPayload(payload, "whsec_other", time.Now())},
		{"stale timestamp", billing.SignPayload(payload, testWebhookSecret, time.Now().Add(-10*time.Minute))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := env.request(t, webhookRequest(payload, tc.signature))
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.NotEmpty(t, body["error"])
		})
	}

	// Rejections happen before the receipt gate: nothing was written
	assert.Equal(t, 0, env.store.Len())
}

func TestWebhookCompletionCreatesAccountAndDedupesReplay(t *testing.T) {
	env := newTestEnv(t)
	payload := completionPayload("evt_1", "pi_1", "jane@example.com")

	resp, body := env.request(t, signedWebhookRequest(payload))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, true, body["applied"])
	assert.Equal(t, "acct_pi_1", body["accountId"])

	ctx := context.Background()
	account, err := env.repos.Account.Get(ctx, "acct_pi_1")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", account.Email)
	assert.True(t, account.Subscription.Active)
	assert.Equal(t, models.SubscriptionStatusActive, account.Subscription.Status)

	entry, err := env.repos.Account.GetCorrelation(ctx, models.ProviderStripe, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, "acct_pi_1", entry.AccountID)

	objects := env.store.Len()

	resp, body = env.request(t, signedWebhookRequest(payload))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["deduped"])
	assert.Equal(t, "evt_1", body["eventId"])
	assert.Equal(t, objects, env.store.Len(), "replay must not write anything")
}

func TestWebhookConfirmationBeforeCompletionIsSkipped(t *testing.T) {
	env := newTestEnv(t)
	payload := []byte(`{
		"id": "evt_2",
		"type": "payment_intent.succeeded",
		"data": {"object": {"id": "pi_unknown", "status": "succeeded"}}
	}`)

	resp, body := env.request(t, signedWebhookRequest(payload))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, false, body["applied"])
	assert.NotEmpty(t, body["note"])

	// Receipt persists, no account appeared
	exists, err := env.repos.Receipt.Exists(context.Background(), "stripe", "evt_2")
	require.NoError(t, err)
	assert.True(t, exists)
	keys, err := env.store.List(context.Background(), models.AccountsPrefix)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestWebhookEventSequenceEnrichesAccount(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.request(t, signedWebhookRequest(completionPayload("evt_1", "pi_1", "jane@example.com")))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	ctx := context.Background()
	created, err := env.repos.Account.Get(ctx, "acct_pi_1")
	require.NoError(t, err)

	confirmation := []byte(`{
		"id": "evt_2",
		"type": "payment_intent.succeeded",
		"data": {"object": {"id": "pi_1", "customer": "cus_1", "status": "succeeded", "amount": 4900, "currency": "usd"}}
	}`)
	resp, body := env.request(t, signedWebhookRequest(confirmation))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["applied"])

	charge := []byte(`{
		"id": "evt_3",
		"type": "charge.succeeded",
		"data": {"object": {"id": "ch_1", "payment_intent": "pi_1", "receipt_url": "https://pay.example.com/r/1"}}
	}`)
	resp, body = env.request(t, signedWebhookRequest(charge))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["applied"])

	account, err := env.repos.Account.Get(ctx, "acct_pi_1")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", account.Email, "later events must not clear the email")
	assert.Equal(t, "https://pay.example.com/r/1", account.Processor.ReceiptURL)
	assert.Equal(t, "ch_1", account.Processor.ChargeID)
	assert.True(t, account.Subscription.Active)
	assert.Equal(t, created.CreatedAt, account.CreatedAt, "createdAt is first-seen-wins")
	require.NotNil(t, account.Subscription.ActivatedAt)
	assert.Equal(t, created.Subscription.ActivatedAt, account.Subscription.ActivatedAt)
}

func TestWebhookCanonicalFailureAfterReceiptStaysSuccess(t *testing.T) {
	env := newTestEnv(t)
	env.store.FailPut = func(key string) error {
		if strings.HasPrefix(key, models.AccountsPrefix) {
			return fmt.Errorf("injected store outage")
		}
		return nil
	}

	resp, body := env.request(t, signedWebhookRequest(completionPayload("evt_1", "pi_1", "jane@example.com")))
	require.Equal(t, fiber.StatusOK, resp.StatusCode, "post-receipt failures must not trigger a retry")
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, false, body["applied"])
	assert.NotEmpty(t, body["note"])

	exists, err := env.repos.Receipt.Exists(context.Background(), "stripe", "evt_1")
	require.NoError(t, err)
	assert.True(t, exists)

	// A retry after the outage is deduped rather than reprocessed: the event
	// is receipted, not reapplied. At-least-once delivery, no double send.
	env.store.FailPut = nil
	resp, body = env.request(t, signedWebhookRequest(completionPayload("evt_1", "pi_1", "jane@example.com")))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["deduped"])
	keys, err := env.store.List(context.Background(), models.AccountsPrefix)
	require.NoError(t, err)
	assert.Empty(t, keys, "the deduped retry must not resurrect the lost write")
}

func TestWebhookProjectionMirrorsActivationOnce(t *testing.T) {
	tracker, sink := newFakeTracker(t)
	env := newSinkEnv(t, sink)
	payload := completionPayload("evt_1", "pi_1", "jane@example.com")

	resp, body := env.request(t, signedWebhookRequest(payload))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	proj, ok := body["projection"].(map[string]interface{})
	require.True(t, ok, "activation responses carry the mirror outcome")
	assert.Equal(t, true, proj["ok"])
	assert.Equal(t, "card_1", proj["cardId"])

	account, err := env.repos.Account.Get(context.Background(), "acct_pi_1")
	require.NoError(t, err)
	assert.True(t, account.Projection.OK)
	assert.Equal(t, "card_1", account.Projection.CardID)

	// The deduped replay must not reach the tracker a second time
	resp, body = env.request(t, signedWebhookRequest(payload))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["deduped"])
	assert.Equal(t, 1, tracker.cards)
}

func TestWebhookProjectionFailureIsCapturedNotFatal(t *testing.T) {
	tracker, sink := newFakeTracker(t)
	tracker.fail = true
	env := newSinkEnv(t, sink)

	resp, body := env.request(t, signedWebhookRequest(completionPayload("evt_1", "pi_1", "jane@example.com")))
	require.Equal(t, fiber.StatusOK, resp.StatusCode, "a mirror outage must not fail the webhook")
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, true, body["applied"])
	proj, ok := body["projection"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, false, proj["ok"])
	assert.NotEmpty(t, proj["error"])

	// The failure lands on the canonical object for later inspection
	account, err := env.repos.Account.Get(context.Background(), "acct_pi_1")
	require.NoError(t, err)
	assert.False(t, account.Projection.OK)
	assert.NotEmpty(t, account.Projection.Error)
}

func TestSupportSubmitRequiresSession(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/forms/support/message",
		strings.NewReader(`{"subject":"Hi","message":"Hello"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, body := env.request(t, req)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", body["error"])
	assert.Equal(t, 0, env.store.Len())
}

func TestSupportSubmitRejectsUnknownFields(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.loginAs(t, "jane@example.com", "acct_pi_1")
	written := env.store.Len()

	req := httptest.NewRequest(http.MethodPost, "/forms/support/message",
		strings.NewReader(`{"subject":"Hi","mesage":"typo"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	resp, body := env.request(t, req)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "mesage")
	assert.Equal(t, written, env.store.Len(), "validation failures must precede the receipt gate")

	// Tracking fields are dropped, not rejected
	req = httptest.NewRequest(http.MethodPost, "/forms/support/message",
		strings.NewReader(`{"subject":"Hi","message":"Hello","utm_source":"newsletter"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	resp, _ = env.request(t, req)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestSupportSubmitDedupesOnIdempotencyKey(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.loginAs(t, "jane@example.com", "acct_pi_1")
	payload := `{"subject":"Billing question","message":"Where is my invoice?","idempotencyKey":"form-abc"}`

	submit := func() (*http.Response, map[string]interface{}) {
		req := httptest.NewRequest(http.MethodPost, "/forms/support/message", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.AddCookie(cookie)
		return env.request(t, req)
	}

	resp, body := submit()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	supportID, _ := body["supportId"].(string)
	require.NotEmpty(t, supportID)
	assert.True(t, strings.HasPrefix(supportID, "SUP-"))

	resp, body = submit()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["deduped"])
	assert.Equal(t, supportID, body["supportId"], "retries address the same thread")

	thread, err := env.repos.Support.Get(context.Background(), supportID)
	require.NoError(t, err)
	assert.Len(t, thread.Messages, 1, "the deduped retry must not append")
	assert.Equal(t, models.SupportStatusOpen, thread.Status)
	assert.Equal(t, "jane@example.com", thread.Email, "identity comes from the session")
	assert.Equal(t, "acct_pi_1", thread.AccountID)

	req := httptest.NewRequest(http.MethodGet, "/support/status?supportId="+supportID, nil)
	resp, body = env.request(t, req)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "open", body["status"])
	assert.Equal(t, float64(1), body["messageCount"])
}

func TestSupportProjectionOpensOneCardPerThread(t *testing.T) {
	tracker, sink := newFakeTracker(t)
	env := newSinkEnv(t, sink)
	cookie := env.loginAs(t, "jane@example.com", "acct_pi_1")
	payload := `{"subject":"Billing question","message":"Where is my invoice?","idempotencyKey":"form-abc"}`

	submit := func() (*http.Response, map[string]interface{}) {
		req := httptest.NewRequest(http.MethodPost, "/forms/support/message", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.AddCookie(cookie)
		return env.request(t, req)
	}

	resp, body := submit()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	proj, ok := body["projection"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, proj["ok"])
	assert.Equal(t, "card_1", proj["cardId"])

	supportID, _ := body["supportId"].(string)
	require.NotEmpty(t, supportID)
	thread, err := env.repos.Support.Get(context.Background(), supportID)
	require.NoError(t, err)
	assert.Equal(t, "card_1", thread.Projection.CardID)

	// The deduped retry acknowledges without a second card
	resp, body = submit()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["deduped"])
	assert.Equal(t, 1, tracker.cards)
}

func TestSupportProjectionFailureIsCapturedOnThread(t *testing.T) {
	tracker, sink := newFakeTracker(t)
	tracker.fail = true
	env := newSinkEnv(t, sink)
	cookie := env.loginAs(t, "jane@example.com", "acct_pi_1")

	req := httptest.NewRequest(http.MethodPost, "/forms/support/message",
		strings.NewReader(`{"subject":"Hi","message":"Hello","idempotencyKey":"form-xyz"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	resp, body := env.request(t, req)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])
	proj, ok := body["projection"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, false, proj["ok"])
	assert.NotEmpty(t, proj["error"])

	supportID, _ := body["supportId"].(string)
	thread, err := env.repos.Support.Get(context.Background(), supportID)
	require.NoError(t, err)
	assert.False(t, thread.Projection.OK)
	assert.NotEmpty(t, thread.Projection.Error)
	assert.Len(t, thread.Messages, 1, "the thread itself is unaffected by the mirror outage")
}

func TestSupportStatusErrors(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.request(t, httptest.NewRequest(http.MethodGet, "/support/status", nil))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = env.request(t, httptest.NewRequest(http.MethodGet, "/support/status?supportId=SUP-FFFFFFFF", nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func hashRawToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func TestAuthLoginIssuesTokenWithoutLeakingAccountExistence(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"not-an-address"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := env.request(t, req)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"nobody@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, body := env.request(t, req)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"], "unknown addresses get the same answer as known ones")

	keys, err := env.store.List(context.Background(), "auth/login-tokens/")
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestAuthConfirmFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()

	raw := "raw-test-token"
	require.NoError(t, env.repos.Auth.CreateLoginToken(ctx, &models.LoginToken{
		TokenHash: hashRawToken(raw),
		Email:     "jane@example.com",
		AccountID: "acct_pi_1",
		CreatedAt: now,
		ExpiresAt: now.Add(15 * time.Minute),
	}))

	resp, _ := env.request(t, httptest.NewRequest(http.MethodGet, "/auth/confirm", nil))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "missing token")

	resp, _ = env.request(t, httptest.NewRequest(http.MethodGet, "/auth/confirm?token=wrong", nil))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "unknown token")

	resp, _ = env.request(t, httptest.NewRequest(http.MethodGet, "/auth/confirm?token="+raw, nil))
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/welcome", resp.Header.Get("Location"))

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == env.cfg.CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "confirm must set the session cookie")
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure, "Secure is only dropped under APP_ENV=dev")
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	// The cookie authenticates /auth/session
	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.AddCookie(cookie)
	resp, body := env.request(t, req)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, "jane@example.com", body["email"])
	assert.Equal(t, "acct_pi_1", body["accountId"])

	// Single use: the same token cannot be consumed twice
	resp, errBody := env.request(t, httptest.NewRequest(http.MethodGet, "/auth/confirm?token="+raw, nil))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, errBody["error"], "used")

	// Logout revokes server-side; the old cookie stops working even if kept
	req = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(cookie)
	resp, _ = env.request(t, req)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.AddCookie(cookie)
	resp, body = env.request(t, req)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["authenticated"])
}

func TestAuthConfirmExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now().UTC()

	raw := "expired-token"
	require.NoError(t, env.repos.Auth.CreateLoginToken(context.Background(), &models.LoginToken{
		TokenHash: hashRawToken(raw),
		Email:     "jane@example.com",
		CreatedAt: now.Add(-time.Hour),
		ExpiresAt: now.Add(-45 * time.Minute),
	}))

	resp, body := env.request(t, httptest.NewRequest(http.MethodGet, "/auth/confirm?token="+raw, nil))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "expired")
}

func TestTamperedSessionCookieIsAnonymous(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()

	sess := &models.Session{
		SessionID: "sess-1",
		Email:     "jane@example.com",
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, env.repos.Auth.CreateSession(ctx, sess))

	value, err := env.codec.Mint(sess.SessionID, sess.ExpiresAt)
	require.NoError(t, err)

	tampered := value[:len(value)-2] + "xx"
	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.AddCookie(&http.Cookie{Name: env.cfg.CookieName, Value: tampered})
	resp, body := env.request(t, req)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["authenticated"])
}

func (e *testEnv) loginAs(t *testing.T, email, accountID string) *http.Cookie {
	t.Helper()
	now := time.Now().UTC()
	sess := &models.Session{
		SessionID: "sess-" + accountID,
		Email:     email,
		AccountID: accountID,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, e.repos.Auth.CreateSession(context.Background(), sess))
	value, err := e.codec.Mint(sess.SessionID, sess.ExpiresAt)
	require.NoError(t, err)
	return &http.Cookie{Name: e.cfg.CookieName, Value: value}
}

func publishRequest(form url.Values, cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/forms/va/publish", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func TestPublishRequiresSession(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.request(t, publishRequest(url.Values{"displayName": {"Jane Doe"}}, nil))
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", body["error"])
}

func TestPublishCreatesProfileAndDirectoryEntry(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.loginAs(t, "jane@example.com", "acct_pi_1")

	resp, body := env.request(t, publishRequest(url.Values{
		"displayName": {"Jane Doe"},
		"headline":    {"Inbox zero, every day"},
		"services":    {"email, scheduling"},
	}, cookie))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "jane-doe", body["slug"])

	ctx := context.Background()
	page, err := env.repos.Directory.GetProfile(ctx, "jane-doe")
	require.NoError(t, err)
	assert.Equal(t, "acct_pi_1", page.AccountID)
	assert.Equal(t, []string{"email", "scheduling"}, page.Services)
	firstCreatedAt := page.CreatedAt

	resp, dirBody := env.request(t, httptest.NewRequest(http.MethodGet, "/directory", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	entries, ok := dirBody["entries"].([]interface{})
	require.True(t, ok)
	require.Len(t, entries, 1)

	// Republish replaces the document but keeps its creation time
	resp, _ = env.request(t, publishRequest(url.Values{
		"slug":        {"jane-doe"},
		"displayName": {"Jane A. Doe"},
	}, cookie))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	page, err = env.repos.Directory.GetProfile(ctx, "jane-doe")
	require.NoError(t, err)
	assert.Equal(t, "Jane A. Doe", page.DisplayName)
	assert.Equal(t, firstCreatedAt, page.CreatedAt)

	index, err := env.repos.Directory.GetIndex(ctx)
	require.NoError(t, err)
	require.Len(t, index.Entries, 1, "republish must not duplicate the entry")
	assert.Equal(t, "Jane A. Doe", index.Entries[0].DisplayName)
}

func TestPublishRejectsForeignSlug(t *testing.T) {
	env := newTestEnv(t)
	jane := env.loginAs(t, "jane@example.com", "acct_pi_1")
	mallory := env.loginAs(t, "mallory@example.com", "acct_pi_2")

	resp, _ := env.request(t, publishRequest(url.Values{"displayName": {"Jane Doe"}}, jane))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body := env.request(t, publishRequest(url.Values{
		"slug":        {"jane-doe"},
		"displayName": {"Someone Else"},
	}, mallory))
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.NotEmpty(t, body["error"])
}

func TestDirectoryIsSortedBySlug(t *testing.T) {
	env := newTestEnv(t)

	ctx := context.Background()
	for _, name := range []string{"Zoe", "Amy", "Mia"} {
		cookie := env.loginAs(t, strings.ToLower(name)+"@example.com", "acct_"+name)
		resp, _ := env.request(t, publishRequest(url.Values{"displayName": {name}}, cookie))
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	index, err := env.repos.Directory.GetIndex(ctx)
	require.NoError(t, err)
	require.Len(t, index.Entries, 3)
	assert.Equal(t, "amy", index.Entries[0].Slug)
	assert.Equal(t, "mia", index.Entries[1].Slug)
	assert.Equal(t, "zoe", index.Entries[2].Slug)
}

func TestProfileLookup(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.loginAs(t, "jane@example.com", "acct_pi_1")
	resp, _ := env.request(t, publishRequest(url.Values{"displayName": {"Jane Doe"}}, cookie))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body := env.request(t, httptest.NewRequest(http.MethodGet, "/directory/jane-doe", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Jane Doe", body["displayName"])

	resp, _ = env.request(t, httptest.NewRequest(http.MethodGet, "/directory/no-such-slug", nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestUnmatchedRoutesAndMethodsAreDenied(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.request(t, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Not found", body["error"])
	assert.Equal(t, "/nope", body["path"])

	resp, body = env.request(t, httptest.NewRequest(http.MethodDelete, "/directory", nil))
	assert.Equal(t, fiber.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, http.MethodDelete, body["method"])

	// HEAD is outside the surface even though Fiber would serve it for GETs
	resp, _ = env.request(t, httptest.NewRequest(http.MethodHead, "/health", nil))
	assert.Equal(t, fiber.StatusMethodNotAllowed, resp.StatusCode)

	resp, _ = env.request(t, httptest.NewRequest(http.MethodOptions, "/forms/support/message", nil))
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.request(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])
}
