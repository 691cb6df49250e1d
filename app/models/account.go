package models

import (
	"fmt"
	"time"
)

const (
	SubscriptionStatusActive = "active"

	ProviderStripe = "stripe"
)

// Account is the canonical subscription/customer record. It is created by the
// first payment-completion event and upserted by later events; CreatedAt is
// immutable after first write.
type Account struct {
	AccountID    string          `json:"accountId"`
	Email        string          `json:"email,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
	Note         string          `json:"note,omitempty"`
	Processor    Processor       `json:"processor"`
	Subscription Subscription    `json:"subscription"`
	Projection   ProjectionState `json:"projection"`
}

// Processor holds identifiers and payment details copied from the billing
// provider. Fields merge keep-if-absent: a populated value is never replaced
// by an empty one.
type Processor struct {
	Provider          string `json:"provider,omitempty"`
	CustomerID        string `json:"customerId,omitempty"`
	PaymentIntentID   string `json:"paymentIntentId,omitempty"`
	CheckoutSessionID string `json:"checkoutSessionId,omitempty"`
	SubscriptionID    string `json:"subscriptionId,omitempty"`
	ChargeID          string `json:"chargeId,omitempty"`
	ReceiptURL        string `json:"receiptUrl,omitempty"`
	AmountTotal       int64  `json:"amountTotal,omitempty"`
	Currency          string `json:"currency,omitempty"`
}

// Subscription is the one-way unknown -> active state; no deactivation event
// is handled by the gateway.
type Subscription struct {
	Active      bool       `json:"active"`
	Status      string     `json:"status,omitempty"`
	ActivatedAt *time.Time `json:"activatedAt,omitempty"`
}

// ProjectionState captures the best-effort mirror into the task tracker. It
// never influences canonical decisions and is only written for later
// inspection.
type ProjectionState struct {
	OK        bool       `json:"ok"`
	CardID    string     `json:"cardId,omitempty"`
	Error     string     `json:"error,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// CorrelationIndexEntry maps a provider-side secondary identifier (the
// payment intent) to the owning account. It is created by the first event
// that knows both identifiers and read by later events lacking an accountId.
type CorrelationIndexEntry struct {
	PaymentIntentID string    `json:"paymentIntentId"`
	AccountID       string    `json:"accountId"`
	CreatedAt       time.Time `json:"createdAt"`
}

// AccountsPrefix is the key prefix all account records live under.
const AccountsPrefix = "accounts/"

// AccountKey addresses the canonical account record.
func AccountKey(accountID string) string {
	return fmt.Sprintf("%s%s.json", AccountsPrefix, accountID)
}

// PaymentIntentKey addresses the correlation index entry for a payment
// intent under the given provider.
func PaymentIntentKey(provider, paymentIntentID string) string {
	return fmt.Sprintf("%s/payment-intents/%s.json", provider, paymentIntentID)
}
