package billing

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Handled event types. Everything else is receipted and skipped.
const (
	EventCheckoutCompleted      = "checkout.session.completed"
	EventPaymentIntentSucceeded = "payment_intent.succeeded"
	EventChargeSucceeded        = "charge.succeeded"
)

// Event is the provider's envelope. Data.Object stays raw until the type is
// known; no field is accessed without a declared shape.
type Event struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// CheckoutSession is the completion event payload: the first event that
// knows both the customer and the payment intent.
type CheckoutSession struct {
	ID              string `json:"id"`
	Customer        string `json:"customer"`
	PaymentIntent   string `json:"payment_intent"`
	Subscription    string `json:"subscription"`
	AmountTotal     int64  `json:"amount_total"`
	Currency        string `json:"currency"`
	CustomerDetails struct {
		Email string `json:"email"`
	} `json:"customer_details"`
}

// PaymentIntent is the confirmation event payload: secondary id only.
type PaymentIntent struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Charge is the supplementary event payload carrying the receipt URL.
type Charge struct {
	ID            string `json:"id"`
	PaymentIntent string `json:"payment_intent"`
	ReceiptURL    string `json:"receipt_url"`
	Status        string `json:"status"`
}

// ParseEvent validates the envelope. An event without id or type cannot be
// receipted and is rejected before any write.
func ParseEvent(raw []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, fmt.Errorf("malformed event JSON: %w", err)
	}
	if event.ID == "" {
		return nil, errors.New("event is missing id")
	}
	if event.Type == "" {
		return nil, errors.New("event is missing type")
	}
	return &event, nil
}

func (e *Event) object(out any) error {
	if len(e.Data.Object) == 0 {
		return errors.New("event is missing data.object")
	}
	if err := json.Unmarshal(e.Data.Object, out); err != nil {
		return fmt.Errorf("malformed data.object for %s: %w", e.Type, err)
	}
	return nil
}

// AccountIDForPaymentIntent derives the canonical account identifier from
// the payment intent of the completion event. One rule, applied everywhere.
func AccountIDForPaymentIntent(paymentIntentID string) string {
	return "acct_" + paymentIntentID
}
