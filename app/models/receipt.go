package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Receipt is the immutable record proving an inbound event was accepted.
// Its presence at ReceiptKey(source, eventID) is the sole idempotency
// signal; receipts are written once and never updated or deleted.
type Receipt struct {
	Source     string          `json:"source"`
	EventID    string          `json:"eventId"`
	EventType  string          `json:"eventType,omitempty"`
	ReceivedAt time.Time       `json:"receivedAt"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// ReceiptKey addresses the receipt for (source, eventID).
func ReceiptKey(source, eventID string) string {
	return fmt.Sprintf("receipts/%s/%s.json", source, eventID)
}
