package models

import (
	"fmt"
	"time"
)

const (
	SupportStatusOpen = "open"
)

// SupportThread accumulates the support conversation for one logical
// submission stream. The supportId is derived deterministically from the
// submission's idempotency key, so retries always address the same thread.
type SupportThread struct {
	SupportID    string           `json:"supportId"`
	AccountID    string           `json:"accountId,omitempty"`
	Email        string           `json:"email,omitempty"`
	Status       string           `json:"status"`
	Messages     []SupportMessage `json:"messages"`
	LatestUpdate string           `json:"latestUpdate,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
	Projection   ProjectionState  `json:"projection"`
}

// SupportMessage is one appended entry in the thread's message log.
type SupportMessage struct {
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// SupportThreadKey addresses the thread document.
func SupportThreadKey(supportID string) string {
	return fmt.Sprintf("support/%s.json", supportID)
}
