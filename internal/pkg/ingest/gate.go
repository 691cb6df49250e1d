// Package ingest implements the receipt-gated idempotent mutation protocol
// shared by every mutating entry point: write the receipt before any
// canonical mutation, report deduped on replay, and never fail a request
// after the receipt is durable.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/vadesk/VADesk/app/models"
	"github.com/vadesk/VADesk/app/repository"
	"github.com/vadesk/VADesk/internal/pkg/objectstore"
)

// SkipReason explains why an accepted event produced no canonical mutation.
// These are not errors: the receipt exists and the sender sees success.
type SkipReason string

const (
	SkipNone           SkipReason = ""
	SkipNoCorrelation  SkipReason = "no correlation index entry for payment intent"
	SkipAccountMissing SkipReason = "correlation index points to a missing account"
	SkipMissingFields  SkipReason = "event payload lacks required identifiers"
	SkipUnhandledType  SkipReason = "unhandled event type"
)

// Result is the structured outcome of applying an accepted event.
type Result struct {
	Applied bool
	Reason  SkipReason
}

// Applied is the all-good result.
func Applied() Result { return Result{Applied: true} }

// Skipped builds a not-applied result with its reason.
func Skipped(reason SkipReason) Result { return Result{Reason: reason} }

// Gate records the receipt for the event. It returns deduped=true when a
// receipt for (source, eventID) already exists, in which case the caller
// must stop without further writes. The receipt write happens strictly
// before the canonical mutation it guards.
func Gate(ctx context.Context, receipts repository.ReceiptRepository, receipt *models.Receipt) (bool, error) {
	err := receipts.Create(ctx, receipt)
	if errors.Is(err, objectstore.ErrKeyExists) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("write receipt %s/%s: %w", receipt.Source, receipt.EventID, err)
	}
	return false, nil
}
