package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vadesk/VADesk/app/models"
	"github.com/vadesk/VADesk/app/repository"
	"github.com/vadesk/VADesk/internal/pkg/canonical"
	"github.com/vadesk/VADesk/internal/pkg/ingest"
	"github.com/vadesk/VADesk/internal/pkg/objectstore"
)

// accountMergePolicy: createdAt and the activation timestamp are
// first-seen-wins; everything else keeps a populated value over an absent
// incoming one.
var accountMergePolicy = canonical.Policy{
	Default: canonical.OverwriteIfPresent,
	Fields: map[string]canonical.Rule{
		"createdAt":                canonical.KeepExisting,
		"subscription.activatedAt": canonical.KeepExisting,
	},
}

// accountPatch is the partial document a payment event contributes. Nil
// sub-structs drop out of the merge entirely so a confirmation can touch
// subscription state without clobbering processor fields and vice versa.
type accountPatch struct {
	AccountID    string             `json:"accountId,omitempty"`
	Email        string             `json:"email,omitempty"`
	UpdatedAt    time.Time          `json:"updatedAt"`
	Processor    *models.Processor  `json:"processor,omitempty"`
	Subscription *subscriptionPatch `json:"subscription,omitempty"`
}

type subscriptionPatch struct {
	Active      *bool      `json:"active,omitempty"`
	Status      string     `json:"status,omitempty"`
	ActivatedAt *time.Time `json:"activatedAt,omitempty"`
}

// Outcome reports what an accepted payment event did to canonical state.
type Outcome struct {
	Result    ingest.Result
	AccountID string
	Account   *models.Account
}

// Service applies payment events to canonical accounts and maintains the
// correlation index.
type Service struct {
	accounts repository.AccountRepository
	now      func() time.Time
}

// NewService creates a billing service from an injected account repository.
func NewService(accounts repository.AccountRepository) *Service {
	return &Service{accounts: accounts, now: time.Now}
}

// Apply routes one verified, receipted event to its transition. Unhandled
// event types are skipped, not failed: the receipt already exists and the
// sender must see success.
func (s *Service) Apply(ctx context.Context, event *Event) (*Outcome, error) {
	switch event.Type {
	case EventCheckoutCompleted:
		return s.applyCompletion(ctx, event)
	case EventPaymentIntentSucceeded:
		return s.applyConfirmation(ctx, event)
	case EventChargeSucceeded:
		return s.applySupplementary(ctx, event)
	default:
		return &Outcome{Result: ingest.Skipped(ingest.SkipUnhandledType)}, nil
	}
}

// applyCompletion creates-or-merges the account and writes the correlation
// index entry in the same apply step, account first, so the index never
// points at a missing account.
func (s *Service) applyCompletion(ctx context.Context, event *Event) (*Outcome, error) {
	var session CheckoutSession
	if err := event.object(&session); err != nil {
		return nil, err
	}
	if session.PaymentIntent == "" {
		return &Outcome{Result: ingest.Skipped(ingest.SkipMissingFields)}, nil
	}

	now := s.now().UTC()
	accountID := AccountIDForPaymentIntent(session.PaymentIntent)
	active := true
	patch := &accountPatch{
		AccountID: accountID,
		Email:     session.CustomerDetails.Email,
		UpdatedAt: now,
		Processor: &models.Processor{
			Provider:          models.ProviderStripe,
			CustomerID:        session.Customer,
			PaymentIntentID:   session.PaymentIntent,
			CheckoutSessionID: session.ID,
			SubscriptionID:    session.Subscription,
			AmountTotal:       session.AmountTotal,
			Currency:          session.Currency,
		},
		Subscription: &subscriptionPatch{
			Active:      &active,
			Status:      models.SubscriptionStatusActive,
			ActivatedAt: &now,
		},
	}

	account, err := s.upsert(ctx, accountID, patch)
	if err != nil {
		return nil, err
	}

	entry := &models.CorrelationIndexEntry{
		PaymentIntentID: session.PaymentIntent,
		AccountID:       accountID,
		CreatedAt:       now,
	}
	if err := s.accounts.PutCorrelation(ctx, models.ProviderStripe, entry); err != nil {
		return nil, fmt.Errorf("write correlation index for %s: %w", session.PaymentIntent, err)
	}

	return &Outcome{Result: ingest.Applied(), AccountID: accountID, Account: account}, nil
}

// applyConfirmation merges status fields into the account found via the
// correlation index. A confirmation arriving before its completion event
// finds no index entry and is skipped for good; only the receipt remains.
func (s *Service) applyConfirmation(ctx context.Context, event *Event) (*Outcome, error) {
	var intent PaymentIntent
	if err := event.object(&intent); err != nil {
		return nil, err
	}
	if intent.ID == "" {
		return &Outcome{Result: ingest.Skipped(ingest.SkipMissingFields)}, nil
	}

	active := true
	return s.applyByPaymentIntent(ctx, intent.ID, &accountPatch{
		UpdatedAt: s.now().UTC(),
		Processor: &models.Processor{
			PaymentIntentID: intent.ID,
			CustomerID:      intent.Customer,
			AmountTotal:     intent.Amount,
			Currency:        intent.Currency,
		},
		Subscription: &subscriptionPatch{
			Active: &active,
			Status: models.SubscriptionStatusActive,
		},
	})
}

// applySupplementary merges the charge receipt URL via the same
// lookup-by-secondary-id path.
func (s *Service) applySupplementary(ctx context.Context, event *Event) (*Outcome, error) {
	var charge Charge
	if err := event.object(&charge); err != nil {
		return nil, err
	}
	if charge.PaymentIntent == "" {
		return &Outcome{Result: ingest.Skipped(ingest.SkipMissingFields)}, nil
	}

	return s.applyByPaymentIntent(ctx, charge.PaymentIntent, &accountPatch{
		UpdatedAt: s.now().UTC(),
		Processor: &models.Processor{
			PaymentIntentID: charge.PaymentIntent,
			ChargeID:        charge.ID,
			ReceiptURL:      charge.ReceiptURL,
		},
	})
}

func (s *Service) applyByPaymentIntent(ctx context.Context, paymentIntentID string, patch *accountPatch) (*Outcome, error) {
	entry, err := s.accounts.GetCorrelation(ctx, models.ProviderStripe, paymentIntentID)
	if errors.Is(err, objectstore.ErrNotFound) {
		return &Outcome{Result: ingest.Skipped(ingest.SkipNoCorrelation)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup correlation for %s: %w", paymentIntentID, err)
	}

	if _, err := s.accounts.Get(ctx, entry.AccountID); errors.Is(err, objectstore.ErrNotFound) {
		return &Outcome{Result: ingest.Skipped(ingest.SkipAccountMissing), AccountID: entry.AccountID}, nil
	} else if err != nil {
		return nil, fmt.Errorf("load account %s: %w", entry.AccountID, err)
	}

	account, err := s.upsert(ctx, entry.AccountID, patch)
	if err != nil {
		return nil, err
	}
	return &Outcome{Result: ingest.Applied(), AccountID: entry.AccountID, Account: account}, nil
}

// upsert loads (or seeds) the account, merges the patch under the account
// policy and writes the full document back. Read-modify-write, last writer
// wins; the store offers no transaction to do better across keys.
func (s *Service) upsert(ctx context.Context, accountID string, patch *accountPatch) (*models.Account, error) {
	existing, err := s.accounts.Get(ctx, accountID)
	if errors.Is(err, objectstore.ErrNotFound) {
		existing = &models.Account{
			AccountID: accountID,
			CreatedAt: s.now().UTC(),
		}
	} else if err != nil {
		return nil, fmt.Errorf("load account %s: %w", accountID, err)
	}

	var merged models.Account
	if err := canonical.MergeDocuments(existing, patch, &merged, accountMergePolicy); err != nil {
		return nil, fmt.Errorf("merge account %s: %w", accountID, err)
	}

	if err := s.accounts.Put(ctx, &merged); err != nil {
		return nil, fmt.Errorf("write account %s: %w", accountID, err)
	}
	return &merged, nil
}

// SetProjection records the best-effort projection state on the account.
// Failures here are logged by the caller and never fail the request.
func (s *Service) SetProjection(ctx context.Context, accountID string, state models.ProjectionState) error {
	account, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	state.UpdatedAt = &now
	account.Projection = state
	account.UpdatedAt = now
	return s.accounts.Put(ctx, account)
}
