package repository

import (
	"context"
	"strings"

	"github.com/vadesk/VADesk/app/models"
	"github.com/vadesk/VADesk/internal/pkg/objectstore"
)

type accountRepository struct {
	store objectstore.Store
}

func (r *accountRepository) Get(ctx context.Context, accountID string) (*models.Account, error) {
	var account models.Account
	if err := getJSON(ctx, r.store, models.AccountKey(accountID), &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// FindByEmail walks the account prefix. The account population is small
// enough that a scan beats maintaining a second index that could drift.
func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	keys, err := r.store.List(ctx, models.AccountsPrefix)
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		var account models.Account
		if err := getJSON(ctx, r.store, key, &account); err != nil {
			return nil, err
		}
		if strings.EqualFold(account.Email, email) {
			return &account, nil
		}
	}
	return nil, objectstore.ErrNotFound
}

func (r *accountRepository) Put(ctx context.Context, account *models.Account) error {
	return putJSON(ctx, r.store, models.AccountKey(account.AccountID), account)
}

func (r *accountRepository) GetCorrelation(ctx context.Context, provider, paymentIntentID string) (*models.CorrelationIndexEntry, error) {
	var entry models.CorrelationIndexEntry
	key := models.PaymentIntentKey(provider, paymentIntentID)
	if err := getJSON(ctx, r.store, key, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *accountRepository) PutCorrelation(ctx context.Context, provider string, entry *models.CorrelationIndexEntry) error {
	key := models.PaymentIntentKey(provider, entry.PaymentIntentID)
	return putJSON(ctx, r.store, key, entry)
}
