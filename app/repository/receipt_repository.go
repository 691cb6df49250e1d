package repository

import (
	"context"

	"github.com/vadesk/VADesk/app/models"
	"github.com/vadesk/VADesk/internal/pkg/objectstore"
)

type receiptRepository struct {
	store objectstore.Store
}

func (r *receiptRepository) Create(ctx context.Context, receipt *models.Receipt) error {
	key := models.ReceiptKey(receipt.Source, receipt.EventID)
	return putJSONIfAbsent(ctx, r.store, key, receipt)
}

func (r *receiptRepository) Exists(ctx context.Context, source, eventID string) (bool, error) {
	return r.store.Exists(ctx, models.ReceiptKey(source, eventID))
}
