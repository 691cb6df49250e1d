package repository

import (
	"context"

	"github.com/vadesk/VADesk/app/models"
	"github.com/vadesk/VADesk/internal/pkg/objectstore"
)

type supportRepository struct {
	store objectstore.Store
}

func (r *supportRepository) Get(ctx context.Context, supportID string) (*models.SupportThread, error) {
	var thread models.SupportThread
	if err := getJSON(ctx, r.store, models.SupportThreadKey(supportID), &thread); err != nil {
		return nil, err
	}
	return &thread, nil
}

func (r *supportRepository) Put(ctx context.Context, thread *models.SupportThread) error {
	return putJSON(ctx, r.store, models.SupportThreadKey(thread.SupportID), thread)
}
