package repository

import (
	"context"
	"errors"

	"github.com/vadesk/VADesk/app/models"
	"github.com/vadesk/VADesk/internal/pkg/objectstore"
)

type directoryRepository struct {
	store objectstore.Store
}

// GetIndex returns the directory index, or an empty index when none has been
// written yet.
func (r *directoryRepository) GetIndex(ctx context.Context) (*models.DirectoryIndex, error) {
	var index models.DirectoryIndex
	err := getJSON(ctx, r.store, models.DirectoryIndexKey, &index)
	if errors.Is(err, objectstore.ErrNotFound) {
		return &models.DirectoryIndex{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &index, nil
}

func (r *directoryRepository) PutIndex(ctx context.Context, index *models.DirectoryIndex) error {
	return putJSON(ctx, r.store, models.DirectoryIndexKey, index)
}

func (r *directoryRepository) GetProfile(ctx context.Context, slug string) (*models.ProfilePage, error) {
	var page models.ProfilePage
	if err := getJSON(ctx, r.store, models.ProfileKey(slug), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (r *directoryRepository) PutProfile(ctx context.Context, page *models.ProfilePage) error {
	return putJSON(ctx, r.store, models.ProfileKey(page.Slug), page)
}
