package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vadesk/VADesk/internal/pkg/objectstore"
)

// Repositories bundles all repository implementations over one object store.
type Repositories struct {
	Receipt   ReceiptRepository
	Account   AccountRepository
	Support   SupportRepository
	Directory DirectoryRepository
	Auth      AuthRepository
}

// NewRepositories creates all repositories backed by the given store.
func NewRepositories(store objectstore.Store) *Repositories {
	return &Repositories{
		Receipt:   &receiptRepository{store: store},
		Account:   &accountRepository{store: store},
		Support:   &supportRepository{store: store},
		Directory: &directoryRepository{store: store},
		Auth:      &authRepository{store: store},
	}
}

// getJSON loads and unmarshals the object at key into out.
func getJSON(ctx context.Context, store objectstore.Store, key string, out any) error {
	data, err := store.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// putJSON marshals doc and writes it at key.
func putJSON(ctx context.Context, store objectstore.Store, key string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return store.Put(ctx, key, data)
}

// putJSONIfAbsent marshals doc and writes it at key only when absent.
func putJSONIfAbsent(ctx context.Context, store objectstore.Store, key string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return store.PutIfAbsent(ctx, key, data)
}
