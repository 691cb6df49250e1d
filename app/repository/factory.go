package repository

import (
	"sync"

	"github.com/vadesk/VADesk/internal/pkg/objectstore"
)

// Factory builds the repository bundle over an object store and hands out
// the same instance for the lifetime of the process.
type Factory struct {
	store objectstore.Store
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory over the given object store.
func NewFactory(store objectstore.Store) *Factory {
	return &Factory{store: store}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.store)
	})
	return f.repos
}
