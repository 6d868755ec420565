package repository

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

// Repositories struct holds all repository instances
type Repositories struct {
	Users       UserRepository
	Credentials CredentialRepository
	Events      ProcessedEventRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Users:       NewUserRepository(db),
		Credentials: NewCredentialRepository(db),
		Events:      NewProcessedEventRepository(db),
	}
}

// NewStores bundles repositories bound to the given DB handle, which may be a
// transaction.
func NewStores(db *gorm.DB) *Stores {
	return &Stores{
		Users:       NewUserRepository(db),
		Credentials: NewCredentialRepository(db),
		Events:      NewProcessedEventRepository(db),
	}
}

// gormTransactor runs units of work inside a database transaction so the
// dedup insert, user upsert, and credential issue of one webhook event commit
// or roll back together.
type gormTransactor struct {
	db *gorm.DB
}

// NewTransactor creates a Transactor backed by GORM transactions
func NewTransactor(db *gorm.DB) Transactor {
	return &gormTransactor{db: db}
}

func (t *gormTransactor) InTransaction(ctx context.Context, fn func(s *Stores) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStores(tx))
	})
}

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetUserRepository returns the user repository instance
func (f *Factory) GetUserRepository() UserRepository {
	return f.GetRepositories().Users
}

// GetCredentialRepository returns the credential repository instance
func (f *Factory) GetCredentialRepository() CredentialRepository {
	return f.GetRepositories().Credentials
}

// GetProcessedEventRepository returns the processed event repository instance
func (f *Factory) GetProcessedEventRepository() ProcessedEventRepository {
	return f.GetRepositories().Events
}

// GetTransactor returns a transactor over the factory's DB handle
func (f *Factory) GetTransactor() Transactor {
	return NewTransactor(f.db)
}

// Global factory instance
var globalFactory *Factory
var factoryOnce sync.Once

// InitializeFactory initializes the global repository factory
func InitializeFactory(db *gorm.DB) {
	factoryOnce.Do(func() {
		globalFactory = NewFactory(db)
	})
}

// GetGlobalFactory returns the global repository factory instance
func GetGlobalFactory() *Factory {
	if globalFactory == nil {
		panic("Repository factory not initialized. Call InitializeFactory first.")
	}
	return globalFactory
}
