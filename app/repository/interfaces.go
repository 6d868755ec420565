package repository

import (
	"context"
	"time"

	"github.com/chainboxhq/chainbox/app/models"
)

// UserRepository defines the interface for user-related database operations.
// Users carry two nullable external references (GitHub identity, Stripe
// customer); both are unique when present.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (*models.User, error)
	GetByGithubUserID(ctx context.Context, githubID int64) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Count(ctx context.Context) (int64, error)
}

// CredentialRepository defines the interface for API key rows. Create relies
// on the store's unique indexes for both the digest and the one-long-lived-
// key-per-user rule; violations come back as apperr.ErrConflict.
type CredentialRepository interface {
	Create(ctx context.Context, cred *models.Credential) error
	GetByID(ctx context.Context, id string) (*models.Credential, error)
	// GetByDigest resolves a secret digest to the credential and its owner.
	GetByDigest(ctx context.Context, digest string) (*models.Credential, *models.User, error)
	ListByUser(ctx context.Context, userID string) ([]models.Credential, error)
	// DeleteByIDForUser revokes a credential scoped to its owner. Revocation
	// is terminal; there is no undelete.
	DeleteByIDForUser(ctx context.Context, id, userID string) error
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
	CountByUser(ctx context.Context, userID string) (int64, error)
}

// ProcessedEventRepository is the webhook idempotency ledger. Insert is the
// dedup boundary: it reports false, without error, when the id was already
// recorded.
type ProcessedEventRepository interface {
	Insert(ctx context.Context, eventID string) (bool, error)
	Exists(ctx context.Context, eventID string) (bool, error)
}

// Stores bundles the repositories handed to a transactional unit of work.
type Stores struct {
	Users       UserRepository
	Credentials CredentialRepository
	Events      ProcessedEventRepository
}

// Transactor runs a function against transaction-scoped stores. If fn returns
// an error every write inside it is rolled back.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(s *Stores) error) error
}
