package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/chainboxhq/chainbox/app/models"
	"github.com/chainboxhq/chainbox/internal/pkg/apperr"
)

// credentialRepository implements the CredentialRepository interface
type credentialRepository struct {
	db *gorm.DB
}

// NewCredentialRepository creates a new credential repository instance
func NewCredentialRepository(db *gorm.DB) CredentialRepository {
	return &credentialRepository{db: db}
}

// Create inserts a credential row. Uniqueness of the digest and of the
// long-lived marker is enforced by the store inside this single insert, so
// two racing issuance attempts can never both succeed.
func (r *credentialRepository) Create(ctx context.Context, cred *models.Credential) error {
	if err := r.db.WithContext(ctx).Create(cred).Error; err != nil {
		return apperr.FromStore(err)
	}
	return nil
}

// GetByID retrieves a credential by its ID
func (r *credentialRepository) GetByID(ctx context.Context, id string) (*models.Credential, error) {
	var cred models.Credential
	if err := r.db.WithContext(ctx).First(&cred, "id = ?", id).Error; err != nil {
		return nil, apperr.FromStore(err)
	}
	return &cred, nil
}

// GetByDigest resolves an exact digest match to the credential and its owner.
func (r *credentialRepository) GetByDigest(ctx context.Context, digest string) (*models.Credential, *models.User, error) {
	trimmed := strings.TrimSpace(digest)
	if trimmed == "" {
		return nil, nil, apperr.ErrNotFound
	}
	var cred models.Credential
	if err := r.db.WithContext(ctx).Where("secret_digest = ?", trimmed).First(&cred).Error; err != nil {
		return nil, nil, apperr.FromStore(err)
	}
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", cred.UserID).Error; err != nil {
		return nil, nil, apperr.FromStore(err)
	}
	return &cred, &user, nil
}

// ListByUser returns all credentials owned by a user, newest first
func (r *credentialRepository) ListByUser(ctx context.Context, userID string) ([]models.Credential, error) {
	var creds []models.Credential
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&creds).Error
	return creds, apperr.FromStore(err)
}

// DeleteByIDForUser removes a credential owned by the given user
func (r *credentialRepository) DeleteByIDForUser(ctx context.Context, id, userID string) error {
	tx := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Credential{})
	if tx.Error != nil {
		return apperr.FromStore(tx.Error)
	}
	if tx.RowsAffected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// TouchLastUsed updates the last-used timestamp. Called off the request path;
// a miss on an already-revoked credential is not an error.
func (r *credentialRepository) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&models.Credential{}).
		Where("id = ?", id).
		Update("last_used_at", at).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.FromStore(err)
	}
	return nil
}

// CountByUser returns the number of credentials a user owns
func (r *credentialRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Credential{}).Where("user_id = ?", userID).Count(&count).Error
	return count, apperr.FromStore(err)
}
