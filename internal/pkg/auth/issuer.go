// Package auth implements the credential lifecycle: issuing bearer API keys
// and verifying presented ones against the store.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/chainboxhq/chainbox/app/models"
	"github.com/chainboxhq/chainbox/app/repository"
	"github.com/chainboxhq/chainbox/internal/pkg/token"
)

// IssuedKey carries the one-time raw key next to the persisted metadata.
// The raw key is not retrievable again after this value is dropped.
type IssuedKey struct {
	RawKey     string
	Credential models.Credential
}

// Issuer mints credentials for existing users.
type Issuer struct {
	creds repository.CredentialRepository
}

// NewIssuer creates an issuer over the given credential store
func NewIssuer(creds repository.CredentialRepository) *Issuer {
	return &Issuer{creds: creds}
}

// Issue generates a fresh key for the user and persists its digest with a
// single constrained insert. A nil expiresAt means long-lived; the store's
// unique marker index rejects a second long-lived key for the same user and
// that surfaces as apperr.ErrConflict. Rotation is revoke-then-issue, never
// an overwrite.
func (i *Issuer) Issue(ctx context.Context, userID, label string, expiresAt *time.Time) (*IssuedKey, error) {
	raw, err := token.Generate()
	if err != nil {
		return nil, err
	}

	cred := models.Credential{
		UserID:       userID,
		SecretDigest: token.Digest(raw),
		KeyPrefix:    token.Prefix(raw),
		Label:        label,
		ExpiresAt:    expiresAt,
	}
	if err := i.creds.Create(ctx, &cred); err != nil {
		return nil, fmt.Errorf("issue credential for user %s: %w", userID, err)
	}

	return &IssuedKey{RawKey: raw, Credential: cred}, nil
}

// Revoke removes a credential owned by the given user. Terminal; a revoked
// key verifies identically to one that never existed.
func (i *Issuer) Revoke(ctx context.Context, credentialID, userID string) error {
	return i.creds.DeleteByIDForUser(ctx, credentialID, userID)
}
