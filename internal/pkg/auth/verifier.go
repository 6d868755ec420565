package auth

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/chainboxhq/chainbox/app/repository"
	"github.com/chainboxhq/chainbox/internal/pkg/apperr"
	"github.com/chainboxhq/chainbox/internal/pkg/token"
)

// Context is the identity bundle produced by a successful verification.
type Context struct {
	UserID       string
	Email        string
	Tier         string
	Status       string
	CredentialID string
}

// Verifier resolves presented bearer keys to their owning user.
type Verifier struct {
	creds repository.CredentialRepository

	now          func() time.Time
	touchAsync   bool
	touchTimeout time.Duration
}

// NewVerifier creates a verifier over the given credential store
func NewVerifier(creds repository.CredentialRepository) *Verifier {
	return &Verifier{
		creds:        creds,
		now:          time.Now,
		touchAsync:   true,
		touchTimeout: 5 * time.Second,
	}
}

// Verify checks a presented key. Malformed transport encoding fails with
// InvalidInput before any store access; an unknown digest and an expired
// credential both fail with the same Unauthenticated error so callers cannot
// tell them apart. Digest lookups are exact-match, so no partial-comparison
// timing channel exists on this path.
func (v *Verifier) Verify(ctx context.Context, presented string) (*Context, error) {
	raw, err := token.Parse(presented)
	if err != nil {
		return nil, err
	}

	cred, user, err := v.creds.GetByDigest(ctx, token.Digest(raw))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrUnauthenticated
		}
		return nil, err
	}
	if cred.IsExpired(v.now()) {
		return nil, apperr.ErrUnauthenticated
	}

	v.touchLastUsed(cred.ID)

	return &Context{
		UserID:       user.ID,
		Email:        user.Email,
		Tier:         user.SubscriptionTier,
		Status:       user.SubscriptionStatus,
		CredentialID: cred.ID,
	}, nil
}

// touchLastUsed refreshes the usage timestamp without blocking the request
// path. Failures are logged and dropped; usage tracking is best-effort.
func (v *Verifier) touchLastUsed(credentialID string) {
	at := v.now()
	update := func() {
		ctx, cancel := context.WithTimeout(context.Background(), v.touchTimeout)
		defer cancel()
		if err := v.creds.TouchLastUsed(ctx, credentialID, at); err != nil {
			log.Printf("failed to update last-used timestamp for credential %s: %v", credentialID, err)
		}
	}
	if v.touchAsync {
		go update()
		return
	}
	update()
}
