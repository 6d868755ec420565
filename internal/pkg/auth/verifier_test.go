package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainboxhq/chainbox/app/repository"
	"github.com/chainboxhq/chainbox/internal/pkg/apperr"
)

func newTestVerifier(store *repository.MemoryStore) *Verifier {
	v := NewVerifier(store.Credentials())
	v.touchAsync = false // deterministic last-used assertions
	return v
}

func TestVerifyIssuedKey(t *testing.T) {
	store := repository.NewMemoryStore()
	user := newTestUser(t, store)
	issued, err := NewIssuer(store.Credentials()).Issue(context.Background(), user.ID, "", nil)
	require.NoError(t, err)

	authCtx, err := newTestVerifier(store).Verify(context.Background(), issued.RawKey)
	require.NoError(t, err)

	assert.Equal(t, user.ID, authCtx.UserID)
	assert.Equal(t, user.SubscriptionTier, authCtx.Tier)
	assert.Equal(t, user.SubscriptionStatus, authCtx.Status)
	assert.Equal(t, issued.Credential.ID, authCtx.CredentialID)
}

func TestVerifyUpdatesLastUsed(t *testing.T) {
	store := repository.NewMemoryStore()
	user := newTestUser(t, store)
	issued, err := NewIssuer(store.Credentials()).Issue(context.Background(), user.ID, "", nil)
	require.NoError(t, err)

	_, err = newTestVerifier(store).Verify(context.Background(), issued.RawKey)
	require.NoError(t, err)

	stored, err := store.Credentials().GetByID(context.Background(), issued.Credential.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastUsedAt)
}

func TestVerifyMalformedIsInvalidInput(t *testing.T) {
	store := repository.NewMemoryStore()
	v := newTestVerifier(store)

	for _, bad := range []string{"", "garbage", "Bearer xyz", "cbx_???"} {
		_, err := v.Verify(context.Background(), bad)
		require.Error(t, err, "input %q", bad)
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	}
}

func TestVerifyUnknownKeyIsUnauthenticated(t *testing.T) {
	store := repository.NewMemoryStore()
	v := newTestVerifier(store)

	_, err := v.Verify(context.Background(), "cbx_mfrggzdfmztwq2lknnwg23tpobyxe43uozsxo3dfonzq")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

// Expired credentials must be indistinguishable from nonexistent ones.
func TestVerifyExpiredMatchesUnknown(t *testing.T) {
	store := repository.NewMemoryStore()
	user := newTestUser(t, store)
	issuer := NewIssuer(store.Credentials())

	exp := time.Now().Add(time.Hour)
	bounded, err := issuer.Issue(context.Background(), user.ID, "1h", &exp)
	require.NoError(t, err)

	v := newTestVerifier(store)

	// Still valid within the hour
	_, err = v.Verify(context.Background(), bounded.RawKey)
	require.NoError(t, err)

	// Advance the clock two hours past issuance
	v.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, expiredErr := v.Verify(context.Background(), bounded.RawKey)
	require.Error(t, expiredErr)

	_, unknownErr := v.Verify(context.Background(), "cbx_mfrggzdfmztwq2lknnwg23tpobyxe43uozsxo3dfonzq")
	require.Error(t, unknownErr)

	assert.Equal(t, unknownErr.Error(), expiredErr.Error())
	assert.ErrorIs(t, expiredErr, apperr.ErrUnauthenticated)
}

// Full lifecycle: long-lived key, conflicting second issue, bounded key, and
// expiry behavior.
func TestCredentialLifecycleScenario(t *testing.T) {
	store := repository.NewMemoryStore()
	user := newTestUser(t, store)
	issuer := NewIssuer(store.Credentials())
	v := newTestVerifier(store)

	s1, err := issuer.Issue(context.Background(), user.ID, "", nil)
	require.NoError(t, err)

	_, err = issuer.Issue(context.Background(), user.ID, "", nil)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	exp := time.Now().Add(time.Hour)
	bounded, err := issuer.Issue(context.Background(), user.ID, "temp", &exp)
	require.NoError(t, err)

	authCtx, err := v.Verify(context.Background(), s1.RawKey)
	require.NoError(t, err)
	assert.Equal(t, user.ID, authCtx.UserID)

	v.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = v.Verify(context.Background(), bounded.RawKey)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	// The long-lived key is unaffected by the clock
	_, err = v.Verify(context.Background(), s1.RawKey)
	assert.NoError(t, err)
}
