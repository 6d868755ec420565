package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainboxhq/chainbox/app/models"
	"github.com/chainboxhq/chainbox/app/repository"
	"github.com/chainboxhq/chainbox/internal/pkg/auth"
	"github.com/chainboxhq/chainbox/internal/pkg/middleware"
)

// newKeyTestApp builds an app with the bearer middleware and the key routes
// over an in-memory store, plus a session-scoped key to authenticate with.
func newKeyTestApp(t *testing.T) (*fiber.App, *repository.MemoryStore, *models.User, string) {
	t.Helper()

	store := repository.NewMemoryStore()
	user := &models.User{Email: "dev@example.com"}
	require.NoError(t, store.Users().Create(context.Background(), user))

	// Bounded key so the long-lived slot stays free for the tests.
	exp := time.Now().Add(time.Hour)
	issued, err := auth.NewIssuer(store.Credentials()).Issue(context.Background(), user.ID, "test-session", &exp)
	require.NoError(t, err)

	app := fiber.New()
	verifier := auth.NewVerifier(store.Credentials())
	protected := app.Group("", middleware.APIKeyAuthMiddleware(verifier))

	ctrl := NewAPIKeyController(store.Credentials())
	protected.Post("/auth/api-keys", ctrl.HandleCreateAPIKey)
	protected.Get("/auth/api-keys", ctrl.HandleListAPIKeys)
	protected.Delete("/auth/api-keys/:id", ctrl.HandleRevokeAPIKey)
	protected.Get("/account", HandleGetAccount(store.Users()))

	return app, store, user, issued.RawKey
}

func doJSON(t *testing.T, app *fiber.App, method, target, bearer string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func TestCreateAPIKeyLongLived(t *testing.T) {
	app, store, user, bearer := newKeyTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/auth/api-keys", bearer, fiber.Map{"label": "deploy"})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, body["key"])
	assert.NotEmpty(t, body["key_id"])
	assert.Equal(t, "deploy", body["label"])
	assert.Nil(t, body["expires_at"])

	count, err := store.Credentials().CountByUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	// The long-lived slot is taken now.
	resp, body = doJSON(t, app, http.MethodPost, "/auth/api-keys", bearer, nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "conflict", body["error"])
}

func TestCreateAPIKeyBounded(t *testing.T) {
	app, _, _, bearer := newKeyTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/auth/api-keys", bearer, fiber.Map{"label": "ci", "expires_in_seconds": 3600})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, body["expires_at"])

	// Bounded keys never occupy the long-lived slot.
	resp, _ = doJSON(t, app, http.MethodPost, "/auth/api-keys", bearer, fiber.Map{"expires_in_seconds": 60})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
}

func TestCreateAPIKeyRejectsInvalidExpiry(t *testing.T) {
	app, _, _, bearer := newKeyTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/auth/api-keys", bearer, fiber.Map{"expires_in_seconds": -10})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_request", body["error"])
}

func TestListAPIKeysNeverExposesSecrets(t *testing.T) {
	app, _, _, bearer := newKeyTestApp(t)

	resp, created := doJSON(t, app, http.MethodPost, "/auth/api-keys", bearer, fiber.Map{"label": "deploy"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodGet, "/auth/api-keys", bearer, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	keys, ok := body["keys"].([]any)
	require.True(t, ok)
	assert.Len(t, keys, 2)
	for _, entry := range keys {
		key := entry.(map[string]any)
		assert.NotEmpty(t, key["key_id"])
		assert.NotContains(t, key, "key")
		assert.NotContains(t, key, "secret_digest")
		assert.NotEqual(t, created["key"], key["key_prefix"])
	}
}

func TestRevokeAPIKey(t *testing.T) {
	app, _, _, bearer := newKeyTestApp(t)

	_, created := doJSON(t, app, http.MethodPost, "/auth/api-keys", bearer, fiber.Map{"label": "deploy"})
	keyID := created["key_id"].(string)

	resp, _ := doJSON(t, app, http.MethodDelete, "/auth/api-keys/"+keyID, bearer, nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	// The raw key verifies like it never existed.
	req := httptest.NewRequest(http.MethodGet, "/account", nil)
	req.Header.Set("Authorization", "Bearer "+created["key"].(string))
	revoked, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, revoked.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/auth/api-keys/"+keyID, bearer, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAPIKeyRoutesRequireAuth(t *testing.T) {
	app, _, _, _ := newKeyTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/auth/api-keys", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid_or_expired_token", body["error"])

	resp, body = doJSON(t, app, http.MethodGet, "/account", "cbx_notarealkey", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid_or_expired_token", body["error"])
}

func TestGetAccount(t *testing.T) {
	app, _, user, bearer := newKeyTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/account", bearer, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, user.ID, body["id"])
	assert.Equal(t, "dev@example.com", body["email"])
	assert.Equal(t, models.SUBSCRIPTION_INACTIVE, body["subscription_status"])
}
