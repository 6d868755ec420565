package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainboxhq/chainbox/app/repository"
	"github.com/chainboxhq/chainbox/internal/pkg/billing"
)

const webhookTestSecret = "whsec_controller_test"

func newWebhookTestApp(t *testing.T) (*fiber.App, *repository.MemoryStore) {
	t.Helper()

	store := repository.NewMemoryStore()
	ctrl := NewBillingController(billing.NewIngestor(store, billing.LogNotifier{}))
	ctrl.secret = func() string { return webhookTestSecret }

	app := fiber.New()
	app.Post("/billing/webhook", ctrl.HandleStripeWebhook)
	return app, store
}

func checkoutEventBody(eventID, customer string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"customer": %q,
				"customer_email": "buyer@example.com",
				"payment_status": "paid",
				"subscription": "sub_1"
			}
		}
	}`, eventID, customer))
}

func postWebhook(t *testing.T, app *fiber.App, body []byte, signature string) (*http.Response, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/billing/webhook", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
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

func TestWebhookProvisionsCustomer(t *testing.T) {
	app, store := newWebhookTestApp(t)

	body := checkoutEventBody("evt_1", "cus_1")
	resp, decoded := postWebhook(t, app, body, billing.SignPayload(body, webhookTestSecret, time.Now()))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decoded["ok"])

	user, err := store.Users().GetByStripeCustomerID(context.Background(), "cus_1")
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", user.Email)

	count, err := store.Credentials().CountByUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestWebhookDuplicateDelivery(t *testing.T) {
	app, store := newWebhookTestApp(t)

	body := checkoutEventBody("evt_1", "cus_1")
	resp, _ := postWebhook(t, app, body, billing.SignPayload(body, webhookTestSecret, time.Now()))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, decoded := postWebhook(t, app, body, billing.SignPayload(body, webhookTestSecret, time.Now()))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decoded["duplicate"])

	user, err := store.Users().GetByStripeCustomerID(context.Background(), "cus_1")
	require.NoError(t, err)
	count, err := store.Credentials().CountByUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	app, store := newWebhookTestApp(t)

	body := checkoutEventBody("evt_1", "cus_1")

	resp, decoded := postWebhook(t, app, body, "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_signature", decoded["error"])

	resp, decoded = postWebhook(t, app, body, billing.SignPayload(body, "whsec_other", time.Now()))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_signature", decoded["error"])

	// Signing different bytes must not cover this body.
	other := checkoutEventBody("evt_2", "cus_1")
	resp, decoded = postWebhook(t, app, body, billing.SignPayload(other, webhookTestSecret, time.Now()))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_signature", decoded["error"])

	processed, err := store.Events().Exists(context.Background(), "evt_1")
	require.NoError(t, err)
	assert.False(t, processed)
	count, err := store.Users().Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestWebhookRejectsStaleTimestamp(t *testing.T) {
	app, _ := newWebhookTestApp(t)

	body := checkoutEventBody("evt_1", "cus_1")
	stale := billing.SignPayload(body, webhookTestSecret, time.Now().Add(-15*time.Minute))
	resp, decoded := postWebhook(t, app, body, stale)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_signature", decoded["error"])
}

func TestWebhookAcknowledgesUnrecognizedType(t *testing.T) {
	app, store := newWebhookTestApp(t)

	body := []byte(`{"id":"evt_9","type":"invoice.created","data":{"object":{}}}`)
	resp, decoded := postWebhook(t, app, body, billing.SignPayload(body, webhookTestSecret, time.Now()))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decoded["ignored"])

	processed, err := store.Events().Exists(context.Background(), "evt_9")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestWebhookRejectsMalformedPayload(t *testing.T) {
	app, _ := newWebhookTestApp(t)

	body := []byte(`{"type":"checkout.session.completed"}`)
	resp, decoded := postWebhook(t, app, body, billing.SignPayload(body, webhookTestSecret, time.Now()))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_payload", decoded["error"])
}
