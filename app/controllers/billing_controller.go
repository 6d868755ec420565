package controllers

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/chainboxhq/chainbox/internal/pkg/apperr"
	"github.com/chainboxhq/chainbox/internal/pkg/billing"
	"github.com/chainboxhq/chainbox/internal/pkg/env"
	"github.com/chainboxhq/chainbox/internal/pkg/metrics"
)

// BillingController receives payment processor webhooks and drives the
// provisioning pipeline.
type BillingController struct {
	ingestor  *billing.Ingestor
	secret    func() string
	tolerance time.Duration
	now       func() time.Time
}

// NewBillingController wires the webhook endpoint against the given ingestor.
// The signing secret is read from the environment per request so rotation does
// not require a restart.
func NewBillingController(ingestor *billing.Ingestor) *BillingController {
	return &BillingController{
		ingestor:  ingestor,
		secret:    func() string { return env.GetEnv("STRIPE_WEBHOOK_SECRET", "") },
		tolerance: billing.DefaultTolerance,
		now:       time.Now,
	}
}

// HandleStripeWebhook verifies the signature over the exact raw bytes, then
// hands the event to the ingestor. Signature failures are 400 and carry no
// detail about which check failed.
func (ctrl *BillingController) HandleStripeWebhook(c *fiber.Ctx) error {
	metrics.WebhookEventsTotal.Inc()
	started := ctrl.now()
	defer func() {
		metrics.WebhookProcessingDuration.Observe(time.Since(started).Seconds())
	}()

	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := c.Get("Stripe-Signature")

	if err := billing.VerifyStripeSignature(rawBody, signature, ctrl.secret(), ctrl.tolerance, ctrl.now()); err != nil {
		metrics.WebhookEventsInvalidSignatureTotal.Inc()
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature"})
	}

	event, err := billing.ParseEvent(rawBody)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	res, err := ctrl.ingestor.Ingest(c.UserContext(), event.ID, event.Type, event.Data)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidInput) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
		}
		log.Printf("webhook ingest failed for event %s: %v", event.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}

	if res.Duplicate {
		metrics.WebhookEventsDuplicateTotal.Inc()
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}
	if res.Ignored {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}
