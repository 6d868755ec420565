package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus metrics for monitoring the control plane
var (
	WebhookEventsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_webhook_events_total",
			Help: "Total number of billing webhook deliveries received",
		},
	)

	WebhookEventsDuplicateTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_webhook_events_duplicate_total",
			Help: "Total number of billing webhook deliveries already processed",
		},
	)

	WebhookEventsInvalidSignatureTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_webhook_events_invalid_signature_total",
			Help: "Total number of billing webhook deliveries rejected for a bad signature",
		},
	)

	APIKeyVerifySuccessTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "api_key_verify_success_total",
			Help: "Total number of successful API key verifications",
		},
	)

	APIKeyVerifyFailureTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "api_key_verify_failure_total",
			Help: "Total number of rejected API key verifications",
		},
	)

	APIKeysIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "api_keys_issued_total",
			Help: "Total number of API keys issued",
		},
	)

	WebhookProcessingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "billing_webhook_processing_duration_seconds",
			Help:    "Duration of billing webhook processing",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Register registers all Prometheus metrics
func Register() {
	prometheus.MustRegister(WebhookEventsTotal)
	prometheus.MustRegister(WebhookEventsDuplicateTotal)
	prometheus.MustRegister(WebhookEventsInvalidSignatureTotal)
	prometheus.MustRegister(APIKeyVerifySuccessTotal)
	prometheus.MustRegister(APIKeyVerifyFailureTotal)
	prometheus.MustRegister(APIKeysIssuedTotal)
	prometheus.MustRegister(WebhookProcessingDuration)
}

// Handler exposes the Prometheus scrape endpoint as a Fiber handler.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
