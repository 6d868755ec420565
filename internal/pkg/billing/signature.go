// Package billing verifies payment-processor webhooks and drives the
// provisioning pipeline they trigger: user upsert plus API key issuance,
// deduplicated per event id.
package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chainboxhq/chainbox/internal/pkg/apperr"
)

// DefaultTolerance bounds how far a webhook timestamp may drift from now
// before the delivery is refused as a potential replay.
const DefaultTolerance = 5 * time.Minute

// VerifyStripeSignature checks a Stripe-Signature header ("t=<unix>,v1=<hex>")
// against the exact raw body bytes as received. The signed string is
// "<t>.<body>", keyed with HMAC-SHA256; comparison uses hmac.Equal below.
// Reserializing the payload before verification would break the MAC, so this
// must run before any JSON parsing. A valid MAC with a timestamp outside the
// tolerance window is still rejected.
func VerifyStripeSignature(payload []byte, signatureHeader, webhookSecret string, tolerance time.Duration, now time.Time) error {
	sig := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(webhookSecret)
	if sig == "" || secret == "" {
		return fmt.Errorf("missing signature or secret: %w", apperr.ErrInvalidSignature)
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	timestamp, candidates, err := parseSignatureHeader(sig)
	if err != nil {
		return err
	}

	drift := now.Sub(timestamp)
	if drift > tolerance || drift < -tolerance {
		return fmt.Errorf("timestamp outside tolerance window: %w", apperr.ErrInvalidSignature)
	}

	expected := computeSignature(timestamp, payload, secret)
	// Stripe sends multiple v1 entries while an endpoint secret is being
	// rotated; any match accepts the delivery.
	for _, candidate := range candidates {
		if verifyHMAC(expected, candidate) {
			return nil
		}
	}
	return fmt.Errorf("signature mismatch: %w", apperr.ErrInvalidSignature)
}

// SignPayload produces a Stripe-Signature header value for the given body.
// Used by tests and local tooling to emit deliveries this service accepts.
func SignPayload(payload []byte, webhookSecret string, at time.Time) string {
	mac := computeSignature(at, payload, strings.TrimSpace(webhookSecret))
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac))
}

func parseSignatureHeader(header string) (time.Time, [][]byte, error) {
	var timestamp time.Time
	var candidates [][]byte

	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			unix, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return time.Time{}, nil, fmt.Errorf("malformed timestamp: %w", apperr.ErrInvalidSignature)
			}
			timestamp = time.Unix(unix, 0)
		case "v1":
			decoded, err := hex.DecodeString(strings.ToLower(value))
			if err != nil {
				return time.Time{}, nil, fmt.Errorf("malformed signature encoding: %w", apperr.ErrInvalidSignature)
			}
			candidates = append(candidates, decoded)
		}
	}

	if timestamp.IsZero() || len(candidates) == 0 {
		return time.Time{}, nil, fmt.Errorf("incomplete signature header: %w", apperr.ErrInvalidSignature)
	}
	return timestamp, candidates, nil
}

func computeSignature(at time.Time, payload []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", at.Unix())
	mac.Write(payload)
	return mac.Sum(nil)
}

func verifyHMAC(expected, candidate []byte) bool {
	return hmac.Equal(expected, candidate)
}
