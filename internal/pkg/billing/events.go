package billing

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chainboxhq/chainbox/internal/pkg/apperr"
)

const (
	ProviderStripe = "stripe"

	EventCheckoutSessionCompleted = "checkout.session.completed"

	PaymentStatusPaid = "paid"
)

// Event is the envelope shared by all processor deliveries. Data stays raw
// until the dispatcher knows the type.
type Event struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"-"`
}

type eventEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// ParseEvent decodes the processor envelope from the raw body. Runs only
// after the signature over those same bytes has been verified.
func ParseEvent(raw []byte) (*Event, error) {
	var env eventEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed event envelope: %w", apperr.ErrInvalidInput)
	}
	if strings.TrimSpace(env.ID) == "" || strings.TrimSpace(env.Type) == "" {
		return nil, fmt.Errorf("event id and type are required: %w", apperr.ErrInvalidInput)
	}
	return &Event{
		ID:   strings.TrimSpace(env.ID),
		Type: strings.TrimSpace(env.Type),
		Data: env.Data.Object,
	}, nil
}

// CheckoutSession is the subset of a checkout.session.completed object the
// provisioning pipeline reads.
type CheckoutSession struct {
	Customer      string `json:"customer"`
	CustomerEmail string `json:"customer_email"`
	PaymentStatus string `json:"payment_status"`
	Subscription  string `json:"subscription"`
}

// ParseCheckoutSession decodes the data object of a checkout completion.
func ParseCheckoutSession(data json.RawMessage) (*CheckoutSession, error) {
	var session CheckoutSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("malformed checkout session: %w", apperr.ErrInvalidInput)
	}
	if strings.TrimSpace(session.Customer) == "" {
		return nil, fmt.Errorf("checkout session has no customer reference: %w", apperr.ErrInvalidInput)
	}
	return &session, nil
}

// IsPaid reports whether the checkout completed with a settled payment.
func (s *CheckoutSession) IsPaid() bool {
	return strings.EqualFold(strings.TrimSpace(s.PaymentStatus), PaymentStatusPaid)
}
