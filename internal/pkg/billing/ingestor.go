package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chainboxhq/chainbox/app/models"
	"github.com/chainboxhq/chainbox/app/repository"
	"github.com/chainboxhq/chainbox/internal/pkg/apperr"
	"github.com/chainboxhq/chainbox/internal/pkg/auth"
)

// IngestResult reports what an ingestion attempt did.
type IngestResult struct {
	Duplicate    bool
	Ignored      bool
	Provisioned  bool
	UserID       string
	CredentialID string
}

// Ingestor applies webhook events exactly once. The dedup insert, user
// upsert, and credential issue for one event run inside a single transaction:
// either the event is fully applied and marked processed, or nothing is and
// the processor's retry can complete it.
type Ingestor struct {
	tx       repository.Transactor
	notifier Notifier
}

// NewIngestor creates an ingestor over the given transactor
func NewIngestor(tx repository.Transactor, notifier Notifier) *Ingestor {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Ingestor{tx: tx, notifier: notifier}
}

// Ingest handles one delivery. Duplicate event ids succeed as no-ops;
// unrecognized event types are recorded and acknowledged so processor-side
// event additions never turn into failures.
func (ing *Ingestor) Ingest(ctx context.Context, eventID, eventType string, payload []byte) (*IngestResult, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return nil, fmt.Errorf("event id is required: %w", apperr.ErrInvalidInput)
	}

	res := &IngestResult{}
	var minted *auth.IssuedKey

	err := ing.tx.InTransaction(ctx, func(s *repository.Stores) error {
		// Dedup boundary: insert before any business effect.
		inserted, err := s.Events.Insert(ctx, eventID)
		if err != nil {
			return err
		}
		if !inserted {
			res.Duplicate = true
			return nil
		}

		switch eventType {
		case EventCheckoutSessionCompleted:
			key, err := ing.applyCheckoutCompleted(ctx, s, payload, res)
			if err != nil {
				return err
			}
			minted = key
			return nil
		default:
			// Recorded but no business effect.
			res.Ignored = true
			return nil
		}
	})
	if err != nil {
		return nil, err
	}

	// Surface the raw key only after the transaction committed; a rolled-back
	// mint must never reach the operator channel.
	if minted != nil {
		ing.notifier.CredentialMinted(res.UserID, minted.Credential.ID, minted.RawKey)
	}
	return res, nil
}

func (ing *Ingestor) applyCheckoutCompleted(ctx context.Context, s *repository.Stores, payload []byte, res *IngestResult) (*auth.IssuedKey, error) {
	session, err := ParseCheckoutSession(payload)
	if err != nil {
		return nil, err
	}
	if !session.IsPaid() {
		res.Ignored = true
		return nil, nil
	}

	user, err := ing.upsertCustomer(ctx, s, session)
	if err != nil {
		return nil, err
	}
	res.UserID = user.ID

	issued, err := auth.NewIssuer(s.Credentials).Issue(ctx, user.ID, "billing-provisioned", nil)
	if err != nil {
		// The same customer completing checkout again (a new event id for an
		// already provisioned user) is not a failure; the existing long-lived
		// key stays in place.
		if errors.Is(err, apperr.ErrConflict) {
			return nil, nil
		}
		return nil, err
	}

	res.Provisioned = true
	res.CredentialID = issued.Credential.ID
	return issued, nil
}

// upsertCustomer resolves the billing reference to a user, creating one on
// first sight. Existing rows only pick up what the event explicitly carries.
func (ing *Ingestor) upsertCustomer(ctx context.Context, s *repository.Stores, session *CheckoutSession) (*models.User, error) {
	user, err := s.Users.GetByStripeCustomerID(ctx, session.Customer)
	if err == nil {
		changed := false
		if user.SubscriptionStatus != models.SUBSCRIPTION_ACTIVE {
			user.SubscriptionStatus = models.SUBSCRIPTION_ACTIVE
			changed = true
		}
		if user.Email == "" && session.CustomerEmail != "" {
			user.Email = session.CustomerEmail
			changed = true
		}
		if changed {
			if err := s.Users.Update(ctx, user); err != nil {
				return nil, err
			}
		}
		return user, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	customerID := strings.TrimSpace(session.Customer)
	user = &models.User{
		Email:              session.CustomerEmail,
		StripeCustomerID:   &customerID,
		SubscriptionStatus: models.SUBSCRIPTION_ACTIVE,
		SubscriptionTier:   models.TIER_PRO,
	}
	if err := s.Users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
