package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chainboxhq/chainbox/app/models"
	"github.com/chainboxhq/chainbox/internal/pkg/apperr"
)

// MemoryStore backs all repository interfaces plus Transactor with in-memory
// maps. It enforces the same uniqueness rules the MySQL schema does, so the
// business components can be tested without a database.
type MemoryStore struct {
	mu sync.Mutex

	users  map[string]models.User
	creds  map[string]models.Credential
	events map[string]time.Time

	// CredentialCreateErr, when set, fails the next credential insert. Used
	// by tests to exercise transaction rollback.
	CredentialCreateErr error
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[string]models.User),
		creds:  make(map[string]models.Credential),
		events: make(map[string]time.Time),
	}
}

// Stores returns the store wired as a repository bundle
func (m *MemoryStore) Stores() *Stores {
	return &Stores{
		Users:       memoryUsers{m},
		Credentials: memoryCredentials{m},
		Events:      memoryEvents{m},
	}
}

// Users returns the user repository view
func (m *MemoryStore) Users() UserRepository { return memoryUsers{m} }

// Credentials returns the credential repository view
func (m *MemoryStore) Credentials() CredentialRepository { return memoryCredentials{m} }

// Events returns the processed event repository view
func (m *MemoryStore) Events() ProcessedEventRepository { return memoryEvents{m} }

// InTransaction snapshots the maps, runs fn, and restores the snapshot when
// fn fails. Mirrors the all-or-nothing behavior of the DB transactor.
func (m *MemoryStore) InTransaction(ctx context.Context, fn func(s *Stores) error) error {
	m.mu.Lock()
	users := cloneMap(m.users)
	creds := cloneMap(m.creds)
	events := cloneMap(m.events)
	m.mu.Unlock()

	if err := fn(m.Stores()); err != nil {
		m.mu.Lock()
		m.users = users
		m.creds = creds
		m.events = events
		m.mu.Unlock()
		return err
	}
	return nil
}

func cloneMap[V any](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// memoryUsers implements UserRepository
type memoryUsers struct{ m *MemoryStore }

func (r memoryUsers) Create(ctx context.Context, user *models.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.SubscriptionStatus == "" {
		user.SubscriptionStatus = models.SUBSCRIPTION_INACTIVE
	}
	if user.SubscriptionTier == "" {
		user.SubscriptionTier = models.TIER_FREE
	}
	if _, ok := r.m.users[user.ID]; ok {
		return apperr.ErrConflict
	}
	for _, u := range r.m.users {
		if user.GithubUserID != nil && u.GithubUserID != nil && *u.GithubUserID == *user.GithubUserID {
			return apperr.ErrConflict
		}
		if user.StripeCustomerID != nil && u.StripeCustomerID != nil && *u.StripeCustomerID == *user.StripeCustomerID {
			return apperr.ErrConflict
		}
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.m.users[user.ID] = *user
	return nil
}

func (r memoryUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	u, ok := r.m.users[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &u, nil
}

func (r memoryUsers) GetByStripeCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	customerID = strings.TrimSpace(customerID)
	for _, u := range r.m.users {
		if u.StripeCustomerID != nil && *u.StripeCustomerID == customerID {
			u := u
			return &u, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (r memoryUsers) GetByGithubUserID(ctx context.Context, githubID int64) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, u := range r.m.users {
		if u.GithubUserID != nil && *u.GithubUserID == githubID {
			u := u
			return &u, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (r memoryUsers) Update(ctx context.Context, user *models.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.users[user.ID]; !ok {
		return apperr.ErrNotFound
	}
	user.UpdatedAt = time.Now()
	r.m.users[user.ID] = *user
	return nil
}

func (r memoryUsers) Count(ctx context.Context) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return int64(len(r.m.users)), nil
}

// memoryCredentials implements CredentialRepository
type memoryCredentials struct{ m *MemoryStore }

func (r memoryCredentials) Create(ctx context.Context, cred *models.Credential) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if r.m.CredentialCreateErr != nil {
		err := r.m.CredentialCreateErr
		r.m.CredentialCreateErr = nil
		return err
	}

	if cred.ID == "" {
		cred.ID = uuid.NewString()
	}
	cred.SyncLongLivedMarker()
	for _, c := range r.m.creds {
		if c.SecretDigest == cred.SecretDigest {
			return apperr.ErrConflict
		}
		if cred.LongLivedUserID != nil && c.LongLivedUserID != nil && *c.LongLivedUserID == *cred.LongLivedUserID {
			return apperr.ErrConflict
		}
	}
	cred.CreatedAt = time.Now()
	r.m.creds[cred.ID] = *cred
	return nil
}

func (r memoryCredentials) GetByID(ctx context.Context, id string) (*models.Credential, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	c, ok := r.m.creds[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &c, nil
}

func (r memoryCredentials) GetByDigest(ctx context.Context, digest string) (*models.Credential, *models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, c := range r.m.creds {
		if c.SecretDigest == strings.TrimSpace(digest) {
			u, ok := r.m.users[c.UserID]
			if !ok {
				return nil, nil, apperr.ErrNotFound
			}
			c := c
			return &c, &u, nil
		}
	}
	return nil, nil, apperr.ErrNotFound
}

func (r memoryCredentials) ListByUser(ctx context.Context, userID string) ([]models.Credential, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var out []models.Credential
	for _, c := range r.m.creds {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r memoryCredentials) DeleteByIDForUser(ctx context.Context, id, userID string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	c, ok := r.m.creds[id]
	if !ok || c.UserID != userID {
		return apperr.ErrNotFound
	}
	delete(r.m.creds, id)
	return nil
}

func (r memoryCredentials) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	c, ok := r.m.creds[id]
	if !ok {
		return nil
	}
	c.LastUsedAt = &at
	r.m.creds[id] = c
	return nil
}

func (r memoryCredentials) CountByUser(ctx context.Context, userID string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var n int64
	for _, c := range r.m.creds {
		if c.UserID == userID {
			n++
		}
	}
	return n, nil
}

// memoryEvents implements ProcessedEventRepository
type memoryEvents struct{ m *MemoryStore }

func (r memoryEvents) Insert(ctx context.Context, eventID string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return false, apperr.ErrInvalidInput
	}
	if _, ok := r.m.events[eventID]; ok {
		return false, nil
	}
	r.m.events[eventID] = time.Now()
	return true, nil
}

func (r memoryEvents) Exists(ctx context.Context, eventID string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	_, ok := r.m.events[eventID]
	return ok, nil
}

var (
	_ UserRepository           = memoryUsers{}
	_ CredentialRepository     = memoryCredentials{}
	_ ProcessedEventRepository = memoryEvents{}
	_ Transactor               = (*MemoryStore)(nil)
)
