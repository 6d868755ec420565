package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/chainboxhq/chainbox/app/models"
	"github.com/chainboxhq/chainbox/internal/pkg/apperr"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return apperr.FromStore(err)
	}
	return nil
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, apperr.FromStore(err)
	}
	return &user, nil
}

// GetByStripeCustomerID retrieves a user by their billing reference
func (r *userRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, apperr.ErrNotFound
	}
	var user models.User
	if err := r.db.WithContext(ctx).Where("stripe_customer_id = ?", customerID).First(&user).Error; err != nil {
		return nil, apperr.FromStore(err)
	}
	return &user, nil
}

// GetByGithubUserID retrieves a user by their OAuth identity reference
func (r *userRepository) GetByGithubUserID(ctx context.Context, githubID int64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("github_user_id = ?", githubID).First(&user).Error; err != nil {
		return nil, apperr.FromStore(err)
	}
	return &user, nil
}

// Update updates an existing user in the database
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		return apperr.FromStore(err)
	}
	return nil
}

// Count returns the total number of users
func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, apperr.FromStore(err)
}
