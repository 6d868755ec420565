package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SUBSCRIPTION_INACTIVE  = "inactive"
	SUBSCRIPTION_ACTIVE    = "active"
	SUBSCRIPTION_CANCELLED = "cancelled"
	SUBSCRIPTION_PAST_DUE  = "past_due"

	TIER_FREE = "free"
	TIER_PRO  = "pro"
)

// User is a tenant of the sandbox platform. Rows are created either by the
// Stripe provisioning pipeline (first paid event for an unseen customer id)
// or by the GitHub OAuth login flow; they are never deleted here.
type User struct {
	ID                 string    `gorm:"type:char(36);primaryKey" json:"id"`
	Email              string    `gorm:"type:varchar(200);default:''" json:"email" validate:"omitempty,email,max=200"`
	GithubUserID       *int64    `gorm:"uniqueIndex:ux_users_github_user_id;default:null" json:"github_user_id,omitempty"`
	StripeCustomerID   *string   `gorm:"type:varchar(191);uniqueIndex:ux_users_stripe_customer_id;default:null" json:"stripe_customer_id,omitempty"`
	SubscriptionStatus string    `gorm:"type:varchar(20);default:'inactive'" json:"subscription_status" validate:"oneof=inactive active cancelled past_due"`
	SubscriptionTier   string    `gorm:"type:varchar(50);default:'free'" json:"subscription_tier"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// BeforeCreate assigns the row id and fills enum defaults so rows created in
// tests behave like rows created through the DB defaults.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.SubscriptionStatus == "" {
		u.SubscriptionStatus = SUBSCRIPTION_INACTIVE
	}
	if u.SubscriptionTier == "" {
		u.SubscriptionTier = TIER_FREE
	}
	return nil
}

// HasActiveSubscription reports whether the user currently pays for access.
func (u *User) HasActiveSubscription() bool {
	return u.SubscriptionStatus == SUBSCRIPTION_ACTIVE
}
