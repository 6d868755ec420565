package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Credential is a bearer API key row. Only the SHA-256 digest of the raw key
// is stored; the raw key is returned to the caller once at issuance.
//
// LongLivedUserID mirrors UserID for rows without an expiry and stays NULL
// otherwise. MySQL has no partial unique indexes, but it treats NULLs as
// distinct, so the plain unique index on this column enforces "at most one
// long-lived credential per user" inside the insert itself.
type Credential struct {
	ID              string     `gorm:"type:char(36);primaryKey" json:"id"`
	UserID          string     `gorm:"type:char(36);not null;index" json:"user_id"`
	SecretDigest    string     `gorm:"type:char(64);not null;uniqueIndex:ux_credentials_secret_digest" json:"-"`
	KeyPrefix       string     `gorm:"type:varchar(20);default:''" json:"key_prefix"`
	Label           string     `gorm:"type:varchar(100);default:''" json:"label"`
	ExpiresAt       *time.Time `gorm:"type:timestamp;default:null" json:"expires_at,omitempty"`
	LastUsedAt      *time.Time `gorm:"type:timestamp;default:null" json:"last_used_at,omitempty"`
	LongLivedUserID *string    `gorm:"type:char(36);uniqueIndex:ux_credentials_long_lived_user;default:null" json:"-"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// BeforeCreate assigns the row id and keeps the long-lived marker column in
// sync with the expiry. The marker is never updated afterwards because
// credentials are immutable apart from LastUsedAt.
func (c *Credential) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.SyncLongLivedMarker()
	return nil
}

// SyncLongLivedMarker recomputes LongLivedUserID from the expiry.
func (c *Credential) SyncLongLivedMarker() {
	if c.ExpiresAt == nil {
		userID := c.UserID
		c.LongLivedUserID = &userID
	} else {
		c.LongLivedUserID = nil
	}
}

// IsLongLived reports whether the credential has no expiry.
func (c *Credential) IsLongLived() bool {
	return c.ExpiresAt == nil
}

// IsExpired reports whether the credential has an expiry in the past.
func (c *Credential) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}
