package models

import "time"

// ProcessedEvent records a webhook event id that was fully handled. Existence
// of a row is the whole contract: the primary key insert is the idempotency
// boundary for duplicate deliveries, and nothing ever reads payload data back
// from this table.
type ProcessedEvent struct {
	ID        string    `gorm:"type:varchar(191);primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
