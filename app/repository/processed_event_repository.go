package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chainboxhq/chainbox/app/models"
	"github.com/chainboxhq/chainbox/internal/pkg/apperr"
)

// processedEventRepository implements the ProcessedEventRepository interface
type processedEventRepository struct {
	db *gorm.DB
}

// NewProcessedEventRepository creates a new processed event repository instance
func NewProcessedEventRepository(db *gorm.DB) ProcessedEventRepository {
	return &processedEventRepository{db: db}
}

// Insert records an event id. The primary-key conflict is the expected path
// for duplicate deliveries, so it is absorbed with ON CONFLICT DO NOTHING and
// reported as inserted=false rather than an error.
func (r *processedEventRepository) Insert(ctx context.Context, eventID string) (bool, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return false, apperr.ErrInvalidInput
	}
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&models.ProcessedEvent{ID: eventID})
	if tx.Error != nil {
		return false, apperr.FromStore(tx.Error)
	}
	return tx.RowsAffected > 0, nil
}

// Exists reports whether an event id was already processed
func (r *processedEventRepository) Exists(ctx context.Context, eventID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ProcessedEvent{}).Where("id = ?", eventID).Count(&count).Error
	if err != nil {
		return false, apperr.FromStore(err)
	}
	return count > 0, nil
}
