package mysql

import (
	"context"
	"errors"

	"storefront-orders/internal/domain"
	"storefront-orders/internal/repository"

	"gorm.io/gorm"
)

const settingsRowID = 1

type settingsRepo struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) repository.SettingsRepository {
	return &settingsRepo{db: db}
}

// Load returns the single settings row, or nil when the store was never configured.
func (r *settingsRepo) Load(ctx context.Context) (*domain.StoreSettingsRecord, error) {
	var rec domain.StoreSettingsRecord
	if err := r.db.WithContext(ctx).First(&rec, settingsRowID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}
