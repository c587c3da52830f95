package mysql

import (
	"context"

	"storefront-orders/internal/domain"
	"storefront-orders/internal/repository"

	"gorm.io/gorm"
)

type cartRepo struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) repository.CartRepository {
	return &cartRepo{db: db}
}

func (r *cartRepo) GetLines(ctx context.Context, customerID uint64) ([]domain.CartItem, error) {
	var lines []domain.CartItem
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("id ASC").
		Find(&lines).Error
	return lines, err
}

func (r *cartRepo) Clear(ctx context.Context, customerID uint64) error {
	return r.db.WithContext(ctx).Where("customer_id = ?", customerID).Delete(&domain.CartItem{}).Error
}
