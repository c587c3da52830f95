package mysql

import (
	"context"
	"errors"
	"fmt"

	"storefront-orders/internal/domain"
	"storefront-orders/internal/repository"

	"gorm.io/gorm"
)

type productRepo struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) repository.ProductRepository {
	return &productRepo{db: db}
}

func (r *productRepo) FindByID(ctx context.Context, id uint64) (*domain.Product, error) {
	var p domain.Product
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) ReserveStock(ctx context.Context, id uint64, qty int64) (int64, bool, error) {
	if qty <= 0 {
		return 0, false, fmt.Errorf("reserve quantity must be positive, got %d", qty)
	}
	result := r.db.WithContext(ctx).Model(&domain.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if result.Error != nil {
		return 0, false, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, false, nil
	}

	var remaining int64
	if err := r.db.WithContext(ctx).Model(&domain.Product{}).
		Where("id = ?", id).Pluck("stock", &remaining).Error; err != nil {
		return 0, true, err
	}
	return remaining, true, nil
}

func (r *productRepo) RestoreStock(ctx context.Context, id uint64, qty int64) error {
	if qty <= 0 {
		return fmt.Errorf("restore quantity must be positive, got %d", qty)
	}
	result := r.db.WithContext(ctx).Model(&domain.Product{}).
		Where("id = ?", id).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("restore stock for product %d: %w", id, domain.ErrNotFound)
	}
	return nil
}
