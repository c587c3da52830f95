package mysql

import (
	"context"
	"errors"
	"log/slog"

	"storefront-orders/internal/domain"
	"storefront-orders/internal/repository"

	"gorm.io/gorm"
)

type orderRepo struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) repository.OrderRepository {
	return &orderRepo{db: db}
}

func (r *orderRepo) Create(ctx context.Context, order *domain.Order) error {
	result := r.db.WithContext(ctx).Create(order)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return repository.ErrDuplicate
		}
		return result.Error
	}
	if order.ID == 0 {
		slog.Warn("order saved but ID is still 0", "rows", result.RowsAffected)
		return errors.New("failed to assign order ID")
	}
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, id uint64) (*domain.Order, error) {
	var o domain.Order
	if err := r.db.WithContext(ctx).Preload("Items").First(&o, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) FindByIdempotencyKey(ctx context.Context, customerID uint64, key string) (*domain.Order, error) {
	var o domain.Order
	err := r.db.WithContext(ctx).Preload("Items").
		Where("customer_id = ? AND idempotency_key = ?", customerID, key).
		First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) FindByCustomer(ctx context.Context, customerID uint64) ([]domain.Order, error) {
	var out []domain.Order
	err := r.db.WithContext(ctx).Preload("Items").
		Where("customer_id = ? AND is_archived = ?", customerID, false).
		Order("created_at DESC").Order("id DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id uint64, from, to domain.OrderStatus, payment domain.PaymentStatus) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.Order{}).
		Where("id = ? AND order_status = ?", id, from).
		Updates(map[string]any{
			"order_status":   to,
			"payment_status": payment,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
