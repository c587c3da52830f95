package mysql

import (
	"context"
	"errors"
	"time"

	"storefront-orders/internal/domain"
	"storefront-orders/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type customerStatsRepo struct {
	db *gorm.DB
}

func NewCustomerStatsRepository(db *gorm.DB) repository.CustomerStatsRepository {
	return &customerStatsRepo{db: db}
}

func (r *customerStatsRepo) IncrementOrderStats(ctx context.Context, customerID uint64, amount int64, at time.Time) error {
	row := domain.CustomerStats{
		CustomerID:    customerID,
		OrderCount:    1,
		LifetimeSpend: amount,
		LastOrderAt:   &at,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "customer_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"order_count":    gorm.Expr("order_count + 1"),
			"lifetime_spend": gorm.Expr("lifetime_spend + ?", amount),
			"last_order_at":  at,
		}),
	}).Create(&row).Error
}

func (r *customerStatsRepo) FindByCustomer(ctx context.Context, customerID uint64) (*domain.CustomerStats, error) {
	var s domain.CustomerStats
	if err := r.db.WithContext(ctx).First(&s, "customer_id = ?", customerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}
