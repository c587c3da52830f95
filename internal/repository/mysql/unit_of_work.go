package mysql

import (
	"context"

	"storefront-orders/internal/repository"

	"gorm.io/gorm"
)

type unitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) repository.UnitOfWork {
	return &unitOfWork{db: db}
}

func (u *unitOfWork) Do(ctx context.Context, fn func(ctx context.Context, s repository.Stores) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, storesFor(tx))
	})
}

func storesFor(db *gorm.DB) repository.Stores {
	return repository.Stores{
		Orders:    NewOrderRepository(db),
		Products:  NewProductRepository(db),
		Carts:     NewCartRepository(db),
		Customers: NewCustomerStatsRepository(db),
	}
}

// NewStores returns repositories that write outside any unit of work.
func NewStores(db *gorm.DB) repository.Stores {
	return storesFor(db)
}
