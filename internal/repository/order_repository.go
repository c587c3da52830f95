package repository

import (
	"context"
	"errors"
	"time"

	"storefront-orders/internal/domain"
)

// ErrDuplicate is returned when a write collides with a unique key.
var ErrDuplicate = errors.New("duplicate record")

// Finders return (nil, nil) when the row does not exist.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uint64) (*domain.Order, error)
	FindByIdempotencyKey(ctx context.Context, customerID uint64, key string) (*domain.Order, error)
	FindByCustomer(ctx context.Context, customerID uint64) ([]domain.Order, error)
	// UpdateStatus writes the new statuses only if the order is still in
	// status from. It reports whether the row was updated.
	UpdateStatus(ctx context.Context, id uint64, from, to domain.OrderStatus, payment domain.PaymentStatus) (bool, error)
}

type ProductRepository interface {
	FindByID(ctx context.Context, id uint64) (*domain.Product, error)
	// ReserveStock decrements stock by qty only when at least qty is in
	// stock, as one conditional write. ok is false when nothing changed.
	ReserveStock(ctx context.Context, id uint64, qty int64) (remaining int64, ok bool, err error)
	RestoreStock(ctx context.Context, id uint64, qty int64) error
}

type CartRepository interface {
	GetLines(ctx context.Context, customerID uint64) ([]domain.CartItem, error)
	Clear(ctx context.Context, customerID uint64) error
}

type CustomerStatsRepository interface {
	IncrementOrderStats(ctx context.Context, customerID uint64, amount int64, at time.Time) error
	FindByCustomer(ctx context.Context, customerID uint64) (*domain.CustomerStats, error)
}

type SettingsRepository interface {
	Load(ctx context.Context) (*domain.StoreSettingsRecord, error)
}

// Stores is the set of repositories bound to one unit of work.
type Stores struct {
	Orders    OrderRepository
	Products  ProductRepository
	Carts     CartRepository
	Customers CustomerStatsRepository
}

// UnitOfWork runs fn atomically: every write made through the Stores handed
// to fn commits together, or none do when fn returns an error.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}
