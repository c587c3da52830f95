package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"storefront-orders/internal/domain"
	"storefront-orders/internal/repository"
)

// Notifier is a fire-and-forget sink for domain events. Implementations must
// not block the caller.
type Notifier interface {
	Notify(eventType string, payload any)
}

// Reservation records one successful stock decrement.
type Reservation struct {
	ProductID   uint64
	ProductName string
	Quantity    int64
	Remaining   int64
}

type Inventory struct {
	watermark int64
	notifier  Notifier
}

func NewInventory(lowStockWatermark int64, notifier Notifier) *Inventory {
	return &Inventory{watermark: lowStockWatermark, notifier: notifier}
}

// Reserve takes qty units of a product, or fails with an
// *domain.InsufficientStockError without touching stock.
func (inv *Inventory) Reserve(ctx context.Context, products repository.ProductRepository, productID uint64, qty int64) (Reservation, error) {
	if qty <= 0 {
		return Reservation{}, domain.Validationf("quantity for product %d must be positive, got %d", productID, qty)
	}

	remaining, ok, err := products.ReserveStock(ctx, productID, qty)
	if err != nil {
		return Reservation{}, fmt.Errorf("reserve product %d: %w", productID, err)
	}
	if !ok {
		p, err := products.FindByID(ctx, productID)
		if err != nil {
			return Reservation{}, fmt.Errorf("load product %d: %w", productID, err)
		}
		if p == nil {
			return Reservation{}, fmt.Errorf("product %d: %w", productID, domain.ErrNotFound)
		}
		return Reservation{}, &domain.InsufficientStockError{
			ProductID:   productID,
			ProductName: p.Name,
			Requested:   qty,
			Available:   p.Stock,
		}
	}
	return Reservation{ProductID: productID, Quantity: qty, Remaining: remaining}, nil
}

func (inv *Inventory) Restore(ctx context.Context, products repository.ProductRepository, productID uint64, qty int64) error {
	if err := products.RestoreStock(ctx, productID, qty); err != nil {
		return fmt.Errorf("restore product %d: %w", productID, err)
	}
	return nil
}

// ReserveLines reserves every cart line in ascending product id order, so two
// checkouts over the same products lock their rows in the same order. If any
// line fails, the lines already reserved by this call are restored before the
// error is returned.
func (inv *Inventory) ReserveLines(ctx context.Context, products repository.ProductRepository, lines []domain.CartItem) ([]Reservation, error) {
	sorted := slices.Clone(lines)
	slices.SortStableFunc(sorted, func(a, b domain.CartItem) int {
		return cmp.Compare(a.ProductID, b.ProductID)
	})

	done := make([]Reservation, 0, len(sorted))
	for _, l := range sorted {
		r, err := inv.Reserve(ctx, products, l.ProductID, l.Quantity)
		if err != nil {
			if rerr := inv.restoreReservations(ctx, products, done); rerr != nil {
				return nil, errors.Join(err, rerr)
			}
			return nil, err
		}
		r.ProductName = l.ProductName
		done = append(done, r)
	}
	return done, nil
}

// RestoreItems puts the quantities of a cancelled order back on the shelf,
// in the same product order ReserveLines locks them.
func (inv *Inventory) RestoreItems(ctx context.Context, products repository.ProductRepository, items []domain.OrderItem) error {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b domain.OrderItem) int {
		return cmp.Compare(a.ProductID, b.ProductID)
	})
	for _, it := range sorted {
		if err := inv.Restore(ctx, products, it.ProductID, it.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (inv *Inventory) restoreReservations(ctx context.Context, products repository.ProductRepository, done []Reservation) error {
	var errs []error
	for i := len(done) - 1; i >= 0; i-- {
		r := done[i]
		if err := inv.Restore(ctx, products, r.ProductID, r.Quantity); err != nil {
			slog.Error("compensating restore failed", "productId", r.ProductID, "qty", r.Quantity, "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// EmitSignals reports reservations that emptied a product or pushed it
// across the low-stock watermark. Call it only once the reservations are
// durable.
func (inv *Inventory) EmitSignals(reservations []Reservation) {
	if inv.notifier == nil {
		return
	}
	for _, r := range reservations {
		evt := domain.StockSignalEvent{
			ProductID:   r.ProductID,
			ProductName: r.ProductName,
			Remaining:   r.Remaining,
			Watermark:   inv.watermark,
		}
		switch {
		case r.Remaining == 0:
			inv.notifier.Notify(domain.EventOutOfStock, evt)
		case r.Remaining <= inv.watermark && r.Remaining+r.Quantity > inv.watermark:
			inv.notifier.Notify(domain.EventLowStock, evt)
		}
	}
}
