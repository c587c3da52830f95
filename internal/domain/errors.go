package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrPaymentMismatch    = errors.New("payment does not match order")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrInvalidTransition  = errors.New("invalid order status transition")
	ErrNotFound           = errors.New("not found")
	ErrCheckoutInProgress = errors.New("checkout with this idempotency key is already in progress")
)

func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

type InsufficientStockError struct {
	ProductID   uint64
	ProductName string
	Requested   int64
	Available   int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d", e.ProductName, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

type PaymentMismatchError struct {
	Status   string
	Expected int64
	Paid     int64
	Currency string
	Reason   string
}

func (e *PaymentMismatchError) Error() string {
	return fmt.Sprintf("payment mismatch: %s (status=%s expected=%d paid=%d %s)", e.Reason, e.Status, e.Expected, e.Paid, e.Currency)
}

func (e *PaymentMismatchError) Unwrap() error { return ErrPaymentMismatch }
