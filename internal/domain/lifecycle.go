package domain

import "fmt"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Actor identifies who requested a status change.
type Actor struct {
	Role       Role
	CustomerID uint64
}

func Customer(id uint64) Actor { return Actor{Role: RoleCustomer, CustomerID: id} }

func Admin() Actor { return Actor{Role: RoleAdmin} }

// CheckTransition validates a lifecycle move. Cancelled is terminal for
// everyone: a cancelled order cannot be revived, the customer has to place a
// new one so that stock and payment are taken again.
func CheckTransition(from, to OrderStatus, role Role) error {
	if from == StatusCancelled {
		return fmt.Errorf("%w: order is cancelled, place a new order instead", ErrInvalidTransition)
	}
	if !to.Valid() {
		return Validationf("unknown order status %q", to)
	}
	if from == to {
		return fmt.Errorf("%w: order is already %s", ErrInvalidTransition, to)
	}

	switch role {
	case RoleAdmin:
		return nil
	case RoleCustomer:
		if to == StatusCancelled && (from == StatusPending || from == StatusProcessing) {
			return nil
		}
		return fmt.Errorf("%w: customers may only cancel pending or processing orders", ErrInvalidTransition)
	default:
		return Validationf("unknown actor role %q", role)
	}
}

// NextPaymentStatus returns the payment status an order should carry after
// moving to status to. Cash on delivery is settled when the parcel arrives.
func NextPaymentStatus(o *Order, to OrderStatus) PaymentStatus {
	if to == StatusDelivered && o.PaymentMethod == PaymentCOD {
		return PaymentPaid
	}
	return o.PaymentStatus
}
