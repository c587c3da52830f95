package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"storefront-orders/internal/domain"
	"storefront-orders/internal/infra"

	"github.com/sony/gobreaker/v2"
)

// PaymentVerification is the gateway's answer about one payment intent.
type PaymentVerification struct {
	IntentID   string
	Status     string
	AmountPaid int64
	Currency   string
}

// PaymentVerifier asks the payment gateway whether a claimed payment is
// real. It never creates or persists anything.
type PaymentVerifier struct {
	gateway infra.PaymentGatewayInterface
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[*infra.PaymentIntent]
}

func NewPaymentVerifier(gateway infra.PaymentGatewayInterface, timeout time.Duration) *PaymentVerifier {
	return &PaymentVerifier{
		gateway: gateway,
		timeout: timeout,
		breaker: gobreaker.NewCircuitBreaker[*infra.PaymentIntent](gobreaker.Settings{
			Name:        "payment-gateway",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			// An unknown intent is a definite answer, not a gateway fault.
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, infra.ErrIntentNotFound)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			},
		}),
	}
}

// Verify looks up intentID. Timeouts, transport errors and an open breaker
// surface as domain.ErrGatewayUnavailable; they are never read as success.
func (v *PaymentVerifier) Verify(ctx context.Context, intentID string) (*PaymentVerification, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	pi, err := v.breaker.Execute(func() (*infra.PaymentIntent, error) {
		return v.gateway.RetrieveIntent(ctx, intentID)
	})
	switch {
	case err == nil && pi != nil:
		return &PaymentVerification{
			IntentID:   pi.ID,
			Status:     pi.Status,
			AmountPaid: pi.Amount,
			Currency:   pi.Currency,
		}, nil
	case err == nil:
		return nil, fmt.Errorf("%w: empty response for intent %s", domain.ErrGatewayUnavailable, intentID)
	case errors.Is(err, infra.ErrIntentNotFound):
		return nil, &domain.PaymentMismatchError{Reason: "unknown payment intent " + intentID}
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, fmt.Errorf("%w: circuit open", domain.ErrGatewayUnavailable)
	default:
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
}

// matchPayment enforces that a verified payment succeeded and covers total
// within tolerance. Intents charged in the display currency are converted
// to the base currency first.
func matchPayment(pv *PaymentVerification, total int64, s domain.StoreSettings, successStatus string, tolerance int64) error {
	mismatch := &domain.PaymentMismatchError{
		Status:   pv.Status,
		Expected: total,
		Paid:     pv.AmountPaid,
		Currency: pv.Currency,
	}

	if pv.Status != successStatus {
		mismatch.Reason = "payment not successful"
		return mismatch
	}

	var paid int64
	switch {
	case strings.EqualFold(pv.Currency, s.BaseCurrency):
		paid = pv.AmountPaid
	case strings.EqualFold(pv.Currency, s.DisplayCurrency):
		paid = toBase(pv.AmountPaid, s)
	default:
		mismatch.Reason = "unexpected payment currency"
		return mismatch
	}

	diff := paid - total
	if diff < 0 {
		diff = -diff
	}
	if diff > tolerance {
		mismatch.Paid = paid
		mismatch.Currency = s.BaseCurrency
		mismatch.Reason = "paid amount differs from order total"
		return mismatch
	}
	return nil
}
