package services

import (
	"math"
	"strings"

	"storefront-orders/internal/domain"
)

// Quote is the priced cart. Every amount is in base-currency minor units.
type Quote struct {
	Currency     string
	Subtotal     int64
	ShippingCost int64
	Tax          int64
	Total        int64

	FreeShippingThreshold int64
	StandardShippingCost  int64
	ExpressShippingCost   int64
}

// Price computes the order amounts from cart price snapshots. It has no side
// effects and cannot fail.
func Price(lines []domain.CartItem, s domain.StoreSettings, method domain.ShippingMethod) Quote {
	q := Quote{
		Currency:              s.BaseCurrency,
		FreeShippingThreshold: toBase(s.FreeShippingThreshold, s),
		StandardShippingCost:  toBase(s.StandardShippingCost, s),
		ExpressShippingCost:   toBase(s.ExpressShippingCost, s),
	}

	for _, l := range lines {
		q.Subtotal += l.UnitPrice * l.Quantity
	}

	switch {
	case q.Subtotal >= q.FreeShippingThreshold:
		q.ShippingCost = 0
	case method == domain.ShippingExpress:
		q.ShippingCost = q.ExpressShippingCost
	default:
		q.ShippingCost = q.StandardShippingCost
	}

	if !s.TaxIncludedInPrice {
		q.Tax = roundMinor(float64(q.Subtotal) * s.TaxRatePercent / 100)
	}

	q.Total = q.Subtotal + q.ShippingCost + q.Tax
	return q
}

// toBase converts a display-currency amount into the base currency.
func toBase(amount int64, s domain.StoreSettings) int64 {
	if strings.EqualFold(s.DisplayCurrency, s.BaseCurrency) {
		return amount
	}
	return roundMinor(float64(amount) * s.ExchangeRate)
}

func roundMinor(v float64) int64 {
	return int64(math.Round(v))
}
