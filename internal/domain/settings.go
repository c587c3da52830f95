package domain

// StoreSettings is the resolved, validated pricing configuration. Shipping
// amounts are in DisplayCurrency minor units.
type StoreSettings struct {
	BaseCurrency          string
	DisplayCurrency       string
	ExchangeRate          float64
	FreeShippingThreshold int64
	StandardShippingCost  int64
	ExpressShippingCost   int64
	TaxRatePercent        float64
	TaxIncludedInPrice    bool
}

// StoreSettingsRecord is the persisted row. Nil columns are unset and take
// the configured default.
type StoreSettingsRecord struct {
	ID                    uint64 `gorm:"primaryKey"`
	BaseCurrency          *string
	DisplayCurrency       *string
	ExchangeRate          *float64
	FreeShippingThreshold *int64
	StandardShippingCost  *int64
	ExpressShippingCost   *int64
	TaxRatePercent        *float64
	TaxIncludedInPrice    *bool
}

func (StoreSettingsRecord) TableName() string { return "store_settings" }

// Resolve fills unset or out-of-range fields from defaults.
func (r *StoreSettingsRecord) Resolve(defaults StoreSettings) StoreSettings {
	s := defaults
	if r == nil {
		return s
	}
	if r.BaseCurrency != nil && len(*r.BaseCurrency) == 3 {
		s.BaseCurrency = *r.BaseCurrency
	}
	if r.DisplayCurrency != nil && len(*r.DisplayCurrency) == 3 {
		s.DisplayCurrency = *r.DisplayCurrency
	}
	if r.ExchangeRate != nil && *r.ExchangeRate > 0 {
		s.ExchangeRate = *r.ExchangeRate
	}
	if r.FreeShippingThreshold != nil && *r.FreeShippingThreshold >= 0 {
		s.FreeShippingThreshold = *r.FreeShippingThreshold
	}
	if r.StandardShippingCost != nil && *r.StandardShippingCost >= 0 {
		s.StandardShippingCost = *r.StandardShippingCost
	}
	if r.ExpressShippingCost != nil && *r.ExpressShippingCost >= 0 {
		s.ExpressShippingCost = *r.ExpressShippingCost
	}
	if r.TaxRatePercent != nil && *r.TaxRatePercent >= 0 && *r.TaxRatePercent <= 100 {
		s.TaxRatePercent = *r.TaxRatePercent
	}
	if r.TaxIncludedInPrice != nil {
		s.TaxIncludedInPrice = *r.TaxIncludedInPrice
	}
	return s
}
