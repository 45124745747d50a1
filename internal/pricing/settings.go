package pricing

import "github.com/shopspring/decimal"

// Settings is an immutable snapshot of every store setting the pipeline
// reads. Callers build it once per invocation; the calculator never
// consults ambient state.
type Settings struct {
	// CurrencyDecimals is the display precision of the primary store
	// currency, used by Round.
	CurrencyDecimals int32
	// RoundDuringCalculation applies rounding at every stage boundary
	// instead of only on the final figure.
	RoundDuringCalculation bool
	// IgnoreDiscounts disables discount selection across all stages.
	IgnoreDiscounts bool

	Tax          TaxSettings
	Shipping     ShippingSettings
	RewardPoints RewardPointsSettings
}

// TaxSettings controls which auxiliary charges are taxable.
type TaxSettings struct {
	ShippingTaxable   bool
	PaymentFeeTaxable bool
}

// ShippingSettings controls free-shipping rules and pickup behaviour.
type ShippingSettings struct {
	FreeOverXEnabled      bool
	FreeOverXIncludingTax bool
	FreeOverXValue        decimal.Decimal
	AllowPickupInStore    bool
	// IgnorePickupCharge skips per-item additional shipping charges when
	// the customer picks the order up in store.
	IgnorePickupCharge bool
}

// RewardPointsSettings controls redemption and earning of loyalty points.
type RewardPointsSettings struct {
	Enabled bool
	// ExchangeRate is the currency value of a single point.
	ExchangeRate decimal.Decimal
	// MinimumPointsToUse gates redemption; zero disables the gate.
	MinimumPointsToUse int
	// PointsForAmount and PointsForPoints define earning: PointsForPoints
	// points are awarded per PointsForAmount spent.
	PointsForAmount            decimal.Decimal
	PointsForPoints            int
	MinOrderTotalToAwardPoints decimal.Decimal
}

// Round applies the configured rounding policy. It is the identity
// function when RoundDuringCalculation is off, and idempotent otherwise:
// Round(Round(x)) == Round(x).
func (s Settings) Round(amount decimal.Decimal) decimal.Decimal {
	if !s.RoundDuringCalculation {
		return amount
	}
	return amount.RoundBank(s.CurrencyDecimals)
}
