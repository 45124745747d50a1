// Package taxrates provides tax providers for the pricing calculator.
package taxrates

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/pricing-engine/internal/pricing"
)

var oneHundred = decimal.NewFromInt(100)

// Flat applies a single percentage rate to every taxable amount. It is the
// default provider for stores that charge one country-wide rate.
type Flat struct {
	// Rate is the percentage applied, 8.5 meaning 8.5%. Non-positive
	// rates leave prices untouched.
	Rate decimal.Decimal
}

var _ pricing.TaxProvider = Flat{}

func (f Flat) adjust(amount decimal.Decimal, includingTax bool) pricing.TaxedPrice {
	rate := f.Rate
	if rate.Sign() <= 0 {
		return pricing.TaxedPrice{Price: amount}
	}
	if !includingTax {
		return pricing.TaxedPrice{Price: amount, Rate: rate}
	}
	gross := amount.Mul(oneHundred.Add(rate)).Div(oneHundred)
	return pricing.TaxedPrice{Price: gross, Rate: rate}
}

func (f Flat) ProductPrice(_ context.Context, _ uuid.UUID, amount decimal.Decimal, includingTax bool, _ pricing.Customer) (pricing.TaxedPrice, error) {
	return f.adjust(amount, includingTax), nil
}

func (f Flat) AttributePrice(_ context.Context, attr pricing.CheckoutAttribute, includingTax bool, _ pricing.Customer) (pricing.TaxedPrice, error) {
	return f.adjust(attr.Price, includingTax), nil
}

func (f Flat) ShippingPrice(_ context.Context, amount decimal.Decimal, includingTax bool, _ pricing.Customer) (pricing.TaxedPrice, error) {
	return f.adjust(amount, includingTax), nil
}

func (f Flat) PaymentFeePrice(_ context.Context, amount decimal.Decimal, includingTax bool, _ pricing.Customer) (pricing.TaxedPrice, error) {
	return f.adjust(amount, includingTax), nil
}
