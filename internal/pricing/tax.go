package pricing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// TaxTotal merges the subtotal ledger with shipping and payment-fee tax
// into one ledger and a clamped, rounded grand tax figure. The result's
// ledger is never empty: a tax-free cart yields a single 0:0 bucket so the
// serialized form is stable.
func (c *Calculator) TaxTotal(ctx context.Context, cart Cart, subtotal SubtotalResult, shipping ShippingResult) (TaxResult, error) {
	res := TaxResult{Rates: NewTaxRateLedger()}
	if c.Tax == nil {
		return res, ErrNilTaxProvider
	}

	subTotalTax := decimal.Zero
	for _, e := range subtotal.TaxRates.Entries() {
		subTotalTax = subTotalTax.Add(e.Amount)
		res.Rates.Add(e.Rate, e.Amount)
	}

	shippingTax := decimal.Zero
	if c.Settings.Tax.ShippingTaxable && shipping.Resolved() {
		shippingTax = clampZero(shipping.InclTax.Sub(*shipping.ExclTax))
		res.Rates.Add(shipping.TaxRate, shippingTax)
	}

	feeTax := decimal.Zero
	if c.Settings.Tax.PaymentFeeTaxable && !cart.PaymentFee.IsZero() {
		feeExcl, feeIncl, err := c.paymentFee(ctx, cart)
		if err != nil {
			return res, err
		}
		feeTax = feeIncl.Sub(feeExcl)
		// The fee's effective rate is derived from the amounts because
		// fee taxation may blend rates upstream.
		if feeExcl.IsPositive() {
			rate := oneHundred.Mul(feeTax).Div(feeExcl).Round(3)
			res.Rates.Add(rate, feeTax)
		}
	}

	if res.Rates.Len() == 0 {
		res.Rates.Set(decimal.Zero, decimal.Zero)
	}

	res.Total = c.round(clampZero(subTotalTax.Add(shippingTax).Add(feeTax)))
	return res, nil
}

// paymentFee returns the payment method's additional fee excl and incl
// tax. A zero raw fee short-circuits without touching the tax provider.
func (c *Calculator) paymentFee(ctx context.Context, cart Cart) (decimal.Decimal, decimal.Decimal, error) {
	if cart.PaymentFee.IsZero() {
		return decimal.Zero, decimal.Zero, nil
	}
	excl, err := c.Tax.PaymentFeePrice(ctx, cart.PaymentFee, false, cart.Customer)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("tax payment fee excl: %w", err)
	}
	incl, err := c.Tax.PaymentFeePrice(ctx, cart.PaymentFee, true, cart.Customer)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("tax payment fee incl: %w", err)
	}
	return c.round(excl.Price), c.round(incl.Price), nil
}
