package pricing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Subtotal prices the cart's line items and checkout attributes both ways
// (excl and incl tax), accumulates the per-rate tax ledger, then applies
// the subtotal discount and allocates it across rate buckets in proportion
// to each bucket's share of the excl-tax base.
func (c *Calculator) Subtotal(ctx context.Context, cart Cart) (SubtotalResult, error) {
	res := SubtotalResult{TaxRates: NewTaxRateLedger()}
	if c.Tax == nil {
		return res, ErrNilTaxProvider
	}

	exclTax := decimal.Zero
	inclTax := decimal.Zero

	for _, item := range cart.Items {
		line := item.Subtotal()
		excl, err := c.Tax.ProductPrice(ctx, item.ProductID, line, false, cart.Customer)
		if err != nil {
			return res, fmt.Errorf("price item %s excl tax: %w", item.ID, err)
		}
		incl, err := c.Tax.ProductPrice(ctx, item.ProductID, line, true, cart.Customer)
		if err != nil {
			return res, fmt.Errorf("price item %s incl tax: %w", item.ID, err)
		}
		exclTax = exclTax.Add(excl.Price)
		inclTax = inclTax.Add(incl.Price)
		res.TaxRates.Add(incl.Rate, incl.Price.Sub(excl.Price))
	}

	for _, attr := range cart.Attributes {
		excl, err := c.Tax.AttributePrice(ctx, attr, false, cart.Customer)
		if err != nil {
			return res, fmt.Errorf("price attribute %q excl tax: %w", attr.Name, err)
		}
		incl, err := c.Tax.AttributePrice(ctx, attr, true, cart.Customer)
		if err != nil {
			return res, fmt.Errorf("price attribute %q incl tax: %w", attr.Name, err)
		}
		exclTax = exclTax.Add(excl.Price)
		inclTax = inclTax.Add(incl.Price)
		res.TaxRates.Add(incl.Rate, incl.Price.Sub(excl.Price))
	}

	res.WithoutDiscountExclTax = c.round(clampZero(exclTax))
	res.WithoutDiscountInclTax = c.round(clampZero(inclTax))

	discountExcl, applied, err := c.selectDiscount(ctx, TargetSubtotal, cart.Customer, res.WithoutDiscountExclTax)
	if err != nil {
		return res, fmt.Errorf("select subtotal discount: %w", err)
	}
	res.AppliedDiscounts = applied

	// Allocate the discount across tax buckets so each rate's tax shrinks
	// by the same proportion the discount takes off the excl-tax base.
	discountIncl := discountExcl
	if res.WithoutDiscountExclTax.IsPositive() {
		share := discountExcl.Div(res.WithoutDiscountExclTax)
		for _, e := range res.TaxRates.Entries() {
			discountTax := e.Amount.Mul(share)
			discountIncl = discountIncl.Add(discountTax)
			res.TaxRates.Set(e.Rate, c.round(e.Amount.Sub(discountTax)))
		}
	}
	res.DiscountExclTax = c.round(discountExcl)
	res.DiscountInclTax = c.round(discountIncl)

	res.ExclTax = c.round(clampZero(res.WithoutDiscountExclTax.Sub(res.DiscountExclTax)))
	res.InclTax = c.round(clampZero(res.WithoutDiscountInclTax.Sub(res.DiscountInclTax)))
	return res, nil
}
