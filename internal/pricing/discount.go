package pricing

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountTarget names the pricing stage a discount applies to.
type DiscountTarget string

const (
	TargetSubtotal   DiscountTarget = "subtotal"
	TargetShipping   DiscountTarget = "shipping"
	TargetOrderTotal DiscountTarget = "total"
)

// Discount is a discount definition. The pipeline selects discounts but
// never mutates them.
type Discount struct {
	ID     uuid.UUID
	Name   string
	Target DiscountTarget

	UsePercentage bool
	// Percentage is in percent units: 10 means 10% off.
	Percentage decimal.Decimal
	Amount     decimal.Decimal

	// Cumulative discounts may stack with each other instead of competing
	// for the single preferred slot.
	Cumulative bool

	// EligibilityRule is an opaque predicate document evaluated by the
	// DiscountValidator collaborator; the pipeline itself ignores it.
	EligibilityRule json.RawMessage
}

// AmountFor computes the discount value against base, clamped to [0, base].
func (d Discount) AmountFor(base decimal.Decimal) decimal.Decimal {
	amount := d.Amount
	if d.UsePercentage {
		amount = base.Mul(d.Percentage).Div(decimal.NewFromInt(100))
	}
	if amount.GreaterThan(base) {
		amount = base
	}
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}

// ContainsDiscount reports whether list already holds d, by identity.
func ContainsDiscount(list []Discount, d Discount) bool {
	for _, el := range list {
		if el.ID == d.ID {
			return true
		}
	}
	return false
}

func mergeDiscounts(dst []Discount, src []Discount) []Discount {
	for _, d := range src {
		if !ContainsDiscount(dst, d) {
			dst = append(dst, d)
		}
	}
	return dst
}

// selectDiscount filters the discounts assigned to target through the
// validator and picks the best candidate set for base. Ineligible
// discounts are skipped silently; validator failures count as ineligible.
func (c *Calculator) selectDiscount(ctx context.Context, target DiscountTarget, customer Customer, base decimal.Decimal) (decimal.Decimal, []Discount, error) {
	if c.Settings.IgnoreDiscounts || c.Discounts == nil {
		return decimal.Zero, nil, nil
	}
	all, err := c.Discounts.DiscountsFor(ctx, target)
	if err != nil {
		return decimal.Zero, nil, err
	}

	allowed := make([]Discount, 0, len(all))
	for _, d := range all {
		if ContainsDiscount(allowed, d) {
			continue
		}
		if c.Validator != nil {
			valid, err := c.Validator.IsValid(ctx, d, customer)
			if err != nil || !valid {
				continue
			}
		}
		allowed = append(allowed, d)
	}

	amount, applied := preferredDiscount(allowed, base)
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	return amount, applied, nil
}

// preferredDiscount picks the single candidate with the largest computed
// amount (first seen wins on ties), then lets the cumulative subset beat
// it when stacking two or more yields more. The combined amount is still
// clamped to base.
func preferredDiscount(candidates []Discount, base decimal.Decimal) (decimal.Decimal, []Discount) {
	best := decimal.Zero
	var preferred []Discount
	for _, d := range candidates {
		if amount := d.AmountFor(base); amount.GreaterThan(best) {
			best = amount
			preferred = []Discount{d}
		}
	}

	cumulativeTotal := decimal.Zero
	var cumulative []Discount
	for _, d := range candidates {
		if !d.Cumulative {
			continue
		}
		cumulativeTotal = cumulativeTotal.Add(d.AmountFor(base))
		cumulative = append(cumulative, d)
	}
	if len(cumulative) > 1 && cumulativeTotal.GreaterThan(best) {
		if cumulativeTotal.GreaterThan(base) {
			cumulativeTotal = base
		}
		return cumulativeTotal, cumulative
	}
	return best, preferred
}
