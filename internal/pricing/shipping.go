package pricing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Shipping resolves the cart's shipping charge. An unresolvable rate is
// not an error: the result carries nil amounts and a warning, and the
// total stage propagates the gap as a nil total.
func (c *Calculator) Shipping(ctx context.Context, cart Cart, subtotal SubtotalResult) (ShippingResult, error) {
	res := ShippingResult{TaxRate: decimal.Zero}
	if c.Tax == nil {
		return res, ErrNilTaxProvider
	}

	if !cart.RequiresShipping() {
		zero := decimal.Zero
		res.ExclTax = &zero
		res.InclTax = &zero
		return res, nil
	}
	res.Required = true

	if c.isFreeShipping(cart, subtotal) {
		zero := c.round(decimal.Zero)
		res.ExclTax = &zero
		res.InclTax = &zero
		return res, nil
	}

	base, pickup, warnings := c.baseShippingRate(ctx, cart)
	res.Warnings = append(res.Warnings, warnings...)
	if base == nil {
		return res, nil
	}

	rate := *base
	if !(pickup && c.Settings.Shipping.AllowPickupInStore && c.Settings.Shipping.IgnorePickupCharge) {
		rate = rate.Add(cart.AdditionalShippingCharge())
	}

	discount, applied, err := c.selectDiscount(ctx, TargetShipping, cart.Customer, rate)
	if err != nil {
		return res, fmt.Errorf("select shipping discount: %w", err)
	}
	res.AppliedDiscounts = applied
	rate = c.round(clampZero(rate.Sub(c.round(discount))))

	excl, err := c.Tax.ShippingPrice(ctx, rate, false, cart.Customer)
	if err != nil {
		return res, fmt.Errorf("tax shipping excl: %w", err)
	}
	incl, err := c.Tax.ShippingPrice(ctx, rate, true, cart.Customer)
	if err != nil {
		return res, fmt.Errorf("tax shipping incl: %w", err)
	}

	exclAmount := c.round(excl.Price)
	inclAmount := c.round(incl.Price)
	res.ExclTax = &exclAmount
	res.InclTax = &inclAmount
	res.TaxRate = incl.Rate
	return res, nil
}

// isFreeShipping checks the three free-shipping grants: a customer role,
// every shippable line flagged free, or the free-over-threshold rule
// against the discounted subtotal.
func (c *Calculator) isFreeShipping(cart Cart, subtotal SubtotalResult) bool {
	if cart.Customer.FreeShipping {
		return true
	}

	allFree := true
	for _, it := range cart.Items {
		if it.RequiresShipping && !it.FreeShipping {
			allFree = false
			break
		}
	}
	if allFree {
		return true
	}

	if c.Settings.Shipping.FreeOverXEnabled {
		base := subtotal.ExclTax
		if c.Settings.Shipping.FreeOverXIncludingTax {
			base = subtotal.InclTax
		}
		if base.GreaterThan(c.Settings.Shipping.FreeOverXValue) {
			return true
		}
	}
	return false
}

// baseShippingRate resolves the pre-charge rate. Preference order: the
// customer's selected pickup point, the selected shipping option, then a
// fixed rate when exactly one provider is active. A nil rate plus warnings
// means the charge cannot be determined yet.
func (c *Calculator) baseShippingRate(ctx context.Context, cart Cart) (*decimal.Decimal, bool, []string) {
	if p := cart.Customer.SelectedPickupPoint; p != nil && c.Settings.Shipping.AllowPickupInStore {
		fee := p.Fee
		return &fee, true, nil
	}

	if opt := cart.Customer.SelectedShippingOption; opt != nil {
		rate := opt.Rate
		return &rate, opt.PickupInStore, nil
	}

	if len(c.Providers) != 1 {
		return nil, false, []string{"shipping method is not selected"}
	}
	fixed, err := c.Providers[0].FixedRate(ctx, RateRequest{
		Items:           cart.Items,
		ShippingAddress: cart.Customer.ShippingAddress,
		Customer:        cart.Customer,
	})
	if err != nil {
		return nil, false, []string{fmt.Sprintf("shipping rate lookup failed: %v", err)}
	}
	if fixed == nil {
		return nil, false, []string{"shipping rate could not be determined"}
	}
	return fixed, false, nil
}
