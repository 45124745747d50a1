package pricing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineEdit carries the staff-edited prices for one order line. The caller
// supplies both-way figures because the original tax context may no longer
// be reproducible; the pipeline derives the line's effective rate from
// them instead of consulting the tax provider.
type LineEdit struct {
	ItemID   uuid.UUID
	Quantity int

	UnitPriceExclTax decimal.Decimal
	UnitPriceInclTax decimal.Decimal
	DiscountExclTax  decimal.Decimal
	DiscountInclTax  decimal.Decimal
	PriceExclTax     decimal.Decimal
	PriceInclTax     decimal.Decimal
}

// OrderUpdate is the mutable parameter object of the edited-order
// recompute. The pipeline rewrites Order's money fields and appends
// warnings; the caller persists the order afterwards.
type OrderUpdate struct {
	Order *Order
	Items []OrderItem
	Edit  *LineEdit

	Customer Customer

	AppliedDiscounts []Discount
	Warnings         []string
}

// UpdateOrderTotals recomputes a persisted order after a line edit. The
// stages mirror the live path but read prices from the stored lines (and
// the edit) instead of the tax provider, so historical tax context is
// preserved.
func (c *Calculator) UpdateOrderTotals(ctx context.Context, upd *OrderUpdate) error {
	if upd == nil || upd.Order == nil {
		return fmt.Errorf("pricing: order update requires an order")
	}

	subtotal, err := c.updateSubtotal(ctx, upd)
	if err != nil {
		return err
	}
	shippingExcl, shippingInclTax, err := c.updateShipping(ctx, upd, subtotal)
	if err != nil {
		return err
	}
	taxTotal, err := c.updateTaxRates(upd, subtotal, shippingExcl, shippingInclTax)
	if err != nil {
		return err
	}
	return c.updateTotal(ctx, upd, subtotal, shippingExcl, taxTotal)
}

type updatedSubtotal struct {
	exclTax         decimal.Decimal
	inclTax         decimal.Decimal
	discountExclTax decimal.Decimal
	discountInclTax decimal.Decimal
	taxRates        *TaxRateLedger
}

// lineRate derives a line's effective tax rate from its stored prices.
func lineRate(exclTax, inclTax decimal.Decimal) decimal.Decimal {
	if !exclTax.IsPositive() {
		return decimal.Zero
	}
	return oneHundred.Mul(inclTax.Sub(exclTax)).Div(exclTax).Round(3)
}

func (c *Calculator) updateSubtotal(ctx context.Context, upd *OrderUpdate) (updatedSubtotal, error) {
	sub := updatedSubtotal{taxRates: NewTaxRateLedger()}

	for _, item := range upd.Items {
		priceExcl := item.PriceExclTax
		priceIncl := item.PriceInclTax
		if upd.Edit != nil && upd.Edit.ItemID == item.ID {
			priceExcl = upd.Edit.PriceExclTax
			priceIncl = upd.Edit.PriceInclTax
		}
		sub.exclTax = sub.exclTax.Add(priceExcl)
		sub.inclTax = sub.inclTax.Add(priceIncl)
		sub.taxRates.Add(lineRate(priceExcl, priceIncl), priceIncl.Sub(priceExcl))
	}

	sub.exclTax = c.round(clampZero(sub.exclTax))
	sub.inclTax = c.round(clampZero(sub.inclTax))

	discountExcl, applied, err := c.selectDiscount(ctx, TargetSubtotal, upd.Customer, sub.exclTax)
	if err != nil {
		return sub, fmt.Errorf("select subtotal discount: %w", err)
	}
	upd.AppliedDiscounts = mergeDiscounts(upd.AppliedDiscounts, applied)

	discountIncl := discountExcl
	if sub.exclTax.IsPositive() {
		share := discountExcl.Div(sub.exclTax)
		for _, e := range sub.taxRates.Entries() {
			discountTax := e.Amount.Mul(share)
			discountIncl = discountIncl.Add(discountTax)
			sub.taxRates.Set(e.Rate, c.round(e.Amount.Sub(discountTax)))
		}
	}
	sub.discountExclTax = c.round(discountExcl)
	sub.discountInclTax = c.round(discountIncl)

	o := upd.Order
	o.OrderSubtotalExclTax = sub.exclTax
	o.OrderSubtotalInclTax = sub.inclTax
	o.OrderSubTotalDiscountExclTax = sub.discountExclTax
	o.OrderSubTotalDiscountInclTax = sub.discountInclTax
	return sub, nil
}

func (c *Calculator) updateShipping(ctx context.Context, upd *OrderUpdate, subtotal updatedSubtotal) (decimal.Decimal, decimal.Decimal, error) {
	o := upd.Order

	requiresShipping := false
	for _, item := range upd.Items {
		if item.RequiresShipping {
			requiresShipping = true
			break
		}
	}
	if !requiresShipping {
		o.ShippingStatus = ShippingNotRequired
		o.OrderShippingExclTax = decimal.Zero
		o.OrderShippingInclTax = decimal.Zero
		return decimal.Zero, decimal.Zero, nil
	}

	if c.freeShippingOnUpdate(upd, subtotal) {
		zero := c.round(decimal.Zero)
		advanceShippingStatus(o)
		o.OrderShippingExclTax = zero
		o.OrderShippingInclTax = zero
		return zero, zero, nil
	}

	var base decimal.Decimal
	pickup := o.PickupInStore
	switch {
	case o.ShippingMethod != "" && pickup:
		point, warn := c.relocatePickupPoint(ctx, upd)
		if warn != "" {
			upd.Warnings = append(upd.Warnings, warn)
		} else {
			base = point.Fee
		}
	case o.ShippingMethod != "":
		opt, warn := c.relocateShippingOption(ctx, upd)
		if warn != "" {
			upd.Warnings = append(upd.Warnings, warn)
		} else {
			base = opt.Rate
		}
	default:
		var err error
		base, pickup, err = c.assignCheapestMethod(ctx, upd)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
	}

	if !(pickup && c.Settings.Shipping.AllowPickupInStore && c.Settings.Shipping.IgnorePickupCharge) {
		for _, item := range upd.Items {
			if item.RequiresShipping {
				base = base.Add(item.AdditionalShippingCharge)
			}
		}
	}

	discount, applied, err := c.selectDiscount(ctx, TargetShipping, upd.Customer, base)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("select shipping discount: %w", err)
	}
	upd.AppliedDiscounts = mergeDiscounts(upd.AppliedDiscounts, applied)
	base = c.round(clampZero(base.Sub(c.round(discount))))

	excl, err := c.Tax.ShippingPrice(ctx, base, false, upd.Customer)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("tax shipping excl: %w", err)
	}
	incl, err := c.Tax.ShippingPrice(ctx, base, true, upd.Customer)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("tax shipping incl: %w", err)
	}
	exclAmount := c.round(excl.Price)
	inclAmount := c.round(incl.Price)

	advanceShippingStatus(o)
	o.OrderShippingExclTax = exclAmount
	o.OrderShippingInclTax = inclAmount
	return exclAmount, inclAmount, nil
}

// advanceShippingStatus moves an order that still needs delivery into the
// matching in-flight state.
func advanceShippingStatus(o *Order) {
	if o.ShippingStatus == ShippingNotRequired || o.ShippingStatus == ShippingNotYetShipped {
		o.ShippingStatus = ShippingNotYetShipped
	} else {
		o.ShippingStatus = ShippingPartiallyShipped
	}
}

// freeShippingOnUpdate mirrors the live path's free-shipping grants for
// stored orders: a customer role, every shippable line flagged free, or
// the free-over-threshold rule against the discounted subtotal.
func (c *Calculator) freeShippingOnUpdate(upd *OrderUpdate, subtotal updatedSubtotal) bool {
	if upd.Customer.FreeShipping {
		return true
	}

	allFree := true
	for _, item := range upd.Items {
		if item.RequiresShipping && !item.FreeShipping {
			allFree = false
			break
		}
	}
	if allFree {
		return true
	}

	if c.Settings.Shipping.FreeOverXEnabled {
		base := clampZero(subtotal.exclTax.Sub(subtotal.discountExclTax))
		if c.Settings.Shipping.FreeOverXIncludingTax {
			base = clampZero(subtotal.inclTax.Sub(subtotal.discountInclTax))
		}
		if base.GreaterThan(c.Settings.Shipping.FreeOverXValue) {
			return true
		}
	}
	return false
}

// relocatePickupPoint finds the order's recorded pickup point again. A
// point removed since the order was placed yields a warning and a zero
// charge rather than a failure.
func (c *Calculator) relocatePickupPoint(ctx context.Context, upd *OrderUpdate) (PickupPoint, string) {
	o := upd.Order
	for _, p := range c.Providers {
		if o.ShippingProvider != "" && p.SystemName() != o.ShippingProvider {
			continue
		}
		result, err := p.PickupPoints(ctx, upd.Customer.BillingAddress, upd.Customer)
		if err != nil || !result.Success {
			continue
		}
		for _, point := range result.Points {
			if point.Name == o.ShippingMethod {
				return point, ""
			}
		}
	}
	return PickupPoint{}, fmt.Sprintf("pickup point %q is no longer available; shipping charged at zero", o.ShippingMethod)
}

// relocateShippingOption finds the order's recorded shipping option again
// with the same removed-method fallback as relocatePickupPoint.
func (c *Calculator) relocateShippingOption(ctx context.Context, upd *OrderUpdate) (ShippingOption, string) {
	o := upd.Order
	req := RateRequest{
		Items:           orderItemsAsLines(upd.Items),
		ShippingAddress: upd.Customer.ShippingAddress,
		Customer:        upd.Customer,
	}
	for _, p := range c.Providers {
		if o.ShippingProvider != "" && p.SystemName() != o.ShippingProvider {
			continue
		}
		result, err := p.ShippingOptions(ctx, req)
		if err != nil || !result.Success {
			continue
		}
		for _, opt := range result.Options {
			if opt.Name == o.ShippingMethod {
				return opt, ""
			}
		}
	}
	return ShippingOption{}, fmt.Sprintf("shipping method %q is no longer available; shipping charged at zero", o.ShippingMethod)
}

// assignCheapestMethod picks a method for an order placed without one:
// the cheapest pickup point when in-store pickup is allowed and offered,
// otherwise the cheapest option across all active providers. The chosen
// method and a fresh copy of the customer's shipping address are recorded
// on the order.
func (c *Calculator) assignCheapestMethod(ctx context.Context, upd *OrderUpdate) (decimal.Decimal, bool, error) {
	o := upd.Order

	if c.Settings.Shipping.AllowPickupInStore {
		var cheapest *PickupPoint
		for _, p := range c.Providers {
			result, err := p.PickupPoints(ctx, upd.Customer.BillingAddress, upd.Customer)
			if err != nil || !result.Success {
				continue
			}
			for i := range result.Points {
				point := result.Points[i]
				if cheapest == nil || point.Fee.LessThan(cheapest.Fee) {
					cheapest = &point
				}
			}
		}
		if cheapest != nil {
			o.PickupInStore = true
			o.ShippingMethod = cheapest.Name
			o.ShippingProvider = cheapest.ProviderName
			return cheapest.Fee, true, nil
		}
	}

	if upd.Customer.ShippingAddress == nil {
		return decimal.Zero, false, ErrNoShippingAddress
	}
	req := RateRequest{
		Items:           orderItemsAsLines(upd.Items),
		ShippingAddress: upd.Customer.ShippingAddress,
		Customer:        upd.Customer,
	}
	var cheapest *ShippingOption
	for _, p := range c.Providers {
		result, err := p.ShippingOptions(ctx, req)
		if err != nil || !result.Success {
			continue
		}
		for i := range result.Options {
			opt := result.Options[i]
			if cheapest == nil || opt.Rate.LessThan(cheapest.Rate) {
				cheapest = &opt
			}
		}
	}
	if cheapest == nil {
		upd.Warnings = append(upd.Warnings, "no shipping method could be assigned; shipping charged at zero")
		return decimal.Zero, false, nil
	}

	o.PickupInStore = false
	o.ShippingMethod = cheapest.Name
	o.ShippingProvider = cheapest.ProviderName
	if c.Addresses != nil {
		inserted, err := c.Addresses.Insert(ctx, *upd.Customer.ShippingAddress)
		if err != nil {
			return decimal.Zero, false, fmt.Errorf("record shipping address: %w", err)
		}
		o.ShippingAddressID = &inserted.ID
	}
	return cheapest.Rate, false, nil
}

func orderItemsAsLines(items []OrderItem) []LineItem {
	lines := make([]LineItem, 0, len(items))
	for _, item := range items {
		lines = append(lines, LineItem{
			ID:                       item.ID,
			ProductID:                item.ProductID,
			Quantity:                 item.Quantity,
			UnitPrice:                item.UnitPriceExclTax,
			RequiresShipping:         item.RequiresShipping,
			FreeShipping:             item.FreeShipping,
			AdditionalShippingCharge: item.AdditionalShippingCharge,
		})
	}
	return lines
}

func (c *Calculator) updateTaxRates(upd *OrderUpdate, subtotal updatedSubtotal, shippingExcl, shippingIncl decimal.Decimal) (decimal.Decimal, error) {
	o := upd.Order
	rates := NewTaxRateLedger()

	subTotalTax := decimal.Zero
	for _, e := range subtotal.taxRates.Entries() {
		subTotalTax = subTotalTax.Add(e.Amount)
		rates.Add(e.Rate, e.Amount)
	}

	shippingTax := decimal.Zero
	if c.Settings.Tax.ShippingTaxable {
		shippingTax = clampZero(shippingIncl.Sub(shippingExcl))
		rates.Add(lineRate(shippingExcl, shippingIncl), shippingTax)
	}

	feeTax := decimal.Zero
	if c.Settings.Tax.PaymentFeeTaxable {
		feeTax = o.PaymentFeeInclTax.Sub(o.PaymentFeeExclTax)
		if o.PaymentFeeExclTax.IsPositive() {
			rates.Add(lineRate(o.PaymentFeeExclTax, o.PaymentFeeInclTax), feeTax)
		}
	}

	if rates.Len() == 0 {
		rates.Set(decimal.Zero, decimal.Zero)
	}

	total := c.round(clampZero(subTotalTax.Add(shippingTax).Add(feeTax)))
	o.OrderTax = total
	o.TaxRates = rates.String()
	return total, nil
}

func (c *Calculator) updateTotal(ctx context.Context, upd *OrderUpdate, subtotal updatedSubtotal, shippingExcl, taxTotal decimal.Decimal) error {
	o := upd.Order

	total := subtotal.exclTax.
		Sub(subtotal.discountExclTax).
		Add(shippingExcl).
		Add(o.PaymentFeeExclTax).
		Add(taxTotal)
	total = c.round(total)

	discount, applied, err := c.selectDiscount(ctx, TargetOrderTotal, upd.Customer, total)
	if err != nil {
		return fmt.Errorf("select order discount: %w", err)
	}
	if discount.GreaterThan(total) {
		discount = total
	}
	upd.AppliedDiscounts = mergeDiscounts(upd.AppliedDiscounts, applied)
	total = clampZero(total.Sub(discount))

	// Gift cards already charged against this order reduce the total but
	// are never re-charged or refunded here.
	if c.GiftCards != nil {
		cards, err := c.GiftCards.UsedWithOrder(ctx, o.ID)
		if err != nil {
			return fmt.Errorf("load order gift cards: %w", err)
		}
		for _, card := range cards {
			used, err := c.GiftCards.UsedAmount(ctx, card, o.ID)
			if err != nil {
				return fmt.Errorf("gift card %s usage: %w", card.Code, err)
			}
			total = clampZero(total.Sub(used))
		}
	}

	if err := c.shrinkRedeemedPoints(ctx, upd, &total); err != nil {
		return err
	}

	o.OrderDiscount = c.round(discount)
	o.OrderTotal = c.round(clampZero(total))
	return nil
}

// shrinkRedeemedPoints re-fits an order's reward-point redemption to a
// lowered total. The history entry is rewritten in place; points freed by
// the shrink are not returned to the customer's balance.
func (c *Calculator) shrinkRedeemedPoints(ctx context.Context, upd *OrderUpdate, total *decimal.Decimal) error {
	o := upd.Order
	if o.RedeemedRewardPointsEntryID == nil || c.RewardPoints == nil {
		return nil
	}
	entry, err := c.RewardPoints.HistoryEntry(ctx, *o.RedeemedRewardPointsEntryID)
	if err != nil {
		return fmt.Errorf("load reward point entry: %w", err)
	}
	if entry == nil {
		return nil
	}

	points := -entry.Points
	amount := c.PointsToAmount(points)
	if total.LessThan(amount) {
		points = c.AmountToPoints(*total)
		amount = *total
	}
	if total.GreaterThanOrEqual(amount) {
		*total = total.Sub(amount)
	}

	if entry.Points != -points || !entry.UsedAmount.Equal(amount) {
		entry.Points = -points
		entry.UsedAmount = amount
		if err := c.RewardPoints.UpdateHistoryEntry(ctx, *entry); err != nil {
			return fmt.Errorf("update reward point entry: %w", err)
		}
	}
	return nil
}
