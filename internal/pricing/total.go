package pricing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// CartTotal runs the full live-cart pipeline. useRewardPoints overrides
// the customer's stored preference when non-nil. The stages run in fixed
// order; when shipping cannot be resolved the partial figures are still
// returned with a nil Total so callers can show a breakdown.
func (c *Calculator) CartTotal(ctx context.Context, cart Cart, useRewardPoints *bool) (CartTotal, error) {
	var out CartTotal

	subtotal, err := c.Subtotal(ctx, cart)
	if err != nil {
		return out, err
	}
	out.Subtotal = subtotal

	shipping, err := c.Shipping(ctx, cart, subtotal)
	if err != nil {
		return out, err
	}
	out.Shipping = shipping

	tax, err := c.TaxTotal(ctx, cart, subtotal, shipping)
	if err != nil {
		return out, err
	}
	out.Tax = tax

	feeExcl := decimal.Zero
	if !cart.PaymentFee.IsZero() {
		feeExcl, _, err = c.paymentFee(ctx, cart)
		if err != nil {
			return out, err
		}
	}

	running := subtotal.ExclTax
	if shipping.Resolved() {
		running = running.Add(*shipping.ExclTax)
	}
	running = c.round(running.Add(feeExcl).Add(tax.Total))

	discount, applied, err := c.selectDiscount(ctx, TargetOrderTotal, cart.Customer, running)
	if err != nil {
		return out, fmt.Errorf("select order discount: %w", err)
	}
	if discount.GreaterThan(running) {
		discount = running
	}
	out.DiscountAmount = c.round(discount)
	out.AppliedDiscounts = applied
	running = c.round(clampZero(running.Sub(discount)))

	out.AppliedGiftCards, running, err = c.applyGiftCards(ctx, cart, running)
	if err != nil {
		return out, err
	}
	running = c.round(clampZero(running))

	if !shipping.Resolved() {
		return out, nil
	}

	points, amount, err := c.redeemPoints(ctx, cart.Customer, useRewardPoints, running)
	if err != nil {
		return out, err
	}
	out.RedeemedPoints = points
	out.RedeemedAmount = amount
	running = c.round(clampZero(running.Sub(amount)))

	out.Total = &running
	return out, nil
}

// applyGiftCards consumes the customer's active cards in ledger order
// until the running total is exhausted. Recurring carts never consume
// gift cards.
func (c *Calculator) applyGiftCards(ctx context.Context, cart Cart, running decimal.Decimal) ([]AppliedGiftCard, decimal.Decimal, error) {
	if c.GiftCards == nil || cart.Recurring() {
		return nil, running, nil
	}
	cards, err := c.GiftCards.ActiveCards(ctx, cart.Customer)
	if err != nil {
		return nil, running, fmt.Errorf("load gift cards: %w", err)
	}

	var applied []AppliedGiftCard
	for _, card := range cards {
		if !running.IsPositive() {
			break
		}
		remaining, err := c.GiftCards.RemainingBalance(ctx, card)
		if err != nil {
			return applied, running, fmt.Errorf("gift card %s balance: %w", card.Code, err)
		}
		amount := remaining
		if amount.GreaterThan(running) {
			amount = running
		}
		if !amount.IsPositive() {
			continue
		}
		applied = append(applied, AppliedGiftCard{GiftCard: card, Amount: amount})
		running = running.Sub(amount)
	}
	return applied, running, nil
}
