// Package quote exposes the live-cart pricing pipeline over HTTP. It
// translates request snapshots into calculator input, consults the quote
// cache, and shapes the breakdown response.
package quote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/pricing-engine/internal/obs"
	"github.com/noah-isme/pricing-engine/internal/pricing"
	"github.com/noah-isme/pricing-engine/internal/ratecache"
)

// ErrNilCalculator indicates the service was wired without a calculator.
var ErrNilCalculator = errors.New("quote: calculator not configured")

// Service prices cart snapshots.
type Service struct {
	Calc   *pricing.Calculator
	Cache  *ratecache.Cache
	Logger zerolog.Logger
}

// Breakdown is the JSON shape of a priced cart. Money renders as decimal
// strings; Total is null while shipping is unresolved.
type Breakdown struct {
	SubtotalExclTax         string         `json:"subtotal_excl_tax"`
	SubtotalInclTax         string         `json:"subtotal_incl_tax"`
	SubtotalDiscountExclTax string         `json:"subtotal_discount_excl_tax"`
	SubtotalDiscountInclTax string         `json:"subtotal_discount_incl_tax"`
	ShippingExclTax         *string        `json:"shipping_excl_tax"`
	ShippingInclTax         *string        `json:"shipping_incl_tax"`
	TaxTotal                string         `json:"tax_total"`
	TaxRates                string         `json:"tax_rates"`
	OrderDiscount           string         `json:"order_discount"`
	GiftCards               []UsedGiftCard `json:"gift_cards,omitempty"`
	RedeemedPoints          int            `json:"redeemed_points,omitempty"`
	RedeemedAmount          string         `json:"redeemed_amount,omitempty"`
	Total                   *string        `json:"total"`
	Warnings                []string       `json:"warnings,omitempty"`
}

// UsedGiftCard reports one gift card consumed by the quote.
type UsedGiftCard struct {
	Code   string `json:"code"`
	Amount string `json:"amount"`
}

// Quote prices a cart, serving from cache when an identical snapshot was
// priced recently. useRewardPoints overrides the customer preference when
// non-nil.
func (s *Service) Quote(ctx context.Context, cart pricing.Cart, useRewardPoints *bool) (Breakdown, error) {
	if s.Calc == nil {
		return Breakdown{}, ErrNilCalculator
	}

	key, err := ratecache.Key("quote", cacheSnapshot{Cart: cart, UseRewardPoints: useRewardPoints})
	if err == nil {
		var cached Breakdown
		if found, cacheErr := s.Cache.GetJSON(ctx, key, &cached); cacheErr == nil && found {
			obs.QuoteCacheHits.Inc()
			return cached, nil
		}
	}

	start := time.Now()
	result, err := s.Calc.CartTotal(ctx, cart, useRewardPoints)
	obs.QuoteDuration.Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		obs.QuoteTotal.WithLabelValues("error").Inc()
		return Breakdown{}, fmt.Errorf("price cart: %w", err)
	}

	breakdown := toBreakdown(result)
	if result.Total == nil {
		obs.QuoteTotal.WithLabelValues("incomplete").Inc()
	} else {
		obs.QuoteTotal.WithLabelValues("ok").Inc()
	}

	if key != "" {
		if cacheErr := s.Cache.SetJSON(ctx, key, breakdown); cacheErr != nil {
			s.Logger.Warn().Err(cacheErr).Msg("store quote in cache")
		}
	}
	return breakdown, nil
}

type cacheSnapshot struct {
	Cart            pricing.Cart `json:"cart"`
	UseRewardPoints *bool        `json:"use_reward_points"`
}

func toBreakdown(res pricing.CartTotal) Breakdown {
	b := Breakdown{
		SubtotalExclTax:         res.Subtotal.ExclTax.String(),
		SubtotalInclTax:         res.Subtotal.InclTax.String(),
		SubtotalDiscountExclTax: res.Subtotal.DiscountExclTax.String(),
		SubtotalDiscountInclTax: res.Subtotal.DiscountInclTax.String(),
		TaxTotal:                res.Tax.Total.String(),
		TaxRates:                res.Tax.Rates.String(),
		OrderDiscount:           res.DiscountAmount.String(),
		Warnings:                res.Shipping.Warnings,
	}
	if res.Shipping.Resolved() {
		b.ShippingExclTax = stringPtr(*res.Shipping.ExclTax)
		b.ShippingInclTax = stringPtr(*res.Shipping.InclTax)
	}
	for _, card := range res.AppliedGiftCards {
		b.GiftCards = append(b.GiftCards, UsedGiftCard{Code: card.GiftCard.Code, Amount: card.Amount.String()})
	}
	if res.RedeemedPoints > 0 {
		b.RedeemedPoints = res.RedeemedPoints
		b.RedeemedAmount = res.RedeemedAmount.String()
	}
	if res.Total != nil {
		b.Total = stringPtr(*res.Total)
	}
	return b
}

func stringPtr(d decimal.Decimal) *string {
	s := d.String()
	return &s
}
