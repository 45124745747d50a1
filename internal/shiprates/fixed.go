// Package shiprates provides shipping rate providers for the pricing
// calculator.
package shiprates

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/pricing-engine/internal/pricing"
)

// Fixed charges one flat rate per shipment regardless of weight or
// destination.
type Fixed struct {
	Name string
	Rate decimal.Decimal
	// OptionName labels the single delivery option the provider offers.
	OptionName string
}

var _ pricing.ShippingRateProvider = Fixed{}

func (f Fixed) SystemName() string {
	if f.Name == "" {
		return "shipping.fixed"
	}
	return f.Name
}

func (f Fixed) FixedRate(_ context.Context, _ pricing.RateRequest) (*decimal.Decimal, error) {
	rate := f.Rate
	return &rate, nil
}

func (f Fixed) PickupPoints(_ context.Context, _ *pricing.Address, _ pricing.Customer) (pricing.PickupPointsResult, error) {
	return pricing.PickupPointsResult{Success: true}, nil
}

func (f Fixed) ShippingOptions(_ context.Context, _ pricing.RateRequest) (pricing.ShippingOptionsResult, error) {
	name := f.OptionName
	if name == "" {
		name = "Standard delivery"
	}
	return pricing.ShippingOptionsResult{
		Success: true,
		Options: []pricing.ShippingOption{{
			Name:         name,
			ProviderName: f.SystemName(),
			Rate:         f.Rate,
		}},
	}, nil
}
