package shiprates

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pricing-engine/internal/pricing"
)

func TestFixedRate(t *testing.T) {
	p := Fixed{Rate: decimal.RequireFromString("12.50")}

	rate, err := p.FixedRate(context.Background(), pricing.RateRequest{})
	require.NoError(t, err)
	require.NotNil(t, rate)
	require.True(t, rate.Equal(decimal.RequireFromString("12.50")))
	require.Equal(t, "shipping.fixed", p.SystemName())
}

func TestFixedShippingOptions(t *testing.T) {
	p := Fixed{Name: "flat-courier", OptionName: "Economy", Rate: decimal.RequireFromString("7")}

	res, err := p.ShippingOptions(context.Background(), pricing.RateRequest{})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Len(t, res.Options, 1)
	require.Equal(t, "Economy", res.Options[0].Name)
	require.Equal(t, "flat-courier", res.Options[0].ProviderName)

	points, err := p.PickupPoints(context.Background(), nil, pricing.Customer{})
	require.NoError(t, err)
	require.True(t, points.Success)
	require.Empty(t, points.Points)
}
