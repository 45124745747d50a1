package taxrates

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pricing-engine/internal/pricing"
)

func TestFlatGrossesUpInclTaxPrices(t *testing.T) {
	f := Flat{Rate: decimal.RequireFromString("8")}

	excl, err := f.ProductPrice(context.Background(), uuid.New(), decimal.RequireFromString("100"), false, pricing.Customer{})
	require.NoError(t, err)
	require.True(t, excl.Price.Equal(decimal.RequireFromString("100")))
	require.True(t, excl.Rate.Equal(decimal.RequireFromString("8")))

	incl, err := f.ProductPrice(context.Background(), uuid.New(), decimal.RequireFromString("100"), true, pricing.Customer{})
	require.NoError(t, err)
	require.True(t, incl.Price.Equal(decimal.RequireFromString("108")), "got %s", incl.Price)
}

func TestFlatZeroRateIsIdentity(t *testing.T) {
	f := Flat{}

	got, err := f.ShippingPrice(context.Background(), decimal.RequireFromString("12.50"), true, pricing.Customer{})
	require.NoError(t, err)
	require.True(t, got.Price.Equal(decimal.RequireFromString("12.50")))
	require.True(t, got.Rate.IsZero())
}

func TestFlatAttributeAndFee(t *testing.T) {
	f := Flat{Rate: decimal.RequireFromString("10")}

	attr, err := f.AttributePrice(context.Background(), pricing.CheckoutAttribute{Price: decimal.RequireFromString("5")}, true, pricing.Customer{})
	require.NoError(t, err)
	require.True(t, attr.Price.Equal(decimal.RequireFromString("5.5")))

	fee, err := f.PaymentFeePrice(context.Background(), decimal.RequireFromString("2"), false, pricing.Customer{})
	require.NoError(t, err)
	require.True(t, fee.Price.Equal(decimal.RequireFromString("2")))
}
