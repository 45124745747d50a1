package quote

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pricing-engine/internal/obs"
	"github.com/noah-isme/pricing-engine/internal/pricing"
	"github.com/noah-isme/pricing-engine/internal/ratecache"
)

func init() {
	obs.MustRegisterDomainMetrics("pricing_test", prometheus.NewRegistry())
}

// flatTax charges a single flat rate on every source.
type flatTax struct {
	rate decimal.Decimal
}

func (f flatTax) taxed(amount decimal.Decimal, includingTax bool) (pricing.TaxedPrice, error) {
	if !includingTax {
		return pricing.TaxedPrice{Price: amount, Rate: f.rate}, nil
	}
	grossed := amount.Mul(decimal.NewFromInt(100).Add(f.rate)).Div(decimal.NewFromInt(100))
	return pricing.TaxedPrice{Price: grossed, Rate: f.rate}, nil
}

func (f flatTax) ProductPrice(_ context.Context, _ uuid.UUID, amount decimal.Decimal, includingTax bool, _ pricing.Customer) (pricing.TaxedPrice, error) {
	return f.taxed(amount, includingTax)
}

func (f flatTax) AttributePrice(_ context.Context, attr pricing.CheckoutAttribute, includingTax bool, _ pricing.Customer) (pricing.TaxedPrice, error) {
	return f.taxed(attr.Price, includingTax)
}

func (f flatTax) ShippingPrice(_ context.Context, amount decimal.Decimal, includingTax bool, _ pricing.Customer) (pricing.TaxedPrice, error) {
	return f.taxed(amount, includingTax)
}

func (f flatTax) PaymentFeePrice(_ context.Context, amount decimal.Decimal, includingTax bool, _ pricing.Customer) (pricing.TaxedPrice, error) {
	return f.taxed(amount, includingTax)
}

func testCalculator(rate string) *pricing.Calculator {
	return &pricing.Calculator{
		Settings: pricing.Settings{
			CurrencyDecimals:       2,
			RoundDuringCalculation: true,
		},
		Tax: flatTax{rate: decimal.RequireFromString(rate)},
	}
}

func freeShippingCart(price string) pricing.Cart {
	return pricing.Cart{
		Customer: pricing.Customer{ID: uuid.New(), FreeShipping: true},
		Items: []pricing.LineItem{{
			ProductID:        uuid.New(),
			Quantity:         1,
			UnitPrice:        decimal.RequireFromString(price),
			RequiresShipping: true,
		}},
	}
}

func TestQuoteReturnsBreakdown(t *testing.T) {
	svc := &Service{Calc: testCalculator("8")}

	b, err := svc.Quote(context.Background(), freeShippingCart("100.00"), nil)
	require.NoError(t, err)
	require.Equal(t, "100", b.SubtotalExclTax)
	require.Equal(t, "108", b.SubtotalInclTax)
	require.Equal(t, "8", b.TaxTotal)
	require.NotNil(t, b.Total)
	require.Equal(t, "108", *b.Total)
	require.Empty(t, b.Warnings)
}

func TestQuoteUnresolvedShippingHasNullTotal(t *testing.T) {
	svc := &Service{Calc: testCalculator("0")}
	cart := freeShippingCart("50.00")
	cart.Customer.FreeShipping = false

	b, err := svc.Quote(context.Background(), cart, nil)
	require.NoError(t, err)
	require.Nil(t, b.Total)
	require.NotEmpty(t, b.Warnings)
	require.Equal(t, "50", b.SubtotalExclTax)
}

func TestQuoteServedFromCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc := &Service{
		Calc:  testCalculator("0"),
		Cache: ratecache.New(client, time.Minute),
	}
	cart := freeShippingCart("10.00")

	first, err := svc.Quote(context.Background(), cart, nil)
	require.NoError(t, err)

	// Break the calculator; a cache hit never reaches it.
	svc.Calc = &pricing.Calculator{}
	second, err := svc.Quote(context.Background(), cart, nil)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestQuoteRequiresCalculator(t *testing.T) {
	svc := &Service{}
	_, err := svc.Quote(context.Background(), pricing.Cart{}, nil)
	require.ErrorIs(t, err, ErrNilCalculator)
}
