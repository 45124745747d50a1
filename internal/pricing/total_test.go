package pricing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestCartTotalDiscountedTaxedFreeShipping(t *testing.T) {
	discount := percentDiscount(TargetSubtotal, "10")
	calc := &Calculator{
		Settings:  testSettings(),
		Tax:       stubTax{rate: dec("8")},
		Discounts: stubDiscounts{byTarget: map[DiscountTarget][]Discount{TargetSubtotal: {discount}}},
	}
	cart := Cart{
		Customer: Customer{ID: uuid.New(), FreeShipping: true},
		Items:    []LineItem{shippableItem("100.00")},
	}

	res, err := calc.CartTotal(context.Background(), cart, nil)
	require.NoError(t, err)
	require.True(t, res.Subtotal.ExclTax.Equal(dec("90")))
	require.True(t, res.Tax.Total.Equal(dec("7.20")), "got %s", res.Tax.Total)
	require.NotNil(t, res.Total)
	require.True(t, res.Total.Equal(dec("97.20")), "got %s", res.Total)
}

func TestCartTotalFixedRateShipping(t *testing.T) {
	calc := &Calculator{
		Settings:  testSettings(),
		Tax:       stubTax{rate: dec("0")},
		Providers: []ShippingRateProvider{stubProvider{name: "flat", fixed: decPtr("12.50")}},
	}
	cart := Cart{
		Customer: Customer{ID: uuid.New()},
		Items:    []LineItem{shippableItem("50.00")},
	}

	res, err := calc.CartTotal(context.Background(), cart, nil)
	require.NoError(t, err)
	require.True(t, res.Shipping.ExclTax.Equal(dec("12.50")))
	require.NotNil(t, res.Total)
	require.True(t, res.Total.Equal(dec("62.50")))
}

func TestCartTotalGiftCardsConsumedInOrder(t *testing.T) {
	card1 := GiftCard{ID: uuid.New(), Code: "GC-1"}
	card2 := GiftCard{ID: uuid.New(), Code: "GC-2"}
	calc := &Calculator{
		Settings: testSettings(),
		Tax:      stubTax{rate: dec("0")},
		GiftCards: stubGiftCards{
			cards: []GiftCard{card1, card2},
			balances: map[uuid.UUID]decimal.Decimal{
				card1.ID: dec("5.00"),
				card2.ID: dec("10.00"),
			},
		},
	}
	cart := Cart{
		Customer: Customer{ID: uuid.New(), FreeShipping: true},
		Items:    []LineItem{shippableItem("12.00")},
	}

	res, err := calc.CartTotal(context.Background(), cart, nil)
	require.NoError(t, err)
	require.Len(t, res.AppliedGiftCards, 2)
	require.True(t, res.AppliedGiftCards[0].Amount.Equal(dec("5")))
	require.True(t, res.AppliedGiftCards[1].Amount.Equal(dec("7")))
	require.NotNil(t, res.Total)
	require.True(t, res.Total.IsZero())
}

func TestCartTotalGiftCardsSkippedForRecurring(t *testing.T) {
	card := GiftCard{ID: uuid.New(), Code: "GC-1"}
	calc := &Calculator{
		Settings: testSettings(),
		Tax:      stubTax{rate: dec("0")},
		GiftCards: stubGiftCards{
			cards:    []GiftCard{card},
			balances: map[uuid.UUID]decimal.Decimal{card.ID: dec("5.00")},
		},
	}
	item := shippableItem("12.00")
	item.Recurring = true
	cart := Cart{
		Customer: Customer{ID: uuid.New(), FreeShipping: true},
		Items:    []LineItem{item},
	}

	res, err := calc.CartTotal(context.Background(), cart, nil)
	require.NoError(t, err)
	require.Empty(t, res.AppliedGiftCards)
	require.True(t, res.Total.Equal(dec("12")))
}

func TestCartTotalPartialPointRedemption(t *testing.T) {
	use := true
	calc := &Calculator{
		Settings:     testSettings(),
		Tax:          stubTax{rate: dec("0")},
		RewardPoints: &stubPoints{balance: 500},
	}
	cart := Cart{
		Customer: Customer{ID: uuid.New(), FreeShipping: true},
		Items:    []LineItem{shippableItem("3.00")},
	}

	res, err := calc.CartTotal(context.Background(), cart, &use)
	require.NoError(t, err)
	// 500 points are worth 5.00; only 300 are needed to cover 3.00.
	require.Equal(t, 300, res.RedeemedPoints)
	require.True(t, res.RedeemedAmount.Equal(dec("3")))
	require.NotNil(t, res.Total)
	require.True(t, res.Total.IsZero())
}

func TestCartTotalPointsCappedByBalance(t *testing.T) {
	use := true
	calc := &Calculator{
		Settings:     testSettings(),
		Tax:          stubTax{rate: dec("0")},
		RewardPoints: &stubPoints{balance: 100},
	}
	cart := Cart{
		Customer: Customer{ID: uuid.New(), FreeShipping: true},
		Items:    []LineItem{shippableItem("3.00")},
	}

	res, err := calc.CartTotal(context.Background(), cart, &use)
	require.NoError(t, err)
	require.Equal(t, 100, res.RedeemedPoints)
	require.True(t, res.RedeemedAmount.Equal(dec("1")))
	require.True(t, res.Total.Equal(dec("2")))
}

func TestCartTotalNilWhenShippingUnresolved(t *testing.T) {
	calc := &Calculator{Settings: testSettings(), Tax: stubTax{rate: dec("8")}}
	cart := Cart{
		Customer: Customer{ID: uuid.New()},
		Items:    []LineItem{shippableItem("50.00")},
	}

	res, err := calc.CartTotal(context.Background(), cart, nil)
	require.NoError(t, err)
	require.Nil(t, res.Total)
	require.NotEmpty(t, res.Shipping.Warnings)
	// Partial figures are still available for display.
	require.True(t, res.Subtotal.ExclTax.Equal(dec("50")))
}

func TestCartTotalOrderDiscountClamped(t *testing.T) {
	discount := flatDiscount(TargetOrderTotal, "500")
	calc := &Calculator{
		Settings:  testSettings(),
		Tax:       stubTax{rate: dec("0")},
		Discounts: stubDiscounts{byTarget: map[DiscountTarget][]Discount{TargetOrderTotal: {discount}}},
	}
	cart := Cart{
		Customer: Customer{ID: uuid.New(), FreeShipping: true},
		Items:    []LineItem{shippableItem("50.00")},
	}

	res, err := calc.CartTotal(context.Background(), cart, nil)
	require.NoError(t, err)
	require.True(t, res.DiscountAmount.Equal(dec("50")))
	require.NotNil(t, res.Total)
	require.True(t, res.Total.IsZero())
}

func TestCartTotalPaymentFeeIncluded(t *testing.T) {
	calc := &Calculator{Settings: testSettings(), Tax: stubTax{rate: dec("0")}}
	cart := Cart{
		Customer:   Customer{ID: uuid.New(), FreeShipping: true},
		Items:      []LineItem{shippableItem("50.00")},
		PaymentFee: dec("1.50"),
	}

	res, err := calc.CartTotal(context.Background(), cart, nil)
	require.NoError(t, err)
	require.True(t, res.Total.Equal(dec("51.50")))
}

func TestRoundingIsIdempotent(t *testing.T) {
	s := testSettings()
	for _, raw := range []string{"97.205", "97.195", "0.005", "12.3449"} {
		once := s.Round(dec(raw))
		require.True(t, once.Equal(s.Round(once)), "rounding %s twice changed the value", raw)
	}

	s.RoundDuringCalculation = false
	require.True(t, s.Round(dec("97.205")).Equal(dec("97.205")))
}
