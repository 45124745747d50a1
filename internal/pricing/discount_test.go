package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestDiscountAmountFor(t *testing.T) {
	tests := []struct {
		name     string
		discount Discount
		base     string
		want     string
	}{
		{"percentage", percentDiscount(TargetSubtotal, "10"), "100", "10"},
		{"flat", flatDiscount(TargetSubtotal, "15"), "100", "15"},
		{"flat clamped to base", flatDiscount(TargetSubtotal, "150"), "100", "100"},
		{"percentage over base clamped", percentDiscount(TargetSubtotal, "120"), "50", "50"},
		{"zero base", percentDiscount(TargetSubtotal, "10"), "0", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.discount.AmountFor(dec(tt.base))
			require.True(t, got.Equal(dec(tt.want)), "got %s", got)
		})
	}

	negative := Discount{ID: uuid.New(), Amount: dec("-5")}
	require.True(t, negative.AmountFor(dec("100")).IsZero())
}

func TestPreferredDiscountPicksBestSingle(t *testing.T) {
	a := flatDiscount(TargetOrderTotal, "5")
	b := flatDiscount(TargetOrderTotal, "12")
	c := flatDiscount(TargetOrderTotal, "8")

	amount, applied := preferredDiscount([]Discount{a, b, c}, dec("100"))
	require.True(t, amount.Equal(dec("12")))
	require.Len(t, applied, 1)
	require.Equal(t, b.ID, applied[0].ID)
}

func TestPreferredDiscountTieKeepsFirstSeen(t *testing.T) {
	a := flatDiscount(TargetOrderTotal, "10")
	b := flatDiscount(TargetOrderTotal, "10")

	_, applied := preferredDiscount([]Discount{a, b}, dec("100"))
	require.Len(t, applied, 1)
	require.Equal(t, a.ID, applied[0].ID)
}

func TestPreferredDiscountCumulativeBeatsSingle(t *testing.T) {
	single := flatDiscount(TargetOrderTotal, "12")
	c1 := flatDiscount(TargetOrderTotal, "8")
	c1.Cumulative = true
	c2 := flatDiscount(TargetOrderTotal, "7")
	c2.Cumulative = true

	amount, applied := preferredDiscount([]Discount{single, c1, c2}, dec("100"))
	require.True(t, amount.Equal(dec("15")))
	require.Len(t, applied, 2)
}

func TestPreferredDiscountSingleCumulativeDoesNotStack(t *testing.T) {
	single := flatDiscount(TargetOrderTotal, "12")
	c1 := flatDiscount(TargetOrderTotal, "8")
	c1.Cumulative = true

	amount, applied := preferredDiscount([]Discount{single, c1}, dec("100"))
	require.True(t, amount.Equal(dec("12")))
	require.Equal(t, single.ID, applied[0].ID)
}

func TestPreferredDiscountCumulativeClampedToBase(t *testing.T) {
	c1 := flatDiscount(TargetOrderTotal, "60")
	c1.Cumulative = true
	c2 := flatDiscount(TargetOrderTotal, "70")
	c2.Cumulative = true

	amount, _ := preferredDiscount([]Discount{c1, c2}, dec("100"))
	require.True(t, amount.Equal(dec("100")))
}

func TestSelectDiscountSkipsInvalidAndFailures(t *testing.T) {
	valid := flatDiscount(TargetSubtotal, "5")
	invalid := flatDiscount(TargetSubtotal, "50")

	calc := &Calculator{
		Settings:  testSettings(),
		Discounts: stubDiscounts{byTarget: map[DiscountTarget][]Discount{TargetSubtotal: {invalid, valid}}},
		Validator: stubValidator{invalid: map[uuid.UUID]bool{invalid.ID: true}},
	}
	amount, applied, err := calc.selectDiscount(context.Background(), TargetSubtotal, Customer{}, dec("100"))
	require.NoError(t, err)
	require.True(t, amount.Equal(dec("5")))
	require.Len(t, applied, 1)
	require.Equal(t, valid.ID, applied[0].ID)

	// A failing validator means no discount, not an error.
	calc.Validator = stubValidator{err: errors.New("rule engine down")}
	amount, applied, err = calc.selectDiscount(context.Background(), TargetSubtotal, Customer{}, dec("100"))
	require.NoError(t, err)
	require.True(t, amount.IsZero())
	require.Empty(t, applied)
}

func TestSelectDiscountIgnoreDiscountsSetting(t *testing.T) {
	settings := testSettings()
	settings.IgnoreDiscounts = true
	calc := &Calculator{
		Settings:  settings,
		Discounts: stubDiscounts{byTarget: map[DiscountTarget][]Discount{TargetSubtotal: {flatDiscount(TargetSubtotal, "5")}}},
	}
	amount, applied, err := calc.selectDiscount(context.Background(), TargetSubtotal, Customer{}, dec("100"))
	require.NoError(t, err)
	require.True(t, amount.IsZero())
	require.Empty(t, applied)
}
