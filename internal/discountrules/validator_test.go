package discountrules

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pricing-engine/internal/pricing"
)

func discountWithRule(rule string) pricing.Discount {
	return pricing.Discount{
		ID:              uuid.New(),
		Name:            "rule",
		Target:          pricing.TargetSubtotal,
		EligibilityRule: json.RawMessage(rule),
	}
}

func TestIsValidNoRuleAlwaysEligible(t *testing.T) {
	v := Validator{}
	ok, err := v.IsValid(context.Background(), pricing.Discount{ID: uuid.New()}, pricing.Customer{})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestIsValidCountryRule(t *testing.T) {
	v := Validator{}
	d := discountWithRule(`{"==": [{"var": "country"}, "ID"]}`)

	customer := pricing.Customer{ShippingAddress: &pricing.Address{Country: "ID"}}
	ok, err := v.IsValid(context.Background(), d, customer)
	require.NoError(t, err)
	require.True(t, ok)

	customer.ShippingAddress.Country = "SG"
	ok, err = v.IsValid(context.Background(), d, customer)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestIsValidWeekdayRule(t *testing.T) {
	// 2026-08-24 is a Monday.
	monday := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	v := Validator{Now: func() time.Time { return monday }}
	d := discountWithRule(`{"==": [{"var": "weekday"}, 1]}`)

	ok, err := v.IsValid(context.Background(), d, pricing.Customer{})
	require.NoError(t, err)
	require.True(t, ok)

	v.Now = func() time.Time { return monday.AddDate(0, 0, 1) }
	ok, err = v.IsValid(context.Background(), d, pricing.Customer{})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestIsValidMalformedRuleFails(t *testing.T) {
	v := Validator{}
	d := discountWithRule(`{"var":`)
	_, err := v.IsValid(context.Background(), d, pricing.Customer{})
	require.Error(t, err)
}
