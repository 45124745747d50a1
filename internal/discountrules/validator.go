// Package discountrules evaluates discount eligibility rules expressed as
// JSONLogic documents against a customer snapshot.
package discountrules

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	jsonlogic "github.com/diegoholiveira/jsonlogic/v3"

	"github.com/noah-isme/pricing-engine/internal/pricing"
)

// Validator implements pricing.DiscountValidator. A discount without a
// rule document is always eligible.
type Validator struct {
	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// IsValid evaluates the discount's rule against the customer facts. Any
// result other than JSON true (or a non-empty truthy value) is treated as
// ineligible.
func (v Validator) IsValid(_ context.Context, d pricing.Discount, customer pricing.Customer) (bool, error) {
	if len(d.EligibilityRule) == 0 || string(d.EligibilityRule) == "null" {
		return true, nil
	}

	now := time.Now()
	if v.Now != nil {
		now = v.Now()
	}
	data, err := json.Marshal(ruleData(customer, now))
	if err != nil {
		return false, fmt.Errorf("marshal rule data: %w", err)
	}

	var result bytes.Buffer
	if err := jsonlogic.Apply(bytes.NewReader(d.EligibilityRule), bytes.NewReader(data), &result); err != nil {
		return false, fmt.Errorf("evaluate rule for discount %s: %w", d.ID, err)
	}

	var out any
	if err := json.Unmarshal(result.Bytes(), &out); err != nil {
		return false, fmt.Errorf("decode rule result: %w", err)
	}
	return truthy(out), nil
}

func ruleData(customer pricing.Customer, now time.Time) map[string]any {
	data := map[string]any{
		"customer_id":       customer.ID.String(),
		"free_shipping":     customer.FreeShipping,
		"use_reward_points": customer.UseRewardPoints,
		"now":               now.UTC().Format(time.RFC3339),
		"weekday":           int(now.UTC().Weekday()),
	}
	if addr := customer.ShippingAddress; addr != nil {
		data["country"] = addr.Country
		data["province"] = addr.Province
		data["city"] = addr.City
	}
	return data
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case nil:
		return false
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return false
	}
}
