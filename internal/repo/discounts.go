package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/pricing-engine/internal/pricing"
)

var _ pricing.DiscountSource = (*Store)(nil)

const listDiscountsSQL = `
SELECT id, name, target, use_percentage, percentage, amount, cumulative,
       COALESCE(eligibility_rule, 'null'::jsonb)
FROM discounts
WHERE target = $1
  AND active
  AND (starts_at IS NULL OR starts_at <= now())
  AND (ends_at IS NULL OR ends_at >= now())
ORDER BY created_at, id`

// DiscountsFor lists the active discount definitions assigned to one
// pricing stage. Rows come back in creation order so selection ties stay
// stable.
func (s *Store) DiscountsFor(ctx context.Context, target pricing.DiscountTarget) ([]pricing.Discount, error) {
	rows, err := s.Pool.Query(ctx, listDiscountsSQL, string(target))
	if err != nil {
		return nil, fmt.Errorf("list discounts: %w", err)
	}
	defer rows.Close()

	var out []pricing.Discount
	for rows.Next() {
		var (
			d                  pricing.Discount
			targetRaw          string
			percentage, amount pgtype.Numeric
		)
		if err := rows.Scan(&d.ID, &d.Name, &targetRaw, &d.UsePercentage, &percentage, &amount, &d.Cumulative, &d.EligibilityRule); err != nil {
			return nil, fmt.Errorf("scan discount: %w", err)
		}
		d.Target = pricing.DiscountTarget(targetRaw)
		if d.Percentage, err = numericToDecimal(percentage); err != nil {
			return nil, fmt.Errorf("discount %s percentage: %w", d.ID, err)
		}
		if d.Amount, err = numericToDecimal(amount); err != nil {
			return nil, fmt.Errorf("discount %s amount: %w", d.ID, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
