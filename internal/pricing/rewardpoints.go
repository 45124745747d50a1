package pricing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// PointsToAmount converts a point balance to its currency value. Zero or
// negative balances are worth nothing.
func (c *Calculator) PointsToAmount(points int) decimal.Decimal {
	if points <= 0 {
		return decimal.Zero
	}
	return c.round(decimal.NewFromInt(int64(points)).Mul(c.Settings.RewardPoints.ExchangeRate))
}

// AmountToPoints converts a currency amount to points, rounding up so the
// redeemed points always cover the amount.
func (c *Calculator) AmountToPoints(amount decimal.Decimal) int {
	rate := c.Settings.RewardPoints.ExchangeRate
	if !amount.IsPositive() || !rate.IsPositive() {
		return 0
	}
	return int(amount.Div(rate).Ceil().IntPart())
}

// MeetsMinimumPointsToUse reports whether a balance passes the configured
// redemption floor. A floor of zero disables the gate.
func (c *Calculator) MeetsMinimumPointsToUse(points int) bool {
	min := c.Settings.RewardPoints.MinimumPointsToUse
	return min <= 0 || points >= min
}

// redeemPoints resolves the customer's spendable balance and converts it
// into the redemption against total. Returns points used and their
// currency value; 0, 0 means no redemption applies.
func (c *Calculator) redeemPoints(ctx context.Context, customer Customer, use *bool, total decimal.Decimal) (int, decimal.Decimal, error) {
	if !c.Settings.RewardPoints.Enabled || c.RewardPoints == nil {
		return 0, decimal.Zero, nil
	}
	usePoints := customer.UseRewardPoints
	if use != nil {
		usePoints = *use
	}
	if !usePoints || !total.IsPositive() {
		return 0, decimal.Zero, nil
	}

	balance, err := c.RewardPoints.Balance(ctx, customer.ID)
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("load reward point balance: %w", err)
	}
	balance, err = c.RewardPoints.ReducedBalance(ctx, customer.ID, balance)
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("reduce reward point balance: %w", err)
	}
	if !c.MeetsMinimumPointsToUse(balance) {
		return 0, decimal.Zero, nil
	}

	balanceAmount := c.PointsToAmount(balance)
	if total.GreaterThan(balanceAmount) {
		return balance, balanceAmount, nil
	}
	// Partial redemption: spend just enough points to cover the total.
	return c.AmountToPoints(total), total, nil
}

// CalculateRewardPoints returns the points earned for spending amount,
// truncating partial earning units.
func (c *Calculator) CalculateRewardPoints(amount decimal.Decimal) int {
	s := c.Settings.RewardPoints
	if !s.Enabled || !amount.IsPositive() || !s.PointsForAmount.IsPositive() {
		return 0
	}
	units := amount.Div(s.PointsForAmount).Truncate(0)
	return int(units.IntPart()) * s.PointsForPoints
}

// ApplicableOrderTotalForRewardPoints strips shipping from the order total
// before earning, and zeroes out orders below the award floor.
func (c *Calculator) ApplicableOrderTotalForRewardPoints(shippingInclTax, total decimal.Decimal) decimal.Decimal {
	applicable := total.Sub(shippingInclTax)
	if applicable.LessThan(c.Settings.RewardPoints.MinOrderTotalToAwardPoints) {
		return decimal.Zero
	}
	return clampZero(applicable)
}
