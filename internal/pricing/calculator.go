// Package pricing implements the checkout total pipeline: subtotal,
// discounts, shipping, tax, gift cards and reward points, evaluated in a
// fixed order with a configurable rounding policy.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNilTaxProvider    = errors.New("pricing: tax provider is required")
	ErrNilSettings       = errors.New("pricing: settings are required")
	ErrNoShippingAddress = errors.New("pricing: shipping address is required")
)

// Calculator runs the pipeline against collaborator interfaces. All fields
// except Settings and Tax are optional; a nil collaborator disables the
// corresponding feature (no discounts, no gift cards, no points).
type Calculator struct {
	Settings Settings

	Tax          TaxProvider
	Providers    []ShippingRateProvider
	Discounts    DiscountSource
	Validator    DiscountValidator
	GiftCards    GiftCardLedger
	RewardPoints RewardPointLedger
	Addresses    AddressBook
}

func (c *Calculator) round(amount decimal.Decimal) decimal.Decimal {
	return c.Settings.Round(amount)
}

func clampZero(amount decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}

// SubtotalResult is the output of the subtotal stage.
type SubtotalResult struct {
	// Without-discount figures, after per-source clamping and rounding.
	WithoutDiscountExclTax decimal.Decimal
	WithoutDiscountInclTax decimal.Decimal
	// With-discount figures.
	ExclTax decimal.Decimal
	InclTax decimal.Decimal
	// The applied subtotal discount, both ways.
	DiscountExclTax decimal.Decimal
	DiscountInclTax decimal.Decimal

	TaxRates         *TaxRateLedger
	AppliedDiscounts []Discount
}

// ShippingResult is the output of the shipping stage. ExclTax and InclTax
// are nil when the rate could not be resolved; Warnings then says why.
type ShippingResult struct {
	Required bool

	ExclTax *decimal.Decimal
	InclTax *decimal.Decimal
	TaxRate decimal.Decimal

	AppliedDiscounts []Discount
	Warnings         []string
}

// Resolved reports whether a shipping amount is available. A cart that
// needs no shipping counts as resolved at zero.
func (r ShippingResult) Resolved() bool {
	return r.ExclTax != nil && r.InclTax != nil
}

// TaxResult is the output of the tax stage.
type TaxResult struct {
	Total decimal.Decimal
	Rates *TaxRateLedger
}

// CartTotal is the final output of the live path. Total is nil when the
// pipeline could not produce a figure (unresolved shipping); the partial
// stage results remain populated.
type CartTotal struct {
	Total *decimal.Decimal

	Subtotal SubtotalResult
	Shipping ShippingResult
	Tax      TaxResult

	DiscountAmount   decimal.Decimal
	AppliedDiscounts []Discount
	AppliedGiftCards []AppliedGiftCard
	RedeemedPoints   int
	RedeemedAmount   decimal.Decimal
}
