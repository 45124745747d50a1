package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Customer carries the facts about the shopper the pipeline needs. It is a
// snapshot assembled by the caller; the pipeline never loads customer state
// itself.
type Customer struct {
	ID uuid.UUID
	// FreeShipping is true when any of the customer's roles grants free
	// shipping.
	FreeShipping bool
	// UseRewardPoints is the customer's stored checkout preference,
	// consulted when the caller does not pass an explicit choice.
	UseRewardPoints bool

	SelectedShippingOption *ShippingOption
	SelectedPickupPoint    *PickupPoint
	ShippingAddress        *Address
	BillingAddress         *Address
}

// Address is a postal address used for rate lookups.
type Address struct {
	ID           uuid.UUID
	ReceiverName string
	Phone        string
	Country      string
	Province     string
	City         string
	PostalCode   string
	Line1        string
	Line2        string
}

// LineItem is a single cart line. Immutable within a calculation pass.
type LineItem struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	// UnitPrice is the per-unit price before any tax adjustment.
	UnitPrice decimal.Decimal
	// DiscountPerUnit is a per-unit line discount already granted to this
	// line (e.g. a tier price), subtracted before taxing.
	DiscountPerUnit decimal.Decimal

	RequiresShipping         bool
	FreeShipping             bool
	AdditionalShippingCharge decimal.Decimal
	Recurring                bool
}

// Subtotal returns the pre-tax line subtotal, floored at zero.
func (li LineItem) Subtotal() decimal.Decimal {
	if li.Quantity <= 0 {
		return decimal.Zero
	}
	unit := li.UnitPrice.Sub(li.DiscountPerUnit)
	sub := unit.Mul(decimal.NewFromInt(int64(li.Quantity)))
	if sub.IsNegative() {
		return decimal.Zero
	}
	return sub
}

// CheckoutAttribute is a priced option attached to the checkout itself
// (gift wrap, insurance, ...) rather than to a line.
type CheckoutAttribute struct {
	ID    uuid.UUID
	Name  string
	Value string
	Price decimal.Decimal
}

// Cart is the snapshot priced by the live path.
type Cart struct {
	Customer   Customer
	Items      []LineItem
	Attributes []CheckoutAttribute
	// PaymentFee is the raw additional handling fee of the selected
	// payment method, before taxing. Zero when none applies.
	PaymentFee decimal.Decimal
}

// RequiresShipping reports whether any line needs physical delivery.
func (c Cart) RequiresShipping() bool {
	for _, it := range c.Items {
		if it.RequiresShipping {
			return true
		}
	}
	return false
}

// Recurring reports whether the cart contains a recurring product; gift
// cards are never applied to recurring carts.
func (c Cart) Recurring() bool {
	for _, it := range c.Items {
		if it.Recurring {
			return true
		}
	}
	return false
}

// AdditionalShippingCharge sums per-line shipping surcharges.
func (c Cart) AdditionalShippingCharge() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.AdditionalShippingCharge)
	}
	return total
}

// ShippingOption is one priced delivery choice returned by a rate provider
// or previously stored against a customer or order.
type ShippingOption struct {
	Name          string
	ProviderName  string
	Rate          decimal.Decimal
	PickupInStore bool
}

// PickupPoint is an in-store or locker pickup location with its fee.
type PickupPoint struct {
	ID           string
	Name         string
	ProviderName string
	Fee          decimal.Decimal
	Address      Address
}

// GiftCard references a gift card held by the ledger collaborator.
type GiftCard struct {
	ID   uuid.UUID
	Code string
}

// AppliedGiftCard records how much of a card this calculation consumed.
type AppliedGiftCard struct {
	GiftCard GiftCard
	Amount   decimal.Decimal
}

// RewardPointsEntry mirrors one row of the reward-point history ledger.
// Points is negative for a redemption, matching the ledger convention.
type RewardPointsEntry struct {
	ID         int64
	Points     int
	UsedAmount decimal.Decimal
}

// ShippingStatus is the order-level delivery state persisted on recompute.
type ShippingStatus string

const (
	ShippingNotRequired      ShippingStatus = "NOT_REQUIRED"
	ShippingNotYetShipped    ShippingStatus = "NOT_YET_SHIPPED"
	ShippingPartiallyShipped ShippingStatus = "PARTIALLY_SHIPPED"
	ShippingShipped          ShippingStatus = "SHIPPED"
	ShippingDelivered        ShippingStatus = "DELIVERED"
)

// Order is the mutable snapshot of a persisted order being recomputed
// after a staff edit. The pipeline writes the Order* money fields and the
// shipping metadata; the caller persists the result.
type Order struct {
	ID         uuid.UUID
	CustomerID uuid.UUID

	PickupInStore     bool
	ShippingMethod    string
	ShippingProvider  string
	ShippingAddressID *uuid.UUID
	ShippingStatus    ShippingStatus

	PaymentFeeExclTax decimal.Decimal
	PaymentFeeInclTax decimal.Decimal

	RedeemedRewardPointsEntryID *int64

	OrderSubtotalExclTax         decimal.Decimal
	OrderSubtotalInclTax         decimal.Decimal
	OrderSubTotalDiscountExclTax decimal.Decimal
	OrderSubTotalDiscountInclTax decimal.Decimal
	OrderShippingExclTax         decimal.Decimal
	OrderShippingInclTax         decimal.Decimal
	OrderTax                     decimal.Decimal
	TaxRates                     string
	OrderDiscount                decimal.Decimal
	OrderTotal                   decimal.Decimal
}

// OrderItem is one persisted order line, including the already-calculated
// excl/incl subtotals from the original checkout.
type OrderItem struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Quantity  int

	UnitPriceExclTax decimal.Decimal
	UnitPriceInclTax decimal.Decimal
	DiscountExclTax  decimal.Decimal
	DiscountInclTax  decimal.Decimal
	// PriceExclTax and PriceInclTax are the line subtotals.
	PriceExclTax decimal.Decimal
	PriceInclTax decimal.Decimal

	RequiresShipping         bool
	FreeShipping             bool
	AdditionalShippingCharge decimal.Decimal
}
