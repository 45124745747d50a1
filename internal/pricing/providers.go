package pricing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxedPrice is an amount after tax adjustment together with the rate that
// was applied, expressed in percent (8.5 means 8.5%).
type TaxedPrice struct {
	Price decimal.Decimal
	Rate  decimal.Decimal
}

// TaxProvider resolves excl/incl-tax prices for the four taxable sources
// the pipeline knows about. Implementations are plugin-driven and external
// to this package.
type TaxProvider interface {
	ProductPrice(ctx context.Context, productID uuid.UUID, amount decimal.Decimal, includingTax bool, customer Customer) (TaxedPrice, error)
	AttributePrice(ctx context.Context, attribute CheckoutAttribute, includingTax bool, customer Customer) (TaxedPrice, error)
	ShippingPrice(ctx context.Context, amount decimal.Decimal, includingTax bool, customer Customer) (TaxedPrice, error)
	PaymentFeePrice(ctx context.Context, amount decimal.Decimal, includingTax bool, customer Customer) (TaxedPrice, error)
}

// RateRequest describes a shipment to price.
type RateRequest struct {
	Items           []LineItem
	ShippingAddress *Address
	Customer        Customer
}

// PickupPointsResult is a provider response for pickup-point lookups.
// Errors carries human-readable messages when Success is false.
type PickupPointsResult struct {
	Success bool
	Points  []PickupPoint
	Errors  []string
}

// ShippingOptionsResult is a provider response for shipping-option lookups.
type ShippingOptionsResult struct {
	Success bool
	Options []ShippingOption
	Errors  []string
}

// ShippingRateProvider is one registered rate-computation method. The
// registry of active providers is assembled by the caller; the pipeline
// only consumes the fixed set below.
type ShippingRateProvider interface {
	// SystemName identifies the provider in persisted orders.
	SystemName() string
	// FixedRate returns a flat rate for the request, or nil when the
	// provider cannot price it without enumerating options.
	FixedRate(ctx context.Context, req RateRequest) (*decimal.Decimal, error)
	PickupPoints(ctx context.Context, address *Address, customer Customer) (PickupPointsResult, error)
	ShippingOptions(ctx context.Context, req RateRequest) (ShippingOptionsResult, error)
}

// DiscountSource lists the discount definitions assigned to a pricing
// stage. Ordering is preserved: ties in the selector resolve to the first
// candidate seen.
type DiscountSource interface {
	DiscountsFor(ctx context.Context, target DiscountTarget) ([]Discount, error)
}

// DiscountValidator evaluates a discount's validity predicate (date range,
// customer eligibility, usage limits) for a customer.
type DiscountValidator interface {
	IsValid(ctx context.Context, d Discount, customer Customer) (bool, error)
}

// GiftCardLedger exposes gift-card balances. Retrieval order defines
// consumption order; the pipeline never reorders cards.
type GiftCardLedger interface {
	ActiveCards(ctx context.Context, customer Customer) ([]GiftCard, error)
	RemainingBalance(ctx context.Context, card GiftCard) (decimal.Decimal, error)
	// UsedWithOrder and UsedAmount serve the edited-order path: cards
	// already tied to an order and the amount each consumed.
	UsedWithOrder(ctx context.Context, orderID uuid.UUID) ([]GiftCard, error)
	UsedAmount(ctx context.Context, card GiftCard, orderID uuid.UUID) (decimal.Decimal, error)
}

// RewardPointLedger exposes loyalty-point balances and history entries.
type RewardPointLedger interface {
	Balance(ctx context.Context, customerID uuid.UUID) (int, error)
	// ReducedBalance subtracts the customer's points already reserved or
	// pending elsewhere from a raw balance.
	ReducedBalance(ctx context.Context, customerID uuid.UUID, points int) (int, error)
	// HistoryEntry returns nil, nil when the entry does not exist.
	HistoryEntry(ctx context.Context, id int64) (*RewardPointsEntry, error)
	UpdateHistoryEntry(ctx context.Context, entry RewardPointsEntry) error
}

// AddressBook reads and inserts order shipping addresses during an
// edited-order recompute.
type AddressBook interface {
	// Address returns nil, nil when the id is unknown.
	Address(ctx context.Context, id uuid.UUID) (*Address, error)
	// Insert stores a copy of the address and returns it with its new id.
	Insert(ctx context.Context, a Address) (Address, error)
}
