package pricing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func testSettings() Settings {
	return Settings{
		CurrencyDecimals:       2,
		RoundDuringCalculation: true,
		RewardPoints: RewardPointsSettings{
			Enabled:         true,
			ExchangeRate:    decimal.RequireFromString("0.01"),
			PointsForAmount: decimal.NewFromInt(10),
			PointsForPoints: 1,
		},
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// stubTax applies a single flat rate to every source.
type stubTax struct {
	rate decimal.Decimal
}

func (s stubTax) apply(amount decimal.Decimal, includingTax bool) TaxedPrice {
	if !includingTax {
		return TaxedPrice{Price: amount, Rate: s.rate}
	}
	grossed := amount.Mul(decimal.NewFromInt(100).Add(s.rate)).Div(decimal.NewFromInt(100))
	return TaxedPrice{Price: grossed, Rate: s.rate}
}

func (s stubTax) ProductPrice(_ context.Context, _ uuid.UUID, amount decimal.Decimal, includingTax bool, _ Customer) (TaxedPrice, error) {
	return s.apply(amount, includingTax), nil
}

func (s stubTax) AttributePrice(_ context.Context, attr CheckoutAttribute, includingTax bool, _ Customer) (TaxedPrice, error) {
	return s.apply(attr.Price, includingTax), nil
}

func (s stubTax) ShippingPrice(_ context.Context, amount decimal.Decimal, includingTax bool, _ Customer) (TaxedPrice, error) {
	return s.apply(amount, includingTax), nil
}

func (s stubTax) PaymentFeePrice(_ context.Context, amount decimal.Decimal, includingTax bool, _ Customer) (TaxedPrice, error) {
	return s.apply(amount, includingTax), nil
}

// stubDiscounts serves fixed discount lists per target.
type stubDiscounts struct {
	byTarget map[DiscountTarget][]Discount
}

func (s stubDiscounts) DiscountsFor(_ context.Context, target DiscountTarget) ([]Discount, error) {
	return s.byTarget[target], nil
}

// stubValidator marks the listed ids invalid and can fail outright.
type stubValidator struct {
	invalid map[uuid.UUID]bool
	err     error
}

func (s stubValidator) IsValid(_ context.Context, d Discount, _ Customer) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return !s.invalid[d.ID], nil
}

// stubGiftCards hands out cards in slice order with fixed balances.
type stubGiftCards struct {
	cards    []GiftCard
	balances map[uuid.UUID]decimal.Decimal
	orderUse map[uuid.UUID]decimal.Decimal
}

func (s stubGiftCards) ActiveCards(_ context.Context, _ Customer) ([]GiftCard, error) {
	return s.cards, nil
}

func (s stubGiftCards) RemainingBalance(_ context.Context, card GiftCard) (decimal.Decimal, error) {
	bal, ok := s.balances[card.ID]
	if !ok {
		return decimal.Zero, errors.New("unknown card")
	}
	return bal, nil
}

func (s stubGiftCards) UsedWithOrder(_ context.Context, _ uuid.UUID) ([]GiftCard, error) {
	return s.cards, nil
}

func (s stubGiftCards) UsedAmount(_ context.Context, card GiftCard, _ uuid.UUID) (decimal.Decimal, error) {
	return s.orderUse[card.ID], nil
}

// stubPoints is an in-memory reward point ledger.
type stubPoints struct {
	balance int
	pending map[uuid.UUID]int
	entries map[int64]*RewardPointsEntry
	updated []RewardPointsEntry
}

func (s *stubPoints) Balance(_ context.Context, _ uuid.UUID) (int, error) {
	return s.balance, nil
}

func (s *stubPoints) ReducedBalance(_ context.Context, customerID uuid.UUID, points int) (int, error) {
	return points - s.pending[customerID], nil
}

func (s *stubPoints) HistoryEntry(_ context.Context, id int64) (*RewardPointsEntry, error) {
	e, ok := s.entries[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (s *stubPoints) UpdateHistoryEntry(_ context.Context, entry RewardPointsEntry) error {
	s.updated = append(s.updated, entry)
	return nil
}

// stubProvider is a configurable shipping rate provider.
type stubProvider struct {
	name    string
	fixed   *decimal.Decimal
	options []ShippingOption
	points  []PickupPoint
	err     error
}

func (s stubProvider) SystemName() string { return s.name }

func (s stubProvider) FixedRate(_ context.Context, _ RateRequest) (*decimal.Decimal, error) {
	return s.fixed, s.err
}

func (s stubProvider) PickupPoints(_ context.Context, _ *Address, _ Customer) (PickupPointsResult, error) {
	if s.err != nil {
		return PickupPointsResult{}, s.err
	}
	return PickupPointsResult{Success: true, Points: s.points}, nil
}

func (s stubProvider) ShippingOptions(_ context.Context, _ RateRequest) (ShippingOptionsResult, error) {
	if s.err != nil {
		return ShippingOptionsResult{}, s.err
	}
	return ShippingOptionsResult{Success: true, Options: s.options}, nil
}

// stubAddresses records inserts and serves a fixed address map.
type stubAddresses struct {
	byID     map[uuid.UUID]Address
	inserted []Address
}

func (s *stubAddresses) Address(_ context.Context, id uuid.UUID) (*Address, error) {
	a, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s *stubAddresses) Insert(_ context.Context, a Address) (Address, error) {
	a.ID = uuid.New()
	s.inserted = append(s.inserted, a)
	return a, nil
}

func shippableItem(price string) LineItem {
	return LineItem{
		ID:               uuid.New(),
		ProductID:        uuid.New(),
		Quantity:         1,
		UnitPrice:        dec(price),
		RequiresShipping: true,
	}
}

func percentDiscount(target DiscountTarget, pct string) Discount {
	return Discount{
		ID:            uuid.New(),
		Name:          "pct",
		Target:        target,
		UsePercentage: true,
		Percentage:    dec(pct),
	}
}

func flatDiscount(target DiscountTarget, amount string) Discount {
	return Discount{
		ID:     uuid.New(),
		Name:   "flat",
		Target: target,
		Amount: dec(amount),
	}
}
