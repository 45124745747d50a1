package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/pricing-engine/internal/pricing"
)

// The Store doubles as the pipeline's gift-card, reward-point and address
// collaborators so one pool serves the whole recompute path.
var (
	_ pricing.GiftCardLedger    = (*Store)(nil)
	_ pricing.RewardPointLedger = (*Store)(nil)
	_ pricing.AddressBook       = (*Store)(nil)
)

const activeCardsSQL = `
SELECT id, code
FROM gift_cards
WHERE customer_id = $1 AND active
ORDER BY created_at, id`

// ActiveCards lists a customer's usable gift cards in activation order.
// That order defines consumption order during checkout.
func (s *Store) ActiveCards(ctx context.Context, customer pricing.Customer) ([]pricing.GiftCard, error) {
	rows, err := s.Pool.Query(ctx, activeCardsSQL, customer.ID)
	if err != nil {
		return nil, fmt.Errorf("list gift cards: %w", err)
	}
	defer rows.Close()

	var cards []pricing.GiftCard
	for rows.Next() {
		var card pricing.GiftCard
		if err := rows.Scan(&card.ID, &card.Code); err != nil {
			return nil, fmt.Errorf("scan gift card: %w", err)
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

const remainingBalanceSQL = `
SELECT g.initial_value - COALESCE(SUM(u.amount), 0)
FROM gift_cards g
LEFT JOIN gift_card_usage u ON u.gift_card_id = g.id
WHERE g.id = $1
GROUP BY g.initial_value`

// RemainingBalance returns the card's initial value minus all recorded
// usage.
func (s *Store) RemainingBalance(ctx context.Context, card pricing.GiftCard) (decimal.Decimal, error) {
	var n pgtype.Numeric
	err := s.Pool.QueryRow(ctx, remainingBalanceSQL, card.ID).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, ErrNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("gift card %s balance: %w", card.Code, err)
	}
	return numericToDecimal(n)
}

const usedWithOrderSQL = `
SELECT g.id, g.code
FROM gift_card_usage u
JOIN gift_cards g ON g.id = u.gift_card_id
WHERE u.order_id = $1
ORDER BY u.created_at, g.id`

// UsedWithOrder lists cards already charged against an order.
func (s *Store) UsedWithOrder(ctx context.Context, orderID uuid.UUID) ([]pricing.GiftCard, error) {
	rows, err := s.Pool.Query(ctx, usedWithOrderSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order gift cards: %w", err)
	}
	defer rows.Close()

	var cards []pricing.GiftCard
	for rows.Next() {
		var card pricing.GiftCard
		if err := rows.Scan(&card.ID, &card.Code); err != nil {
			return nil, fmt.Errorf("scan order gift card: %w", err)
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

const usedAmountSQL = `
SELECT COALESCE(SUM(amount), 0)
FROM gift_card_usage
WHERE gift_card_id = $1 AND order_id = $2`

// UsedAmount returns how much of a card one order consumed.
func (s *Store) UsedAmount(ctx context.Context, card pricing.GiftCard, orderID uuid.UUID) (decimal.Decimal, error) {
	var n pgtype.Numeric
	if err := s.Pool.QueryRow(ctx, usedAmountSQL, card.ID, orderID).Scan(&n); err != nil {
		return decimal.Zero, fmt.Errorf("gift card %s usage: %w", card.Code, err)
	}
	return numericToDecimal(n)
}

const pointsBalanceSQL = `
SELECT COALESCE(SUM(points), 0)
FROM reward_points_history
WHERE customer_id = $1`

// Balance sums a customer's reward-point history.
func (s *Store) Balance(ctx context.Context, customerID uuid.UUID) (int, error) {
	var balance int
	if err := s.Pool.QueryRow(ctx, pointsBalanceSQL, customerID).Scan(&balance); err != nil {
		return 0, fmt.Errorf("reward point balance: %w", err)
	}
	return balance, nil
}

const pendingPointsSQL = `
SELECT COALESCE(SUM(points), 0)
FROM reward_points_history
WHERE pending
  AND customer_id = $1`

// ReducedBalance subtracts the points reserved by the customer's pending
// history rows from the raw balance.
func (s *Store) ReducedBalance(ctx context.Context, customerID uuid.UUID, points int) (int, error) {
	var pending int
	if err := s.Pool.QueryRow(ctx, pendingPointsSQL, customerID).Scan(&pending); err != nil {
		return 0, fmt.Errorf("pending reward points: %w", err)
	}
	return points - pending, nil
}

const historyEntrySQL = `
SELECT id, points, used_amount
FROM reward_points_history
WHERE id = $1`

// HistoryEntry loads one history row; a missing row yields nil, nil.
func (s *Store) HistoryEntry(ctx context.Context, id int64) (*pricing.RewardPointsEntry, error) {
	var (
		entry pricing.RewardPointsEntry
		used  pgtype.Numeric
	)
	err := s.Pool.QueryRow(ctx, historyEntrySQL, id).Scan(&entry.ID, &entry.Points, &used)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reward point entry %d: %w", id, err)
	}
	if entry.UsedAmount, err = numericToDecimal(used); err != nil {
		return nil, fmt.Errorf("decode reward point entry %d: %w", id, err)
	}
	return &entry, nil
}

const updateHistoryEntrySQL = `
UPDATE reward_points_history SET points = $2, used_amount = $3, updated_at = now()
WHERE id = $1`

// UpdateHistoryEntry rewrites a redemption row after a recompute shrink.
func (s *Store) UpdateHistoryEntry(ctx context.Context, entry pricing.RewardPointsEntry) error {
	tag, err := s.Pool.Exec(ctx, updateHistoryEntrySQL, entry.ID, entry.Points, decimalToNumeric(entry.UsedAmount))
	if err != nil {
		return fmt.Errorf("update reward point entry %d: %w", entry.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const getAddressSQL = `
SELECT id, receiver_name, phone, country, province, city, postal_code, line1, COALESCE(line2, '')
FROM addresses
WHERE id = $1`

// Address loads one address; unknown ids yield nil, nil.
func (s *Store) Address(ctx context.Context, id uuid.UUID) (*pricing.Address, error) {
	var a pricing.Address
	err := s.Pool.QueryRow(ctx, getAddressSQL, id).Scan(
		&a.ID, &a.ReceiverName, &a.Phone, &a.Country, &a.Province, &a.City, &a.PostalCode, &a.Line1, &a.Line2,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get address %s: %w", id, err)
	}
	return &a, nil
}

const insertAddressSQL = `
INSERT INTO addresses (id, receiver_name, phone, country, province, city, postal_code, line1, line2)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// Insert stores a copy of an address under a fresh id. Recomputed orders
// reference the copy so later edits to the customer's address book do not
// rewrite history.
func (s *Store) Insert(ctx context.Context, a pricing.Address) (pricing.Address, error) {
	a.ID = uuid.New()
	_, err := s.Pool.Exec(ctx, insertAddressSQL,
		a.ID, a.ReceiverName, a.Phone, a.Country, a.Province, a.City, a.PostalCode, a.Line1, a.Line2,
	)
	if err != nil {
		return pricing.Address{}, fmt.Errorf("insert address: %w", err)
	}
	return a, nil
}
