// Package repo persists orders and their pricing figures in Postgres. It
// also backs the gift-card, reward-point and address collaborators of the
// pricing pipeline.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/pricing-engine/internal/pricing"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("repo: not found")

// Store wraps a pgx pool with the queries the recompute path needs.
type Store struct {
	Pool *pgxpool.Pool
}

const getOrderSQL = `
SELECT id, customer_id, pickup_in_store,
       COALESCE(shipping_method, ''), COALESCE(shipping_provider, ''),
       shipping_address_id, shipping_status,
       payment_fee_excl_tax, payment_fee_incl_tax,
       redeemed_reward_points_entry_id,
       subtotal_excl_tax, subtotal_incl_tax,
       subtotal_discount_excl_tax, subtotal_discount_incl_tax,
       shipping_excl_tax, shipping_incl_tax,
       tax_total, COALESCE(tax_rates, ''),
       order_discount, order_total
FROM orders
WHERE id = $1`

// GetOrder loads one order by id.
func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (pricing.Order, error) {
	var (
		o          pricing.Order
		fields     = make([]pgtype.Numeric, 11)
		addrID     *uuid.UUID
		pointEntry *int64
		status     string
	)
	row := s.Pool.QueryRow(ctx, getOrderSQL, id)
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.PickupInStore,
		&o.ShippingMethod, &o.ShippingProvider,
		&addrID, &status,
		&fields[0], &fields[1],
		&pointEntry,
		&fields[2], &fields[3],
		&fields[4], &fields[5],
		&fields[6], &fields[7],
		&fields[8], &o.TaxRates,
		&fields[9], &fields[10],
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return pricing.Order{}, ErrNotFound
	}
	if err != nil {
		return pricing.Order{}, fmt.Errorf("get order %s: %w", id, err)
	}
	o.ShippingAddressID = addrID
	o.RedeemedRewardPointsEntryID = pointEntry
	o.ShippingStatus = pricing.ShippingStatus(status)

	targets := []*decimal.Decimal{
		&o.PaymentFeeExclTax, &o.PaymentFeeInclTax,
		&o.OrderSubtotalExclTax, &o.OrderSubtotalInclTax,
		&o.OrderSubTotalDiscountExclTax, &o.OrderSubTotalDiscountInclTax,
		&o.OrderShippingExclTax, &o.OrderShippingInclTax,
		&o.OrderTax, &o.OrderDiscount, &o.OrderTotal,
	}
	for i, target := range targets {
		if *target, err = numericToDecimal(fields[i]); err != nil {
			return pricing.Order{}, fmt.Errorf("decode order %s money: %w", id, err)
		}
	}
	return o, nil
}

const listItemsSQL = `
SELECT id, product_id, quantity,
       unit_price_excl_tax, unit_price_incl_tax,
       discount_excl_tax, discount_incl_tax,
       price_excl_tax, price_incl_tax,
       requires_shipping, free_shipping, additional_shipping_charge
FROM order_items
WHERE order_id = $1
ORDER BY created_at, id`

// ListItems returns an order's lines in insertion order.
func (s *Store) ListItems(ctx context.Context, orderID uuid.UUID) ([]pricing.OrderItem, error) {
	rows, err := s.Pool.Query(ctx, listItemsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	var items []pricing.OrderItem
	for rows.Next() {
		var (
			item   pricing.OrderItem
			fields = make([]pgtype.Numeric, 7)
		)
		if err := rows.Scan(
			&item.ID, &item.ProductID, &item.Quantity,
			&fields[0], &fields[1],
			&fields[2], &fields[3],
			&fields[4], &fields[5],
			&item.RequiresShipping, &item.FreeShipping, &fields[6],
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		targets := []*decimal.Decimal{
			&item.UnitPriceExclTax, &item.UnitPriceInclTax,
			&item.DiscountExclTax, &item.DiscountInclTax,
			&item.PriceExclTax, &item.PriceInclTax,
			&item.AdditionalShippingCharge,
		}
		for i, target := range targets {
			if *target, err = numericToDecimal(fields[i]); err != nil {
				return nil, fmt.Errorf("decode order item money: %w", err)
			}
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

const updateOrderSQL = `
UPDATE orders SET
    pickup_in_store = $2,
    shipping_method = $3,
    shipping_provider = $4,
    shipping_address_id = $5,
    shipping_status = $6,
    subtotal_excl_tax = $7,
    subtotal_incl_tax = $8,
    subtotal_discount_excl_tax = $9,
    subtotal_discount_incl_tax = $10,
    shipping_excl_tax = $11,
    shipping_incl_tax = $12,
    tax_total = $13,
    tax_rates = $14,
    order_discount = $15,
    order_total = $16,
    updated_at = now()
WHERE id = $1`

// UpdateOrderTotals persists the recomputed pricing fields of an order.
func (s *Store) UpdateOrderTotals(ctx context.Context, o pricing.Order) error {
	tag, err := s.Pool.Exec(ctx, updateOrderSQL,
		o.ID,
		o.PickupInStore,
		o.ShippingMethod,
		o.ShippingProvider,
		o.ShippingAddressID,
		string(o.ShippingStatus),
		decimalToNumeric(o.OrderSubtotalExclTax),
		decimalToNumeric(o.OrderSubtotalInclTax),
		decimalToNumeric(o.OrderSubTotalDiscountExclTax),
		decimalToNumeric(o.OrderSubTotalDiscountInclTax),
		decimalToNumeric(o.OrderShippingExclTax),
		decimalToNumeric(o.OrderShippingInclTax),
		decimalToNumeric(o.OrderTax),
		o.TaxRates,
		decimalToNumeric(o.OrderDiscount),
		decimalToNumeric(o.OrderTotal),
	)
	if err != nil {
		return fmt.Errorf("update order %s totals: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const updateItemSQL = `
UPDATE order_items SET
    quantity = $2,
    unit_price_excl_tax = $3,
    unit_price_incl_tax = $4,
    discount_excl_tax = $5,
    discount_incl_tax = $6,
    price_excl_tax = $7,
    price_incl_tax = $8,
    updated_at = now()
WHERE id = $1`

// UpdateItem persists the edited prices of one order line.
func (s *Store) UpdateItem(ctx context.Context, edit pricing.LineEdit) error {
	tag, err := s.Pool.Exec(ctx, updateItemSQL,
		edit.ItemID,
		edit.Quantity,
		decimalToNumeric(edit.UnitPriceExclTax),
		decimalToNumeric(edit.UnitPriceInclTax),
		decimalToNumeric(edit.DiscountExclTax),
		decimalToNumeric(edit.DiscountInclTax),
		decimalToNumeric(edit.PriceExclTax),
		decimalToNumeric(edit.PriceInclTax),
	)
	if err != nil {
		return fmt.Errorf("update order item %s: %w", edit.ItemID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
