// Package recompute re-runs the pricing pipeline for a persisted order
// after a staff edit and stores the recalculated figures.
package recompute

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pricing-engine/internal/obs"
	"github.com/noah-isme/pricing-engine/internal/pricing"
)

var (
	ErrNilCalculator = errors.New("recompute: calculator not configured")
	ErrNilStore      = errors.New("recompute: order store not configured")
)

// OrderStore is the persistence surface the service needs.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (pricing.Order, error)
	ListItems(ctx context.Context, orderID uuid.UUID) ([]pricing.OrderItem, error)
	UpdateOrderTotals(ctx context.Context, o pricing.Order) error
	UpdateItem(ctx context.Context, edit pricing.LineEdit) error
}

// Service loads an order, applies an optional line edit, reprices it and
// persists the result.
type Service struct {
	Orders OrderStore
	Calc   *pricing.Calculator
	Logger zerolog.Logger
}

// Recompute runs the edited-order pipeline for one order. The returned
// warnings are recoverable shipping problems; the order is persisted
// regardless.
func (s *Service) Recompute(ctx context.Context, orderID uuid.UUID, edit *pricing.LineEdit) ([]string, error) {
	if s.Calc == nil {
		return nil, ErrNilCalculator
	}
	if s.Orders == nil {
		return nil, ErrNilStore
	}

	order, err := s.Orders.GetOrder(ctx, orderID)
	if err != nil {
		obs.RecomputeTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load order: %w", err)
	}
	items, err := s.Orders.ListItems(ctx, orderID)
	if err != nil {
		obs.RecomputeTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load order items: %w", err)
	}

	customer := pricing.Customer{ID: order.CustomerID}
	if order.ShippingAddressID != nil && s.Calc.Addresses != nil {
		addr, err := s.Calc.Addresses.Address(ctx, *order.ShippingAddressID)
		if err != nil {
			obs.RecomputeTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("load shipping address: %w", err)
		}
		customer.ShippingAddress = addr
	}

	upd := &pricing.OrderUpdate{
		Order:    &order,
		Items:    items,
		Edit:     edit,
		Customer: customer,
	}
	if err := s.Calc.UpdateOrderTotals(ctx, upd); err != nil {
		obs.RecomputeTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("recompute order %s: %w", orderID, err)
	}

	if edit != nil {
		if err := s.Orders.UpdateItem(ctx, *edit); err != nil {
			obs.RecomputeTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("persist line edit: %w", err)
		}
	}
	if err := s.Orders.UpdateOrderTotals(ctx, order); err != nil {
		obs.RecomputeTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("persist order totals: %w", err)
	}

	if len(upd.Warnings) > 0 {
		obs.RecomputeWarnings.Inc()
		s.Logger.Warn().
			Str("order_id", orderID.String()).
			Strs("warnings", upd.Warnings).
			Msg("order recomputed with warnings")
	}
	obs.RecomputeTotal.WithLabelValues("ok").Inc()
	s.Logger.Info().
		Str("order_id", orderID.String()).
		Str("order_total", order.OrderTotal.String()).
		Msg("order totals recomputed")
	return upd.Warnings, nil
}
