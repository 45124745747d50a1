package recompute

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pricing-engine/internal/obs"
	"github.com/noah-isme/pricing-engine/internal/pricing"
)

func init() {
	obs.MustRegisterDomainMetrics("recompute_test", prometheus.NewRegistry())
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// zeroTax leaves every price untouched.
type zeroTax struct{}

func (zeroTax) ProductPrice(_ context.Context, _ uuid.UUID, amount decimal.Decimal, _ bool, _ pricing.Customer) (pricing.TaxedPrice, error) {
	return pricing.TaxedPrice{Price: amount}, nil
}

func (zeroTax) AttributePrice(_ context.Context, attr pricing.CheckoutAttribute, _ bool, _ pricing.Customer) (pricing.TaxedPrice, error) {
	return pricing.TaxedPrice{Price: attr.Price}, nil
}

func (zeroTax) ShippingPrice(_ context.Context, amount decimal.Decimal, _ bool, _ pricing.Customer) (pricing.TaxedPrice, error) {
	return pricing.TaxedPrice{Price: amount}, nil
}

func (zeroTax) PaymentFeePrice(_ context.Context, amount decimal.Decimal, _ bool, _ pricing.Customer) (pricing.TaxedPrice, error) {
	return pricing.TaxedPrice{Price: amount}, nil
}

type memStore struct {
	order        pricing.Order
	items        []pricing.OrderItem
	savedOrder   *pricing.Order
	savedEdit    *pricing.LineEdit
	getErr       error
	updateCalled int
}

func (m *memStore) GetOrder(_ context.Context, id uuid.UUID) (pricing.Order, error) {
	if m.getErr != nil {
		return pricing.Order{}, m.getErr
	}
	if id != m.order.ID {
		return pricing.Order{}, errors.New("unknown order")
	}
	return m.order, nil
}

func (m *memStore) ListItems(_ context.Context, _ uuid.UUID) ([]pricing.OrderItem, error) {
	return m.items, nil
}

func (m *memStore) UpdateOrderTotals(_ context.Context, o pricing.Order) error {
	m.savedOrder = &o
	m.updateCalled++
	return nil
}

func (m *memStore) UpdateItem(_ context.Context, edit pricing.LineEdit) error {
	m.savedEdit = &edit
	return nil
}

func testService(store *memStore) *Service {
	return &Service{
		Orders: store,
		Calc: &pricing.Calculator{
			Settings: pricing.Settings{CurrencyDecimals: 2, RoundDuringCalculation: true},
			Tax:      zeroTax{},
		},
	}
}

func TestRecomputePersistsEditedTotals(t *testing.T) {
	itemID := uuid.New()
	store := &memStore{
		order: pricing.Order{ID: uuid.New(), CustomerID: uuid.New()},
		items: []pricing.OrderItem{{
			ID:           itemID,
			ProductID:    uuid.New(),
			Quantity:     2,
			PriceExclTax: dec("50.00"),
			PriceInclTax: dec("50.00"),
		}},
	}
	svc := testService(store)

	edit := &pricing.LineEdit{
		ItemID:       itemID,
		Quantity:     1,
		PriceExclTax: dec("25.00"),
		PriceInclTax: dec("25.00"),
	}
	warnings, err := svc.Recompute(context.Background(), store.order.ID, edit)
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.NotNil(t, store.savedOrder)
	require.True(t, store.savedOrder.OrderTotal.Equal(dec("25")), "got %s", store.savedOrder.OrderTotal)
	require.NotNil(t, store.savedEdit)
	require.Equal(t, itemID, store.savedEdit.ItemID)
}

func TestRecomputeWithoutEditSkipsItemUpdate(t *testing.T) {
	store := &memStore{
		order: pricing.Order{ID: uuid.New(), CustomerID: uuid.New()},
		items: []pricing.OrderItem{{
			ID:           uuid.New(),
			ProductID:    uuid.New(),
			Quantity:     1,
			PriceExclTax: dec("10.00"),
			PriceInclTax: dec("10.00"),
		}},
	}
	svc := testService(store)

	_, err := svc.Recompute(context.Background(), store.order.ID, nil)
	require.NoError(t, err)
	require.Nil(t, store.savedEdit)
	require.Equal(t, 1, store.updateCalled)
}

func TestRecomputePropagatesLoadError(t *testing.T) {
	store := &memStore{getErr: errors.New("db down")}
	svc := testService(store)

	_, err := svc.Recompute(context.Background(), uuid.New(), nil)
	require.Error(t, err)
	require.Nil(t, store.savedOrder)
}

func TestTaskPayloadRoundTrip(t *testing.T) {
	orderID := uuid.New()
	edit := &pricing.LineEdit{ItemID: uuid.New(), Quantity: 3, PriceExclTax: dec("9.99"), PriceInclTax: dec("9.99")}

	task, err := NewTask(orderID, edit)
	require.NoError(t, err)
	require.Equal(t, TypeOrderRecompute, task.Type())

	var payload TaskPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, orderID, payload.OrderID)
	require.NotNil(t, payload.Edit)
	require.Equal(t, edit.ItemID, payload.Edit.ItemID)
	require.True(t, payload.Edit.PriceExclTax.Equal(dec("9.99")))
}

func TestTaskHandlerRejectsBadPayload(t *testing.T) {
	h := TaskHandler{Svc: testService(&memStore{})}
	err := h.ProcessTask(context.Background(), asynq.NewTask(TypeOrderRecompute, []byte("{")))
	require.Error(t, err)
}
