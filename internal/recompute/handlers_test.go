package recompute

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pricing-engine/internal/pricing"
)

type captureEnqueuer struct {
	orderID uuid.UUID
	edit    *pricing.LineEdit
	err     error
}

func (c *captureEnqueuer) Enqueue(_ context.Context, orderID uuid.UUID, edit *pricing.LineEdit) error {
	c.orderID = orderID
	c.edit = edit
	return c.err
}

func postRecompute(t *testing.T, h *Handler, orderID, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Post("/admin/orders/{orderId}/recompute", h.Create)

	req := httptest.NewRequest(http.MethodPost, "/admin/orders/"+orderID+"/recompute", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreateSchedulesRecompute(t *testing.T) {
	enq := &captureEnqueuer{}
	h := &Handler{Enqueue: enq}
	orderID := uuid.New()
	itemID := uuid.New()

	body := `{"edit":{"item_id":"` + itemID.String() + `","quantity":2,"price_excl_tax":"20","price_incl_tax":"21.60"}}`
	rec := postRecompute(t, h, orderID.String(), body)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, orderID, enq.orderID)
	require.NotNil(t, enq.edit)
	require.Equal(t, itemID, enq.edit.ItemID)
	require.Equal(t, 2, enq.edit.Quantity)
	require.True(t, enq.edit.PriceInclTax.Equal(dec("21.60")))
}

func TestCreateWithoutBodySchedulesPlainRecompute(t *testing.T) {
	enq := &captureEnqueuer{}
	h := &Handler{Enqueue: enq}
	orderID := uuid.New()

	rec := postRecompute(t, h, orderID.String(), "")

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, orderID, enq.orderID)
	require.Nil(t, enq.edit)
}

func TestCreateRejectsBadOrderID(t *testing.T) {
	h := &Handler{Enqueue: &captureEnqueuer{}}
	rec := postRecompute(t, h, "not-a-uuid", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateRejectsBadEdit(t *testing.T) {
	h := &Handler{Enqueue: &captureEnqueuer{}}
	body := `{"edit":{"item_id":"` + uuid.NewString() + `","quantity":0}}`
	rec := postRecompute(t, h, uuid.NewString(), body)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
