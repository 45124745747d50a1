package recompute

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/pricing-engine/internal/common"
	"github.com/noah-isme/pricing-engine/internal/pricing"
)

// TaskEnqueuer schedules a recompute. Satisfied by Enqueuer.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, orderID uuid.UUID, edit *pricing.LineEdit) error
}

// Handler accepts order edits and schedules background recomputes.
type Handler struct {
	Enqueue TaskEnqueuer
}

// EditPayload is the wire shape of a line edit. All prices are decimal
// strings and must be supplied both ways.
type EditPayload struct {
	ItemID           string `json:"item_id"`
	Quantity         int    `json:"quantity"`
	UnitPriceExclTax string `json:"unit_price_excl_tax"`
	UnitPriceInclTax string `json:"unit_price_incl_tax"`
	DiscountExclTax  string `json:"discount_excl_tax"`
	DiscountInclTax  string `json:"discount_incl_tax"`
	PriceExclTax     string `json:"price_excl_tax"`
	PriceInclTax     string `json:"price_incl_tax"`
}

// Create schedules a recompute for the order in the URL, with an optional
// line edit in the body.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}

	var body struct {
		Edit *EditPayload `json:"edit"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON payload", nil)
			return
		}
	}

	var edit *pricing.LineEdit
	if body.Edit != nil {
		edit, err = body.Edit.toLineEdit()
		if err != nil {
			var appErr *common.AppError
			if errors.As(err, &appErr) {
				common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
				return
			}
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", err.Error(), nil)
			return
		}
	}

	if h.Enqueue == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "recompute queue not configured", nil)
		return
	}
	if err := h.Enqueue.Enqueue(r.Context(), orderID, edit); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to schedule recompute", nil)
		return
	}
	common.JSON(w, http.StatusAccepted, map[string]any{
		"data": map[string]string{"order_id": orderID.String(), "status": "scheduled"},
	})
}

func (p EditPayload) toLineEdit() (*pricing.LineEdit, error) {
	itemID, err := uuid.Parse(p.ItemID)
	if err != nil {
		return nil, errInvalid("edit.item_id")
	}
	if p.Quantity <= 0 {
		return nil, errInvalid("edit.quantity")
	}
	edit := &pricing.LineEdit{ItemID: itemID, Quantity: p.Quantity}

	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"edit.unit_price_excl_tax", p.UnitPriceExclTax, &edit.UnitPriceExclTax},
		{"edit.unit_price_incl_tax", p.UnitPriceInclTax, &edit.UnitPriceInclTax},
		{"edit.discount_excl_tax", p.DiscountExclTax, &edit.DiscountExclTax},
		{"edit.discount_incl_tax", p.DiscountInclTax, &edit.DiscountInclTax},
		{"edit.price_excl_tax", p.PriceExclTax, &edit.PriceExclTax},
		{"edit.price_incl_tax", p.PriceInclTax, &edit.PriceInclTax},
	}
	for _, f := range fields {
		raw := strings.TrimSpace(f.raw)
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, errInvalid(f.name)
		}
		*f.dst = d
	}
	return edit, nil
}

func errInvalid(field string) error {
	return common.NewAppError("VALIDATION", "invalid value for "+field, http.StatusUnprocessableEntity, nil)
}
