package quote

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/pricing-engine/internal/common"
	"github.com/noah-isme/pricing-engine/internal/pricing"
)

// Handler serves POST /api/v1/quotes.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// QuoteRequest is the wire shape of a cart snapshot. Money fields are
// decimal strings to avoid float drift in transit.
type QuoteRequest struct {
	Customer        CustomerPayload    `json:"customer" validate:"required"`
	Items           []ItemPayload      `json:"items" validate:"required,min=1,dive"`
	Attributes      []AttributePayload `json:"attributes" validate:"dive"`
	PaymentFee      string             `json:"payment_fee"`
	UseRewardPoints *bool              `json:"use_reward_points"`
}

// CustomerPayload mirrors pricing.Customer on the wire.
type CustomerPayload struct {
	ID                  string          `json:"id" validate:"required,uuid4"`
	FreeShipping        bool            `json:"free_shipping"`
	UseRewardPoints     bool            `json:"use_reward_points"`
	ShippingAddress     *AddressPayload `json:"shipping_address"`
	SelectedOption      *OptionPayload  `json:"selected_option"`
	SelectedPickupPoint *PickupPayload  `json:"selected_pickup_point"`
}

// AddressPayload mirrors pricing.Address on the wire.
type AddressPayload struct {
	Country    string `json:"country"`
	Province   string `json:"province"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
}

// OptionPayload mirrors pricing.ShippingOption on the wire.
type OptionPayload struct {
	Name          string `json:"name" validate:"required"`
	Provider      string `json:"provider"`
	Rate          string `json:"rate" validate:"required"`
	PickupInStore bool   `json:"pickup_in_store"`
}

// PickupPayload mirrors pricing.PickupPoint on the wire.
type PickupPayload struct {
	ID       string `json:"id" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Provider string `json:"provider"`
	Fee      string `json:"fee" validate:"required"`
}

// ItemPayload mirrors pricing.LineItem on the wire.
type ItemPayload struct {
	ProductID                string `json:"product_id" validate:"required,uuid4"`
	Quantity                 int    `json:"quantity" validate:"required,gt=0"`
	UnitPrice                string `json:"unit_price" validate:"required"`
	DiscountPerUnit          string `json:"discount_per_unit"`
	RequiresShipping         bool   `json:"requires_shipping"`
	FreeShipping             bool   `json:"free_shipping"`
	AdditionalShippingCharge string `json:"additional_shipping_charge"`
	Recurring                bool   `json:"recurring"`
}

// AttributePayload mirrors pricing.CheckoutAttribute on the wire.
type AttributePayload struct {
	Name  string `json:"name" validate:"required"`
	Value string `json:"value"`
	Price string `json:"price" validate:"required"`
}

// Create prices a cart snapshot.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote service not configured", nil)
		return
	}

	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "invalid quote request", validationDetails(err))
			return
		}
	}

	cart, err := req.toCart()
	if err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
			return
		}
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", err.Error(), nil)
		return
	}

	breakdown, err := h.Svc.Quote(r.Context(), cart, req.UseRewardPoints)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to price cart", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": breakdown})
}

func (r QuoteRequest) toCart() (pricing.Cart, error) {
	customerID, err := uuid.Parse(r.Customer.ID)
	if err != nil {
		return pricing.Cart{}, errInvalidField("customer.id")
	}
	cart := pricing.Cart{
		Customer: pricing.Customer{
			ID:              customerID,
			FreeShipping:    r.Customer.FreeShipping,
			UseRewardPoints: r.Customer.UseRewardPoints,
		},
	}

	if a := r.Customer.ShippingAddress; a != nil {
		cart.Customer.ShippingAddress = &pricing.Address{
			Country:    a.Country,
			Province:   a.Province,
			City:       a.City,
			PostalCode: a.PostalCode,
			Line1:      a.Line1,
			Line2:      a.Line2,
		}
	}
	if o := r.Customer.SelectedOption; o != nil {
		rate, err := parseMoney(o.Rate)
		if err != nil {
			return pricing.Cart{}, errInvalidField("customer.selected_option.rate")
		}
		cart.Customer.SelectedShippingOption = &pricing.ShippingOption{
			Name:          o.Name,
			ProviderName:  o.Provider,
			Rate:          rate,
			PickupInStore: o.PickupInStore,
		}
	}
	if p := r.Customer.SelectedPickupPoint; p != nil {
		fee, err := parseMoney(p.Fee)
		if err != nil {
			return pricing.Cart{}, errInvalidField("customer.selected_pickup_point.fee")
		}
		cart.Customer.SelectedPickupPoint = &pricing.PickupPoint{
			ID:           p.ID,
			Name:         p.Name,
			ProviderName: p.Provider,
			Fee:          fee,
		}
	}

	for _, item := range r.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return pricing.Cart{}, errInvalidField("items.product_id")
		}
		unit, err := parseMoney(item.UnitPrice)
		if err != nil {
			return pricing.Cart{}, errInvalidField("items.unit_price")
		}
		lineDiscount, err := parseOptionalMoney(item.DiscountPerUnit)
		if err != nil {
			return pricing.Cart{}, errInvalidField("items.discount_per_unit")
		}
		charge, err := parseOptionalMoney(item.AdditionalShippingCharge)
		if err != nil {
			return pricing.Cart{}, errInvalidField("items.additional_shipping_charge")
		}
		// Line ids stay zero so identical snapshots hash to the same
		// cache key.
		cart.Items = append(cart.Items, pricing.LineItem{
			ProductID:                productID,
			Quantity:                 item.Quantity,
			UnitPrice:                unit,
			DiscountPerUnit:          lineDiscount,
			RequiresShipping:         item.RequiresShipping,
			FreeShipping:             item.FreeShipping,
			AdditionalShippingCharge: charge,
			Recurring:                item.Recurring,
		})
	}

	for _, attr := range r.Attributes {
		price, err := parseMoney(attr.Price)
		if err != nil {
			return pricing.Cart{}, errInvalidField("attributes.price")
		}
		cart.Attributes = append(cart.Attributes, pricing.CheckoutAttribute{
			Name:  attr.Name,
			Value: attr.Value,
			Price: price,
		})
	}

	if cart.PaymentFee, err = parseOptionalMoney(r.PaymentFee); err != nil {
		return pricing.Cart{}, errInvalidField("payment_fee")
	}
	return cart, nil
}

func errInvalidField(field string) error {
	return common.NewAppError("VALIDATION", "invalid value for "+field, http.StatusUnprocessableEntity, nil)
}

func parseMoney(raw string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(raw))
}

func parseOptionalMoney(raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	return parseMoney(raw)
}

func validationDetails(err error) any {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Namespace())
	}
	return map[string]any{"fields": fields}
}
