package checkout

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/kasirku/backend-pos/internal/common"
	"github.com/kasirku/backend-pos/internal/pricing"
)

// Handler exposes POST /api/v1/checkout.
type Handler struct {
	Service  *Service
	Validate *validator.Validate
}

type lineRequest struct {
	ID       string        `json:"id" validate:"required,uuid"`
	Name     string        `json:"name" validate:"required"`
	Price    pricing.Money `json:"price" validate:"gte=0"`
	Quantity int           `json:"quantity" validate:"gt=0"`
	ImageURL string        `json:"imageUrl"`
}

type checkoutRequest struct {
	Items    []lineRequest `json:"items" validate:"required,min=1,dive"`
	Discount pricing.Money `json:"discount" validate:"gte=0"`
	Tendered pricing.Money `json:"tendered" validate:"gte=0"`
}

// Record handles POST /api/v1/checkout.
func (h *Handler) Record(w http.ResponseWriter, r *http.Request) {
	cashierID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return
	}
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid checkout payload", nil)
			return
		}
	}

	input := Input{
		Lines:    make([]Line, 0, len(req.Items)),
		Discount: req.Discount,
		Tendered: req.Tendered,
	}
	for _, item := range req.Items {
		input.Lines = append(input.Lines, Line{
			ProductID: item.ID,
			Name:      item.Name,
			Price:     item.Price,
			Qty:       item.Quantity,
			ImageURL:  item.ImageURL,
		})
	}

	order, err := h.Service.Record(r.Context(), cashierID, input)
	if err != nil {
		if common.IsAppError(err) {
			common.WriteError(w, err)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "could not record order", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": order})
}
