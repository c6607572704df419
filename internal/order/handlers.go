package order

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kasirku/backend-pos/internal/common"
)

// Handler exposes the order history endpoints.
type Handler struct {
	Service *Service
}

// List handles GET /api/v1/orders?start=&end=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := common.ParsePagination(r, 20)
	params := ListParams{Page: page, Limit: limit}

	var err error
	if params.Start, err = parseBound(r.URL.Query().Get("start"), false); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "start must be a date or RFC3339 timestamp", nil)
		return
	}
	if params.End, err = parseBound(r.URL.Query().Get("end"), true); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "end must be a date or RFC3339 timestamp", nil)
		return
	}

	orders, total, err := h.Service.List(r.Context(), params)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       orders,
		"pagination": common.Pagination{Page: page, PerPage: limit, TotalItems: int(total)},
	})
}

// Get handles GET /api/v1/orders/{orderID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "orderID")
	if _, err := uuid.Parse(id); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id", nil)
		return
	}
	o, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if common.IsAppError(err) {
		common.WriteError(w, err)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "storage failure", nil)
}

// parseBound accepts RFC3339 timestamps or bare dates. A bare date used as
// the end bound covers the whole day.
func parseBound(raw string, endOfDay bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
