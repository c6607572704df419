package report

import (
	"net/http"
	"strings"
	"time"

	"github.com/kasirku/backend-pos/internal/common"
)

// Handler exposes the admin report endpoints.
type Handler struct {
	Service *Service
}

// Sales handles GET /api/v1/reports/sales?start=&end=.
func (h *Handler) Sales(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseRange(w, r)
	if !ok {
		return
	}
	report, err := h.Service.SalesRange(r.Context(), start, end)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": report})
}

// TopProducts handles GET /api/v1/reports/top-products?start=&end=&limit=.
func (h *Handler) TopProducts(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseRange(w, r)
	if !ok {
		return
	}
	limit := common.AtoiDefault(r.URL.Query().Get("limit"), 10)
	items, err := h.Service.TopProducts(r.Context(), start, end, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items})
}

// Overview handles GET /api/v1/reports/overview.
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.Service.DashboardOverview(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": overview})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if common.IsAppError(err) {
		common.WriteError(w, err)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "storage failure", nil)
}

func parseRange(w http.ResponseWriter, r *http.Request) (start, end time.Time, ok bool) {
	var err error
	if start, err = parseDate(r.URL.Query().Get("start")); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "start must be YYYY-MM-DD", nil)
		return start, end, false
	}
	if end, err = parseDate(r.URL.Query().Get("end")); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "end must be YYYY-MM-DD", nil)
		return start, end, false
	}
	return start, end, true
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(dateLayout, raw, time.Local)
}
