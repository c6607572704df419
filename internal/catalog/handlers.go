package catalog

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/kasirku/backend-pos/internal/common"
	"github.com/kasirku/backend-pos/internal/pricing"
)

// Handler exposes the catalog REST endpoints.
type Handler struct {
	Service  *Service
	Validate *validator.Validate
}

type categoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type productRequest struct {
	Name       string        `json:"name" validate:"required,max=200"`
	Price      pricing.Money `json:"price" validate:"gte=0"`
	Stock      int32         `json:"stock" validate:"gte=0"`
	CategoryID string        `json:"categoryId" validate:"required,uuid"`
	ImageURL   string        `json:"imageUrl" validate:"omitempty,max=500"`
}

type bulkImportRequest struct {
	Products []productRequest `json:"products" validate:"required,min=1,max=500,dive"`
}

// ListCategories handles GET /api/v1/categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Service.Categories(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": categories})
}

// CreateCategory handles POST /api/v1/admin/categories.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCategory(w, r)
	if !ok {
		return
	}
	category, err := h.Service.CreateCategory(r.Context(), req.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": category})
}

// UpdateCategory handles PUT /api/v1/admin/categories/{categoryID}.
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "categoryID")
	if !ok {
		return
	}
	req, ok := h.decodeCategory(w, r)
	if !ok {
		return
	}
	category, err := h.Service.UpdateCategory(r.Context(), id, req.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": category})
}

// DeleteCategory handles DELETE /api/v1/admin/categories/{categoryID}.
// Products in the category are removed with it.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "categoryID")
	if !ok {
		return
	}
	removed, err := h.Service.DeleteCategory(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"deleted_products": removed}})
}

// ListProducts handles GET /api/v1/products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, limit := common.ParsePagination(r, 50)
	params := ListParams{
		Query:      r.URL.Query().Get("q"),
		CategoryID: r.URL.Query().Get("category"),
		Page:       page,
		Limit:      limit,
	}
	products, total, err := h.Service.Products(r.Context(), params)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       products,
		"pagination": common.Pagination{Page: page, PerPage: limit, TotalItems: int(total)},
	})
}

// GetProduct handles GET /api/v1/products/{productID}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "productID")
	if !ok {
		return
	}
	product, err := h.Service.GetProduct(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": product})
}

// CreateProduct handles POST /api/v1/admin/products.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}
	product, err := h.Service.CreateProduct(r.Context(), toInput(req))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": product})
}

// UpdateProduct handles PUT /api/v1/admin/products/{productID}.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "productID")
	if !ok {
		return
	}
	req, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}
	product, err := h.Service.UpdateProduct(r.Context(), id, toInput(req))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": product})
}

// DeleteProduct handles DELETE /api/v1/admin/products/{productID}.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "productID")
	if !ok {
		return
	}
	if err := h.Service.DeleteProduct(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BulkImport handles POST /api/v1/admin/products/bulk.
func (h *Handler) BulkImport(w http.ResponseWriter, r *http.Request) {
	var req bulkImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request payload", nil)
		return
	}
	if err := h.validate(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid bulk import payload", validationDetails(err))
		return
	}
	inputs := make([]ProductInput, 0, len(req.Products))
	for _, p := range req.Products {
		inputs = append(inputs, toInput(p))
	}
	imported, err := h.Service.BulkImport(r.Context(), inputs)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": map[string]any{"imported": imported}})
}

func (h *Handler) decodeCategory(w http.ResponseWriter, r *http.Request) (categoryRequest, bool) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request payload", nil)
		return req, false
	}
	if err := h.validate(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid category payload", validationDetails(err))
		return req, false
	}
	return req, true
}

func (h *Handler) decodeProduct(w http.ResponseWriter, r *http.Request) (productRequest, bool) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request payload", nil)
		return req, false
	}
	if err := h.validate(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid product payload", validationDetails(err))
		return req, false
	}
	return req, true
}

func (h *Handler) validate(v any) error {
	if h.Validate == nil {
		return nil
	}
	return h.Validate.Struct(v)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if common.IsAppError(err) {
		common.WriteError(w, err)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "storage failure", nil)
}

func toInput(req productRequest) ProductInput {
	return ProductInput{
		Name:       req.Name,
		Price:      req.Price,
		Stock:      req.Stock,
		CategoryID: req.CategoryID,
		ImageURL:   req.ImageURL,
	}
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (string, bool) {
	raw := chi.URLParam(r, param)
	if _, err := uuid.Parse(raw); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id", nil)
		return "", false
	}
	return raw, true
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
