package catalog

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T, store Store) *Handler {
	t.Helper()
	svc, err := NewService(store, nil, zerolog.Nop())
	require.NoError(t, err)
	return &Handler{Service: svc, Validate: validator.New()}
}

func testRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/categories", h.ListCategories)
	r.Post("/admin/categories", h.CreateCategory)
	r.Put("/admin/categories/{categoryID}", h.UpdateCategory)
	r.Delete("/admin/categories/{categoryID}", h.DeleteCategory)
	r.Get("/products", h.ListProducts)
	r.Get("/products/{productID}", h.GetProduct)
	r.Post("/admin/products", h.CreateProduct)
	r.Put("/admin/products/{productID}", h.UpdateProduct)
	r.Delete("/admin/products/{productID}", h.DeleteProduct)
	r.Post("/admin/products/bulk", h.BulkImport)
	return r
}

func TestCreateProductHandler(t *testing.T) {
	store := &fakeStore{}
	router := testRouter(newTestHandler(t, store))

	body := `{"name":"Nasi Goreng Spesial","price":25000,"stock":10,"categoryId":"a81bc81b-dead-4e5d-abff-90865d1e13b1"}`
	req := httptest.NewRequest(http.MethodPost, "/admin/products", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Nasi Goreng Spesial")
	assert.Len(t, store.products, 1)
}

func TestCreateProductHandlerValidation(t *testing.T) {
	router := testRouter(newTestHandler(t, &fakeStore{}))

	cases := map[string]string{
		"negative price":   `{"name":"X","price":-1,"stock":1,"categoryId":"a81bc81b-dead-4e5d-abff-90865d1e13b1"}`,
		"missing name":     `{"price":1000,"stock":1,"categoryId":"a81bc81b-dead-4e5d-abff-90865d1e13b1"}`,
		"bad category id":  `{"name":"X","price":1000,"stock":1,"categoryId":"not-a-uuid"}`,
		"negative stock":   `{"name":"X","price":1000,"stock":-2,"categoryId":"a81bc81b-dead-4e5d-abff-90865d1e13b1"}`,
		"malformed json":   `{"name":`,
		"missing category": `{"name":"X","price":1000,"stock":1}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin/products", strings.NewReader(body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
		})
	}
}

func TestDeleteCategoryHandlerReportsCascade(t *testing.T) {
	store := &fakeStore{
		categories: []Category{{ID: "a81bc81b-dead-4e5d-abff-90865d1e13b1", Name: "Makanan"}},
		products: []Product{
			{ID: "p-1", CategoryID: "a81bc81b-dead-4e5d-abff-90865d1e13b1"},
			{ID: "p-2", CategoryID: "a81bc81b-dead-4e5d-abff-90865d1e13b1"},
		},
	}
	router := testRouter(newTestHandler(t, store))

	req := httptest.NewRequest(http.MethodDelete, "/admin/categories/a81bc81b-dead-4e5d-abff-90865d1e13b1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"deleted_products":2`)
}

func TestDeleteCategoryHandlerBadID(t *testing.T) {
	router := testRouter(newTestHandler(t, &fakeStore{}))

	req := httptest.NewRequest(http.MethodDelete, "/admin/categories/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBulkImportHandler(t *testing.T) {
	store := &fakeStore{}
	router := testRouter(newTestHandler(t, store))

	body := `{"products":[
		{"name":"Es Teh Manis","price":5000,"stock":50,"categoryId":"a81bc81b-dead-4e5d-abff-90865d1e13b1"},
		{"name":"Es Jeruk","price":7000,"stock":40,"categoryId":"a81bc81b-dead-4e5d-abff-90865d1e13b1"}
	]}`
	req := httptest.NewRequest(http.MethodPost, "/admin/products/bulk", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"imported":2`)
}

func TestBulkImportHandlerEmpty(t *testing.T) {
	router := testRouter(newTestHandler(t, &fakeStore{}))

	req := httptest.NewRequest(http.MethodPost, "/admin/products/bulk", strings.NewReader(`{"products":[]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProductHandlerNotFound(t *testing.T) {
	router := testRouter(newTestHandler(t, &fakeStore{}))

	req := httptest.NewRequest(http.MethodGet, "/products/a81bc81b-dead-4e5d-abff-90865d1e13b1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}
