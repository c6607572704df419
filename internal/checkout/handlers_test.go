package checkout

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasirku/backend-pos/internal/common"
)

const productID = "a81bc81b-dead-4e5d-abff-90865d1e13b1"

func postCheckout(t *testing.T, h *Handler, body string, identity *common.Identity) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	if identity != nil {
		req = req.WithContext(common.WithIdentity(req.Context(), *identity))
	}
	rec := httptest.NewRecorder()
	h.Record(rec, req)
	return rec
}

func TestCheckoutHandlerCreated(t *testing.T) {
	store := newMemStore()
	store.stock[productID] = 10
	h := &Handler{Service: newTestService(t, store, nil), Validate: validator.New()}

	body := `{"items":[{"id":"` + productID + `","name":"Nasi Goreng Spesial","price":25000,"quantity":2}],"discount":0,"tendered":60000}`
	rec := postCheckout(t, h, body, &common.Identity{UserID: "u-1", Username: "kasir1", Role: "cashier"})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"total":50000`)
	assert.Contains(t, rec.Body.String(), `"change":10000`)
}

func TestCheckoutHandlerRequiresAuth(t *testing.T) {
	h := &Handler{Service: newTestService(t, newMemStore(), nil)}

	rec := postCheckout(t, h, `{"items":[],"tendered":0}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckoutHandlerInsufficientStock(t *testing.T) {
	store := newMemStore()
	store.stock[productID] = 1
	h := &Handler{Service: newTestService(t, store, nil), Validate: validator.New()}

	body := `{"items":[{"id":"` + productID + `","name":"Es Jeruk","price":7000,"quantity":3}],"tendered":21000}`
	rec := postCheckout(t, h, body, &common.Identity{UserID: "u-1"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient stock for Es Jeruk")
}

func TestCheckoutHandlerValidation(t *testing.T) {
	h := &Handler{Service: newTestService(t, newMemStore(), nil), Validate: validator.New()}
	identity := &common.Identity{UserID: "u-1"}

	cases := map[string]string{
		"malformed json": `{"items":`,
		"empty items":    `{"items":[],"tendered":1000}`,
		"zero quantity":  `{"items":[{"id":"` + productID + `","name":"X","price":1000,"quantity":0}],"tendered":1000}`,
		"negative price": `{"items":[{"id":"` + productID + `","name":"X","price":-5,"quantity":1}],"tendered":1000}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := postCheckout(t, h, body, identity)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
		})
	}
}
