package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasirku/backend-pos/internal/common"
)

func TestLoginHandlerSuccess(t *testing.T) {
	store := &fakeStore{users: map[string]User{
		"admin": {ID: "u-9", Username: "admin", PIN: "1234", Role: "admin"},
	}}
	h := &Handler{Service: newTestService(t, store)}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"admin","pin":"1234"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data LoginResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "admin", body.Data.User.Username)
	assert.NotEmpty(t, body.Data.AccessToken)
}

func TestLoginHandlerBadCredentials(t *testing.T) {
	store := &fakeStore{users: map[string]User{
		"admin": {ID: "u-9", Username: "admin", PIN: "1234", Role: "admin"},
	}}
	h := &Handler{Service: newTestService(t, store)}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"admin","pin":"0000"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "username or pin incorrect")
}

func TestLoginHandlerValidation(t *testing.T) {
	h := &Handler{Service: newTestService(t, &fakeStore{})}

	for name, payload := range map[string]string{
		"malformed json": `{"username":`,
		"empty fields":   `{"username":"","pin":""}`,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(payload))
			rec := httptest.NewRecorder()
			h.Login(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
		})
	}
}

func TestMeHandler(t *testing.T) {
	h := &Handler{}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req = req.WithContext(common.WithIdentity(req.Context(), common.Identity{UserID: "u-1", Username: "kasir1", Role: "cashier"}))
	rec := httptest.NewRecorder()
	h.Me(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "kasir1")
}
