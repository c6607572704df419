package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/kasirku/backend-pos/internal/common"
	"github.com/kasirku/backend-pos/internal/obs"
)

// Handler exposes the authentication endpoints.
type Handler struct {
	Service *Service
}

type loginRequest struct {
	Username string `json:"username"`
	PIN      string `json:"pin"`
}

// Login handles POST /api/v1/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "auth service not configured", nil)
		return
	}
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request payload", nil)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.PIN == "" {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "username and pin are required", nil)
		return
	}
	result, err := h.Service.Login(r.Context(), req.Username, req.PIN)
	if err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			countLogin("denied")
			common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, nil)
			return
		}
		countLogin("error")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "could not process login", nil)
		return
	}
	countLogin("ok")
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

// Me handles GET /api/v1/auth/me. It requires RequireAuth upstream.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := common.IdentityFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"id":       identity.UserID,
		"username": identity.Username,
		"role":     identity.Role,
	}})
}

func countLogin(result string) {
	if obs.LoginTotal == nil {
		return
	}
	obs.LoginTotal.WithLabelValues(result).Inc()
}
