package user

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/kasirku/backend-pos/internal/common"
)

// Handler exposes the admin user-management endpoints.
type Handler struct {
	Service  *Service
	Validate *validator.Validate
}

type createRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	PIN      string `json:"pin" validate:"required,min=4,max=8,numeric"`
	Role     string `json:"role" validate:"required,oneof=admin cashier"`
}

type updateRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	PIN      string `json:"pin" validate:"omitempty,min=4,max=8,numeric"`
	Role     string `json:"role" validate:"required,oneof=admin cashier"`
}

// List handles GET /api/v1/admin/users.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Service.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": accounts})
}

// Get handles GET /api/v1/admin/users/{userID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	account, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": account})
}

// Create handles POST /api/v1/admin/users.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !h.decode(w, r, &req) {
		return
	}
	account, err := h.Service.Create(r.Context(), Input{Username: req.Username, PIN: req.PIN, Role: req.Role})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": account})
}

// Update handles PUT /api/v1/admin/users/{userID}. An omitted PIN keeps the
// current credential.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateRequest
	if !h.decode(w, r, &req) {
		return
	}
	account, err := h.Service.Update(r.Context(), id, Input{Username: req.Username, PIN: req.PIN, Role: req.Role})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": account})
}

// Delete handles DELETE /api/v1/admin/users/{userID}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if identity, found := common.IdentityFrom(r.Context()); found && identity.UserID == id {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "cannot delete your own account", nil)
		return
	}
	if err := h.Service.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request payload", nil)
		return false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(dst); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid user payload", nil)
			return false
		}
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if common.IsAppError(err) {
		common.WriteError(w, err)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "storage failure", nil)
}

func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "userID")
	if _, err := uuid.Parse(raw); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id", nil)
		return "", false
	}
	return raw, true
}
