package handlers

import (
	"context"
	"net/http"
	"strconv"

	authmw "github.com/dealerreferral/backend/internal/auth/middleware"
	"github.com/dealerreferral/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AdminService is the interface that wraps methods for admin operations
type AdminService interface {
	// Method ListUsers gets one page of users.
	//
	// "page" parameter is 1-based; "limit" is the page size. Out of range values fall back to defaults.
	//
	// Returns the page together with the total number of users.
	ListUsers(ctx context.Context, page, limit int) ([]models.User, int, error)
	// Method ListActiveUsers gets users whose is_active flag is set.
	ListActiveUsers(ctx context.Context) ([]models.User, error)
	// Method UpdateUserRole changes a user's role.
	//
	// If the role is unknown or the user does not exist, the error will be returned.
	UpdateUserRole(ctx context.Context, userID int, role string) error
	// Method ListReferrals gets one page of all referrals.
	//
	// Returns the page together with the total number of referrals.
	ListReferrals(ctx context.Context, page, limit int) ([]models.Referral, int, error)
}

// AdminHandler handles admin-only HTTP requests
type AdminHandler struct {
	BaseHandler
	adminService AdminService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminService AdminService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		BaseHandler:  BaseHandler{Logger: logger},
		adminService: adminService,
	}
}

// RegisterRoutes registers admin routes behind requireAuth and the admin role
func (h *AdminHandler) RegisterRoutes(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(authmw.RequireRole(string(models.RoleAdmin)))
		r.Get("/admin/users", h.ListUsers)
		r.Get("/admin/users/active", h.ListActiveUsers)
		r.Put("/admin/users/{id}/role", h.UpdateUserRole)
		r.Get("/admin/referrals", h.ListReferrals)
	})
}

// ListUsers handles GET /admin/users
// @Summary List users
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (default 1)"
// @Param limit query int false "Page size (default 10, max 100)"
// @Success 200 {object} map[string]any "Users and total"
// @Failure 401 {object} map[string]string "Missing or invalid token"
// @Failure 403 {object} map[string]string "Not an admin"
// @Router /admin/users [get]
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page := parsePositiveInt(r.URL.Query().Get("page"))
	limit := parsePositiveInt(r.URL.Query().Get("limit"))

	users, total, err := h.adminService.ListUsers(r.Context(), page, limit)
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]any{"users": users, "total": total})
}

// ListActiveUsers handles GET /admin/users/active
// @Summary List users currently logged in
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string][]models.User "Active users"
// @Failure 403 {object} map[string]string "Not an admin"
// @Router /admin/users/active [get]
func (h *AdminHandler) ListActiveUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.adminService.ListActiveUsers(r.Context())
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]any{"users": users})
}

// UpdateUserRole handles PUT /admin/users/{id}/role
// @Summary Change a user's role
// @Description Outstanding tokens keep the old role until they expire
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body models.UpdateUserRoleRequest true "New role"
// @Success 200 {object} map[string]string "Role updated"
// @Failure 400 {object} map[string]string "Invalid role"
// @Failure 404 {object} map[string]string "User not found"
// @Router /admin/users/{id}/role [put]
func (h *AdminHandler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		h.RespondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req models.UpdateUserRoleRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	if err := h.adminService.UpdateUserRole(r.Context(), id, req.Role); err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]string{"message": "user role updated"})
}

// ListReferrals handles GET /admin/referrals
// @Summary List all referrals
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (default 1)"
// @Param limit query int false "Page size (default 10, max 100)"
// @Success 200 {object} map[string]any "Referrals and total"
// @Failure 403 {object} map[string]string "Not an admin"
// @Router /admin/referrals [get]
func (h *AdminHandler) ListReferrals(w http.ResponseWriter, r *http.Request) {
	page := parsePositiveInt(r.URL.Query().Get("page"))
	limit := parsePositiveInt(r.URL.Query().Get("limit"))

	referrals, total, err := h.adminService.ListReferrals(r.Context(), page, limit)
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]any{"referrals": referrals, "total": total})
}
