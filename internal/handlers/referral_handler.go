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

// ReferralService is the interface that wraps methods for referral business logic
type ReferralService interface {
	// Method Create stores a referral for the given referrer and returns its id.
	//
	// "userID" parameter is the referrer, taken from the verified token.
	// "req" parameter contains the contact and vehicle fields.
	//
	// If the payload is invalid or the write fails, the error will be returned together with 0.
	Create(ctx context.Context, userID int, req *models.CreateReferralRequest) (int, error)
	// Method CountForUser counts referrals submitted by a user.
	//
	// If some error occurs, the error will be returned together with 0.
	CountForUser(ctx context.Context, userID int) (int, error)
	// Method ListForUser lists a user's referrals, newest first.
	//
	// "filter" parameter is a status name, or empty / "All" for every status.
	//
	// If the filter is unknown, services.ErrInvalidStatus will be returned together with nil.
	ListForUser(ctx context.Context, userID int, filter string) ([]models.Referral, error)
	// Method UpdateStatus sets a referral's status.
	//
	// If the status is unknown or the referral does not exist, the error will be returned.
	UpdateStatus(ctx context.Context, id int, status string) error
}

// ReferralHandler handles referral HTTP requests
type ReferralHandler struct {
	BaseHandler
	referralService ReferralService
}

// NewReferralHandler creates a new referral handler
func NewReferralHandler(referralService ReferralService, logger *zap.Logger) *ReferralHandler {
	return &ReferralHandler{
		BaseHandler:     BaseHandler{Logger: logger},
		referralService: referralService,
	}
}

// RegisterRoutes registers referral routes behind requireAuth.
// Status changes additionally need the admin role.
func (h *ReferralHandler) RegisterRoutes(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/referrals", h.List)
		r.Get("/referrals/count", h.Count)
		r.Post("/referrals", h.Create)
		r.With(authmw.RequireRole(string(models.RoleAdmin))).Put("/referrals/{id}/status", h.UpdateStatus)
	})
}

// Create handles POST /referrals
// @Summary Submit a referral
// @Tags referrals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateReferralRequest true "Referral"
// @Success 201 {object} map[string]int "Referral created"
// @Failure 400 {object} map[string]string "Invalid payload"
// @Failure 401 {object} map[string]string "Missing or invalid token"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /referrals [post]
func (h *ReferralHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, _ := authmw.GetClaims(r.Context())

	var req models.CreateReferralRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	id, err := h.referralService.Create(r.Context(), claims.ID, &req)
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusCreated, map[string]int{"referralId": id})
}

// Count handles GET /referrals/count
// @Summary Count the caller's referrals
// @Tags referrals
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]int "Total referrals"
// @Failure 401 {object} map[string]string "Missing or invalid token"
// @Router /referrals/count [get]
func (h *ReferralHandler) Count(w http.ResponseWriter, r *http.Request) {
	claims, _ := authmw.GetClaims(r.Context())

	count, err := h.referralService.CountForUser(r.Context(), claims.ID)
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]int{"totalReferrals": count})
}

// List handles GET /referrals
// @Summary List the caller's referrals
// @Tags referrals
// @Produce json
// @Security BearerAuth
// @Param status query string false "Pending, Booked, Closed, Lost or All"
// @Success 200 {object} map[string][]models.Referral "Referrals, newest first"
// @Failure 400 {object} map[string]string "Unknown status filter"
// @Failure 401 {object} map[string]string "Missing or invalid token"
// @Router /referrals [get]
func (h *ReferralHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, _ := authmw.GetClaims(r.Context())

	referrals, err := h.referralService.ListForUser(r.Context(), claims.ID, r.URL.Query().Get("status"))
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]any{"referrals": referrals})
}

// UpdateStatus handles PUT /referrals/{id}/status
// @Summary Change a referral's status
// @Tags referrals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Referral ID"
// @Param request body models.UpdateReferralStatusRequest true "New status"
// @Success 200 {object} map[string]string "Status updated"
// @Failure 400 {object} map[string]string "Invalid status"
// @Failure 403 {object} map[string]string "Not an admin"
// @Failure 404 {object} map[string]string "Referral not found"
// @Router /referrals/{id}/status [put]
func (h *ReferralHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		h.RespondError(w, http.StatusBadRequest, "invalid referral id")
		return
	}

	var req models.UpdateReferralStatusRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	if err := h.referralService.UpdateStatus(r.Context(), id, req.Status); err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]string{"message": "referral status updated"})
}
