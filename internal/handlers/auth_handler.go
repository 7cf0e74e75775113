package handlers

import (
	"context"
	"net/http"

	authmw "github.com/dealerreferral/backend/internal/auth/middleware"
	"github.com/dealerreferral/backend/internal/auth/service"
	"github.com/dealerreferral/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AuthService is the interface that wraps methods for authentication business logic.
type AuthService interface {
	// Method Signup validates the payload, creates the user and returns a session token.
	//
	// "req" parameter contains name, email, password and optional role.
	//
	// If the payload is invalid or the email is taken, the error will be returned together with an empty token.
	Signup(ctx context.Context, req *models.SignupRequest) (string, error)
	// Method Login verifies credentials and returns a fresh session token.
	//
	// "req" parameter contains email and password.
	//
	// If the credentials do not match, services.ErrInvalidCredentials will be returned together with an empty token.
	Login(ctx context.Context, req *models.LoginRequest) (string, error)
	// Method Logout marks the token owner inactive and revokes the token when configured to.
	//
	// "claims" parameter is the verified identity of the caller.
	//
	// If some error occurs, the error will be returned.
	Logout(ctx context.Context, claims *service.Claims) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	BaseHandler
	authService AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler: BaseHandler{Logger: logger},
		authService: authService,
	}
}

// RegisterRoutes registers all auth handler routes.
// credentialLimiter wraps the endpoints that accept passwords.
func (h *AuthHandler) RegisterRoutes(r chi.Router, requireAuth, credentialLimiter func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(credentialLimiter)
		r.Post("/signup", h.Signup)
		r.Post("/login", h.Login)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/logout", h.Logout)
		r.Get("/protected", h.Protected)
		r.With(authmw.RequireRole(string(models.RoleAdmin))).Get("/admin", h.Admin)
	})
}

// Signup handles POST /signup
// @Summary Create an account
// @Description Creates a user and returns a session token. Role defaults to user.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.SignupRequest true "Signup payload"
// @Success 201 {object} map[string]string "User registered, token issued"
// @Failure 400 {object} map[string]string "Invalid payload or email already registered"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /signup [post]
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	token, err := h.authService.Signup(r.Context(), &req)
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusCreated, map[string]string{
		"message": "user registered successfully",
		"token":   token,
	})
}

// Login handles POST /login
// @Summary Log in
// @Description Verifies email and password and returns a fresh session token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Credentials"
// @Success 200 {object} map[string]string "Token issued"
// @Failure 400 {object} map[string]string "Invalid payload"
// @Failure 401 {object} map[string]string "Invalid email or password"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	token, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Logout handles POST /logout
// @Summary Log out
// @Description Marks the caller inactive. The token is revoked only when revocation on logout is enabled.
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string "Logged out"
// @Failure 401 {object} map[string]string "Missing or invalid token"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := authmw.GetClaims(r.Context())
	if !ok {
		h.RespondError(w, http.StatusUnauthorized, authmw.MsgMissingToken)
		return
	}

	if err := h.authService.Logout(r.Context(), claims); err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]string{"message": "logged out successfully"})
}

// Protected handles GET /protected
// @Summary Echo the caller's identity
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Decoded token claims"
// @Failure 401 {object} map[string]string "Missing or invalid token"
// @Router /protected [get]
func (h *AuthHandler) Protected(w http.ResponseWriter, r *http.Request) {
	claims, _ := authmw.GetClaims(r.Context())
	h.RespondJSON(w, http.StatusOK, map[string]any{
		"message": "protected route accessed",
		"user":    claims,
	})
}

// Admin handles GET /admin
// @Summary Admin gate check
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string "Access granted"
// @Failure 401 {object} map[string]string "Missing or invalid token"
// @Failure 403 {object} map[string]string "Not an admin"
// @Router /admin [get]
func (h *AuthHandler) Admin(w http.ResponseWriter, r *http.Request) {
	h.RespondJSON(w, http.StatusOK, map[string]string{"message": "access granted to administrator"})
}
