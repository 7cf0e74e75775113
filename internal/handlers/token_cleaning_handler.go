package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RevocationCleaner removes revocation entries whose tokens have expired on their own
type RevocationCleaner interface {
	// Method DeleteExpired deletes entries for tokens that expired at or before "before".
	//
	// Returns the number of deleted entries.
	DeleteExpired(ctx context.Context, before time.Time) (int, error)
}

// TokenCleaningHandler handles token cleaning requests
type TokenCleaningHandler struct {
	BaseHandler
	cleaner RevocationCleaner
}

// NewTokenCleaningHandler creates a new token cleaning handler
func NewTokenCleaningHandler(cleaner RevocationCleaner, logger *zap.Logger) *TokenCleaningHandler {
	return &TokenCleaningHandler{
		BaseHandler: BaseHandler{Logger: logger},
		cleaner:     cleaner,
	}
}

// RegisterRoutes registers token cleaning handler routes behind the API key guard
func (h *TokenCleaningHandler) RegisterRoutes(r chi.Router, apiKey func(http.Handler) http.Handler) {
	r.With(apiKey).Get("/tokens/clean", h.CleanTokens)
}

// CleanTokens handles GET /tokens/clean
// @Summary Clean expired revocations
// @Description Removes revocation entries for tokens past their exp
// @Tags tokens
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} map[string]string "Token cleaning completed successfully"
// @Failure 401 {object} map[string]string "Missing or wrong API key"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /tokens/clean [get]
func (h *TokenCleaningHandler) CleanTokens(w http.ResponseWriter, r *http.Request) {
	deletedCount, err := h.cleaner.DeleteExpired(r.Context(), time.Now())
	if err != nil {
		h.Logger.Error("failed to delete expired revocations", zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	// 0 deleted rows is not an error
	h.Logger.Info("token cleaning completed successfully", zap.Int("deletedCount", deletedCount))
	h.RespondJSON(w, http.StatusOK, map[string]string{"message": "token cleaning completed successfully"})
}
