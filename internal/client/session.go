package client

import (
	"context"
	"net/http"

	"github.com/dealerreferral/backend/internal/auth/service"
	"github.com/dealerreferral/backend/internal/models"
)

// Screens a freshly logged in user is routed to
const (
	DestinationAdmin = "admin"
	DestinationHome  = "home"
	DestinationLogin = "login"
)

// Session exposes the stored token and its decoded claims.
// It never refreshes a token; an expired session requires a new login.
type Session struct {
	store TokenStore
}

// NewSession creates a session backed by store
func NewSession(store TokenStore) *Session {
	return &Session{store: store}
}

// StoreToken persists the token returned by login or signup
func (s *Session) StoreToken(ctx context.Context, token string) error {
	return s.store.Set(ctx, TokenKey, []byte(token))
}

// Token returns the stored token or "" when there is none
func (s *Session) Token(ctx context.Context) (string, error) {
	raw, err := s.store.Get(ctx, TokenKey)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// CurrentClaims decodes the stored token without verifying it.
// Returns nil when no token is stored. A token that cannot be decoded is
// removed and treated as no session.
func (s *Session) CurrentClaims(ctx context.Context) (*service.Claims, error) {
	token, err := s.Token(ctx)
	if err != nil || token == "" {
		return nil, err
	}

	claims, err := service.ParseUnverified(token)
	if err != nil {
		return nil, s.ClearSession(ctx)
	}
	return claims, nil
}

// ClearSession removes the stored token
func (s *Session) ClearSession(ctx context.Context) error {
	return s.store.Delete(ctx, TokenKey)
}

// Attach sets the bearer header on req when a token is stored
func (s *Session) Attach(ctx context.Context, req *http.Request) error {
	token, err := s.Token(ctx)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}

// Destination picks the landing screen from the stored role
func (s *Session) Destination(ctx context.Context) (string, error) {
	claims, err := s.CurrentClaims(ctx)
	if err != nil {
		return "", err
	}
	switch {
	case claims == nil:
		return DestinationLogin, nil
	case claims.Role == string(models.RoleAdmin):
		return DestinationAdmin, nil
	default:
		return DestinationHome, nil
	}
}
