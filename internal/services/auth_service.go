package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dealerreferral/backend/internal/auth/service"
	"github.com/dealerreferral/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// PasswordHashCost is the bcrypt work factor for stored password hashes
const PasswordHashCost = 10

// AuthUserRepository is the interface that wraps methods for User table data access used by authentication
type AuthUserRepository interface {
	// Method Create inserts a new user into the database.
	//
	// "user" parameter is used to create a new user; its ID is set on success.
	//
	// If the email is already taken, an error wrapping models.ErrDuplicateEntry will be returned.
	Create(ctx context.Context, user *models.User) error
	// Method GetByEmail retrieves a user by email.
	//
	// "email" parameter is used to retrieve a user by its normalized email.
	//
	// If user with such email does not exist, an error wrapping models.ErrNotFound will be returned together with "nil" value.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// Method ExistsByEmail checks if a user with such email exists.
	//
	// "email" parameter is used to check if a user with such email exists.
	//
	// If some error occurs during check, the error will be returned together with "false" value.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// Method SetActive updates the advisory is_active flag of a user.
	//
	// "userID" parameter is used to identify the user.
	// "active" parameter is the new flag value.
	//
	// If user with such ID does not exist, an error wrapping models.ErrNotFound will be returned.
	SetActive(ctx context.Context, userID int, active bool) error
}

// TokenRevoker is the interface that wraps the write side of the token revocation list
type TokenRevoker interface {
	// Method Revoke puts a token id on the revocation list until the token expires.
	//
	// "tokenID" parameter is the jti claim of the token.
	// "userID" parameter is the owner of the token.
	// "expiresAt" parameter is the exp claim of the token.
	//
	// If some error occurs, the error will be returned.
	Revoke(ctx context.Context, tokenID string, userID int, expiresAt time.Time) error
}

// authService implements signup, login and logout
type authService struct {
	userRepo       AuthUserRepository
	revoker        TokenRevoker
	tokenGenerator *service.TokenGenerator
	logger         *zap.Logger
	revokeOnLogout bool
}

// NewAuthService creates a new auth service.
// revoker may be nil when revokeOnLogout is false.
func NewAuthService(
	userRepo AuthUserRepository,
	revoker TokenRevoker,
	tokenGenerator *service.TokenGenerator,
	logger *zap.Logger,
	revokeOnLogout bool,
) *authService {
	return &authService{
		userRepo:       userRepo,
		revoker:        revoker,
		tokenGenerator: tokenGenerator,
		logger:         logger,
		revokeOnLogout: revokeOnLogout,
	}
}

// dummyHash is compared against when the email is unknown so both failure paths pay for one bcrypt comparison
var dummyHash = sync.OnceValue(func() []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), PasswordHashCost)
	if err != nil {
		panic(fmt.Sprintf("failed to build dummy password hash: %v", err))
	}
	return hash
})

// normalizeEmail trims and lowercases an email so lookups and the unique index agree
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup creates a user and returns a session token for it
func (s *authService) Signup(ctx context.Context, req *models.SignupRequest) (string, error) {
	req.Email = normalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if err := validateStruct(req); err != nil {
		return "", err
	}

	exists, err := s.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return "", fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return "", ErrDuplicateEmail
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), PasswordHashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	role := req.Role
	if role == "" {
		role = models.RoleUser
	}

	user := &models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(passwordHash),
		Role:         role,
		IsActive:     true,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// Lost the race against a concurrent signup with the same email
		if errors.Is(err, models.ErrDuplicateEntry) {
			return "", ErrDuplicateEmail
		}
		return "", err
	}

	s.logger.Info("user signed up", zap.Int("userId", user.ID), zap.String("role", string(user.Role)))

	return s.tokenGenerator.GenerateToken(user.ID, user.Email, user.Name, string(user.Role))
}

// Login verifies credentials and returns a fresh session token.
// Tokens issued earlier stay valid.
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (string, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validateStruct(req); err != nil {
		return "", err
	}

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(req.Password))
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return "", ErrInvalidCredentials
	}

	// is_active is advisory, a failed update must not block the login
	if err := s.userRepo.SetActive(ctx, user.ID, true); err != nil {
		s.logger.Warn("failed to mark user active", zap.Int("userId", user.ID), zap.Error(err))
	}

	return s.tokenGenerator.GenerateToken(user.ID, user.Email, user.Name, string(user.Role))
}

// Logout clears the is_active flag of the token owner and, when enabled, revokes the token itself
func (s *authService) Logout(ctx context.Context, claims *service.Claims) error {
	if err := s.userRepo.SetActive(ctx, claims.ID, false); err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			return err
		}
		s.logger.Warn("logout for unknown user", zap.Int("userId", claims.ID))
	}

	if !s.revokeOnLogout || s.revoker == nil {
		return nil
	}

	if claims.ExpiresAt == nil || claims.RegisteredClaims.ID == "" {
		return fmt.Errorf("token cannot be revoked: %w", service.ErrTokenInvalid)
	}

	if err := s.revoker.Revoke(ctx, claims.RegisteredClaims.ID, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	return nil
}
