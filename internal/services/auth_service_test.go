package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dealerreferral/backend/internal/auth/service"
	"github.com/dealerreferral/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuthService(repo *mockUserRepository, revoker *mockRevoker, revokeOnLogout bool) (*authService, *service.TokenGenerator) {
	tg := service.NewTokenGenerator("test-secret", time.Hour)
	var r TokenRevoker
	if revoker != nil {
		r = revoker
	}
	return NewAuthService(repo, r, tg, zap.NewNop(), revokeOnLogout), tg
}

func TestAuthService_Signup(t *testing.T) {
	tests := []struct {
		name          string
		existing      []models.User
		repoErr       error
		createErr     error
		req           models.SignupRequest
		expectedError error
		expectedRole  string
	}{
		{
			name:         "success defaults to user role",
			req:          models.SignupRequest{Name: "Ana", Email: "  Ana@Example.com ", Password: "password123"},
			expectedRole: "user",
		},
		{
			name:         "admin role requested",
			req:          models.SignupRequest{Email: "boss@example.com", Password: "password123", Role: models.RoleAdmin},
			expectedRole: "admin",
		},
		{
			name:          "duplicate email",
			existing:      []models.User{{Email: "ana@example.com"}},
			req:           models.SignupRequest{Email: "ANA@example.com", Password: "password123"},
			expectedError: ErrDuplicateEmail,
		},
		{
			name:          "duplicate entry race",
			createErr:     models.ErrDuplicateEntry,
			req:           models.SignupRequest{Email: "ana@example.com", Password: "password123"},
			expectedError: ErrDuplicateEmail,
		},
		{
			name:          "repository failure",
			repoErr:       errors.New("db down"),
			req:           models.SignupRequest{Email: "ana@example.com", Password: "password123"},
			expectedError: errors.New("db down"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockUserRepository()
			for _, u := range tt.existing {
				repo.add(u)
			}
			repo.err = tt.repoErr
			repo.createErr = tt.createErr
			svc, tg := newTestAuthService(repo, nil, false)

			req := tt.req
			token, err := svc.Signup(context.Background(), &req)

			if tt.expectedError != nil {
				require.Error(t, err)
				assert.Empty(t, token)
				if errors.Is(tt.expectedError, ErrDuplicateEmail) {
					assert.ErrorIs(t, err, ErrDuplicateEmail)
				}
				return
			}

			require.NoError(t, err)
			claims, err := tg.ValidateToken(token)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedRole, claims.Role)

			stored := repo.get(claims.ID)
			require.NotNil(t, stored)
			assert.Equal(t, normalizeEmail(tt.req.Email), stored.Email)
			assert.Equal(t, stored.Email, claims.Email)
			assert.True(t, stored.IsActive)
			assert.NotEqual(t, tt.req.Password, stored.PasswordHash)
			cost, err := bcrypt.Cost([]byte(stored.PasswordHash))
			require.NoError(t, err)
			assert.Equal(t, PasswordHashCost, cost)
		})
	}
}

func TestAuthService_Signup_Validation(t *testing.T) {
	tests := []struct {
		name            string
		req             models.SignupRequest
		expectedMessage string
	}{
		{
			name:            "missing email",
			req:             models.SignupRequest{Password: "password123"},
			expectedMessage: "email is required",
		},
		{
			name:            "malformed email",
			req:             models.SignupRequest{Email: "not-an-email", Password: "password123"},
			expectedMessage: "email must be a valid email address",
		},
		{
			name:            "short password",
			req:             models.SignupRequest{Email: "a@example.com", Password: "short"},
			expectedMessage: "password must be at least 8 characters",
		},
		{
			name:            "unknown role",
			req:             models.SignupRequest{Email: "a@example.com", Password: "password123", Role: "owner"},
			expectedMessage: "role must be one of: user admin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestAuthService(newMockUserRepository(), nil, false)

			req := tt.req
			_, err := svc.Signup(context.Background(), &req)

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.expectedMessage, validationErr.Message)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	tests := []struct {
		name          string
		repoErr       error
		activeErr     error
		req           models.LoginRequest
		expectedError error
	}{
		{
			name: "success",
			req:  models.LoginRequest{Email: "ana@example.com", Password: "password123"},
		},
		{
			name: "email is normalized",
			req:  models.LoginRequest{Email: " ANA@example.com", Password: "password123"},
		},
		{
			name:          "wrong password",
			req:           models.LoginRequest{Email: "ana@example.com", Password: "wrong-password"},
			expectedError: ErrInvalidCredentials,
		},
		{
			name:          "unknown email",
			req:           models.LoginRequest{Email: "nobody@example.com", Password: "password123"},
			expectedError: ErrInvalidCredentials,
		},
		{
			name:      "activity update failure does not block login",
			activeErr: errors.New("db hiccup"),
			req:       models.LoginRequest{Email: "ana@example.com", Password: "password123"},
		},
		{
			name:          "repository failure",
			repoErr:       errors.New("db down"),
			req:           models.LoginRequest{Email: "ana@example.com", Password: "password123"},
			expectedError: errors.New("db down"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockUserRepository()
			user := repo.add(models.User{Name: "Ana", Email: "ana@example.com", PasswordHash: string(hash), Role: models.RoleUser})
			repo.err = tt.repoErr
			repo.activeErr = tt.activeErr
			svc, tg := newTestAuthService(repo, nil, false)

			req := tt.req
			token, err := svc.Login(context.Background(), &req)

			if tt.expectedError != nil {
				require.Error(t, err)
				assert.Empty(t, token)
				if errors.Is(tt.expectedError, ErrInvalidCredentials) {
					assert.ErrorIs(t, err, ErrInvalidCredentials)
				} else {
					assert.NotErrorIs(t, err, ErrInvalidCredentials)
				}
				return
			}

			require.NoError(t, err)
			claims, err := tg.ValidateToken(token)
			require.NoError(t, err)
			assert.Equal(t, user.ID, claims.ID)
			assert.Equal(t, "ana@example.com", claims.Email)
			assert.Equal(t, "Ana", claims.Name)
			if tt.activeErr == nil {
				assert.True(t, repo.get(user.ID).IsActive)
			}
		})
	}
}

func TestAuthService_Login_SameErrorForUnknownEmailAndWrongPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := newMockUserRepository()
	repo.add(models.User{Email: "ana@example.com", PasswordHash: string(hash), Role: models.RoleUser})
	svc, _ := newTestAuthService(repo, nil, false)

	_, wrongPassword := svc.Login(context.Background(), &models.LoginRequest{Email: "ana@example.com", Password: "nope-nope"})
	_, unknownEmail := svc.Login(context.Background(), &models.LoginRequest{Email: "bob@example.com", Password: "password123"})

	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestAuthService_Login_OldTokensStayValid(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := newMockUserRepository()
	repo.add(models.User{Email: "ana@example.com", PasswordHash: string(hash), Role: models.RoleUser})
	svc, tg := newTestAuthService(repo, nil, false)

	first, err := svc.Login(context.Background(), &models.LoginRequest{Email: "ana@example.com", Password: "password123"})
	require.NoError(t, err)
	second, err := svc.Login(context.Background(), &models.LoginRequest{Email: "ana@example.com", Password: "password123"})
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	_, err = tg.ValidateToken(first)
	assert.NoError(t, err)
}

func TestAuthService_Logout(t *testing.T) {
	tests := []struct {
		name           string
		revokeOnLogout bool
		revoker        *mockRevoker
		unknownUser    bool
		repoErr        error
		expectedError  bool
		expectRevoked  bool
	}{
		{
			name:    "revocation disabled keeps token usable",
			revoker: &mockRevoker{},
		},
		{
			name:           "revocation enabled",
			revokeOnLogout: true,
			revoker:        &mockRevoker{},
			expectRevoked:  true,
		},
		{
			name:           "revocation store failure",
			revokeOnLogout: true,
			revoker:        &mockRevoker{err: errors.New("redis down")},
			expectedError:  true,
		},
		{
			name:        "unknown user still succeeds",
			unknownUser: true,
		},
		{
			name:           "unknown user revocation rejected by store",
			revokeOnLogout: true,
			unknownUser:    true,
			revoker:        &mockRevoker{err: errors.New("foreign key constraint fails")},
			expectedError:  true,
		},
		{
			name:          "repository failure",
			repoErr:       errors.New("db down"),
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockUserRepository()
			user := repo.add(models.User{Email: "ana@example.com", Role: models.RoleUser, IsActive: true})
			svc, tg := newTestAuthService(repo, tt.revoker, tt.revokeOnLogout)

			userID := user.ID
			if tt.unknownUser {
				userID = 999
			}
			token, err := tg.GenerateToken(userID, "ana@example.com", "", "user")
			require.NoError(t, err)
			claims, err := tg.ValidateToken(token)
			require.NoError(t, err)

			repo.err = tt.repoErr
			err = svc.Logout(context.Background(), claims)

			if tt.expectedError {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			repo.err = nil
			if !tt.unknownUser {
				assert.False(t, repo.get(user.ID).IsActive)
			}
			if tt.revoker != nil {
				_, revoked := tt.revoker.revoked[claims.RegisteredClaims.ID]
				assert.Equal(t, tt.expectRevoked, revoked)
				if revoked {
					assert.WithinDuration(t, claims.ExpiresAt.Time, tt.revoker.revoked[claims.RegisteredClaims.ID], time.Second)
				}
			}
		})
	}
}
