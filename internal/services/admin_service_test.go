package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/dealerreferral/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNormalizePagination(t *testing.T) {
	tests := []struct {
		page, limit         int
		wantPage, wantLimit int
	}{
		{page: 0, limit: 0, wantPage: 1, wantLimit: 10},
		{page: -3, limit: 5, wantPage: 1, wantLimit: 5},
		{page: 2, limit: 500, wantPage: 2, wantLimit: 100},
		{page: 4, limit: 25, wantPage: 4, wantLimit: 25},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.page, tt.limit), func(t *testing.T) {
			page, limit := normalizePagination(tt.page, tt.limit)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantLimit, limit)
		})
	}
}

func TestAdminService_ListUsers(t *testing.T) {
	users := newMockUserRepository()
	for i := 0; i < 15; i++ {
		users.add(models.User{Email: fmt.Sprintf("u%d@example.com", i), Role: models.RoleUser, IsActive: i%3 == 0})
	}
	svc := NewAdminService(users, &mockReferralRepository{}, zap.NewNop())

	page, total, err := svc.ListUsers(context.Background(), 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 15, total)
	require.Len(t, page, 5)
	assert.Equal(t, 11, page[0].ID)

	active, err := svc.ListActiveUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, active, 5)
	for _, u := range active {
		assert.True(t, u.IsActive)
	}
}

func TestAdminService_UpdateUserRole(t *testing.T) {
	tests := []struct {
		name          string
		userID        int
		role          string
		expectedError error
	}{
		{name: "promote", userID: 1, role: "admin"},
		{name: "case insensitive", userID: 1, role: " Admin "},
		{name: "invalid role", userID: 1, role: "owner", expectedError: ErrInvalidRole},
		{name: "unknown user", userID: 42, role: "admin", expectedError: ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := newMockUserRepository()
			users.add(models.User{Email: "a@example.com", Role: models.RoleUser})
			svc := NewAdminService(users, &mockReferralRepository{}, zap.NewNop())

			err := svc.UpdateUserRole(context.Background(), tt.userID, tt.role)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.RoleAdmin, users.get(1).Role)
		})
	}
}

func TestAdminService_ListReferrals(t *testing.T) {
	refs := &mockReferralRepository{}
	for i := 0; i < 3; i++ {
		require.NoError(t, refs.Create(context.Background(), &models.Referral{UserID: i + 1}))
	}
	svc := NewAdminService(newMockUserRepository(), refs, zap.NewNop())

	page, total, err := svc.ListReferrals(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, page, 3)
}
