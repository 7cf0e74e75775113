package services

import (
	"context"
	"errors"
	"strings"

	"github.com/dealerreferral/backend/internal/models"
	"go.uber.org/zap"
)

// Pagination defaults for admin listings
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// AdminUserRepository is the interface that wraps methods for User table data access used by admin screens
type AdminUserRepository interface {
	// Method List retrieves one page of users ordered by id.
	//
	// "limit" parameter is the page size.
	// "offset" parameter is the number of users to skip.
	//
	// Returns the page together with the total number of users.
	List(ctx context.Context, limit, offset int) ([]models.User, int, error)
	// Method ListActive retrieves users whose is_active flag is set.
	//
	// If some error occurs, the error will be returned together with "nil" value.
	ListActive(ctx context.Context) ([]models.User, error)
	// Method UpdateRole changes the role of a user.
	//
	// "userID" parameter identifies the user.
	// "role" parameter is the new role.
	//
	// If user with such ID does not exist, an error wrapping models.ErrNotFound will be returned.
	UpdateRole(ctx context.Context, userID int, role models.Role) error
}

// AdminReferralRepository is the interface that wraps the referral listing used by admin screens
type AdminReferralRepository interface {
	// Method List retrieves one page of all referrals, newest first.
	//
	// "limit" parameter is the page size.
	// "offset" parameter is the number of referrals to skip.
	//
	// Returns the page together with the total number of referrals.
	List(ctx context.Context, limit, offset int) ([]models.Referral, int, error)
}

// adminService implements the admin user and referral screens
type adminService struct {
	userRepo     AdminUserRepository
	referralRepo AdminReferralRepository
	logger       *zap.Logger
}

// NewAdminService creates a new admin service
func NewAdminService(userRepo AdminUserRepository, referralRepo AdminReferralRepository, logger *zap.Logger) *adminService {
	return &adminService{
		userRepo:     userRepo,
		referralRepo: referralRepo,
		logger:       logger,
	}
}

// normalizePagination applies defaults and clamps the page size
func normalizePagination(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// ListUsers returns one page of users and the total user count
func (s *adminService) ListUsers(ctx context.Context, page, limit int) ([]models.User, int, error) {
	page, limit = normalizePagination(page, limit)
	return s.userRepo.List(ctx, limit, (page-1)*limit)
}

// ListActiveUsers returns users currently flagged as active
func (s *adminService) ListActiveUsers(ctx context.Context) ([]models.User, error) {
	return s.userRepo.ListActive(ctx)
}

// UpdateUserRole changes a user's role. Tokens already issued keep the old role until they expire.
func (s *adminService) UpdateUserRole(ctx context.Context, userID int, role string) error {
	newRole := models.Role(strings.ToLower(strings.TrimSpace(role)))
	if !newRole.IsValid() {
		return ErrInvalidRole
	}

	if err := s.userRepo.UpdateRole(ctx, userID, newRole); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	s.logger.Info("user role updated", zap.Int("userId", userID), zap.String("role", string(newRole)))
	return nil
}

// ListReferrals returns one page of all referrals and the total referral count
func (s *adminService) ListReferrals(ctx context.Context, page, limit int) ([]models.Referral, int, error) {
	page, limit = normalizePagination(page, limit)
	return s.referralRepo.List(ctx, limit, (page-1)*limit)
}
