package services

import (
	"context"
	"errors"
	"strings"

	"github.com/dealerreferral/backend/internal/models"
	"go.uber.org/zap"
)

// StatusFilterAll disables status filtering on referral lists
const StatusFilterAll = "All"

// ReferralRepository is the interface that wraps methods for Referral table data access
type ReferralRepository interface {
	// Method Create inserts a new referral into the database.
	//
	// "referral" parameter is used to create a new referral; its ID is set on success.
	//
	// If some error occurs during referral creation, the error will be returned.
	Create(ctx context.Context, referral *models.Referral) error
	// Method CountByUser counts referrals submitted by a user.
	//
	// "userID" parameter identifies the referrer.
	//
	// If some error occurs, the error will be returned together with "0" value.
	CountByUser(ctx context.Context, userID int) (int, error)
	// Method ListByUser retrieves referrals submitted by a user, newest first.
	//
	// "userID" parameter identifies the referrer.
	// "status" parameter is an optional status filter.
	//
	// If some error occurs, the error will be returned together with "nil" value.
	ListByUser(ctx context.Context, userID int, status *models.ReferralStatus) ([]models.Referral, error)
	// Method UpdateStatus sets the status of a referral.
	//
	// "id" parameter identifies the referral.
	// "status" parameter is the new status.
	//
	// If referral with such ID does not exist, an error wrapping models.ErrNotFound will be returned.
	UpdateStatus(ctx context.Context, id int, status models.ReferralStatus) error
}

// referralService implements referral submission and tracking
type referralService struct {
	repo   ReferralRepository
	logger *zap.Logger
}

// NewReferralService creates a new referral service
func NewReferralService(repo ReferralRepository, logger *zap.Logger) *referralService {
	return &referralService{
		repo:   repo,
		logger: logger,
	}
}

// Create stores a referral submitted by userID with status Pending and returns its id
func (s *referralService) Create(ctx context.Context, userID int, req *models.CreateReferralRequest) (int, error) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	req.Email = strings.TrimSpace(req.Email)
	req.VehicleStatus = strings.ToLower(strings.TrimSpace(req.VehicleStatus))
	if err := validateStruct(req); err != nil {
		return 0, err
	}

	referral := &models.Referral{
		UserID:        userID,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		PhoneNumber:   req.PhoneNumber,
		Email:         req.Email,
		VehicleStatus: req.VehicleStatus,
		VehicleBrand:  strings.TrimSpace(req.VehicleBrand),
		VehicleModel:  strings.TrimSpace(req.VehicleModel),
		Status:        models.ReferralStatusPending,
	}

	if err := s.repo.Create(ctx, referral); err != nil {
		return 0, err
	}

	s.logger.Info("referral created", zap.Int("referralId", referral.ID), zap.Int("userId", userID))
	return referral.ID, nil
}

// CountForUser returns how many referrals userID has submitted
func (s *referralService) CountForUser(ctx context.Context, userID int) (int, error) {
	return s.repo.CountByUser(ctx, userID)
}

// ListForUser returns userID's referrals. An empty filter or "All" returns every status.
func (s *referralService) ListForUser(ctx context.Context, userID int, filter string) ([]models.Referral, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" || filter == StatusFilterAll {
		return s.repo.ListByUser(ctx, userID, nil)
	}

	status := models.ReferralStatus(filter)
	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}
	return s.repo.ListByUser(ctx, userID, &status)
}

// UpdateStatus sets a referral's status. Any status may follow any other.
func (s *referralService) UpdateStatus(ctx context.Context, id int, status string) error {
	newStatus := models.ReferralStatus(strings.TrimSpace(status))
	if !newStatus.IsValid() {
		return ErrInvalidStatus
	}

	if err := s.repo.UpdateStatus(ctx, id, newStatus); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return ErrReferralNotFound
		}
		return err
	}

	s.logger.Info("referral status updated", zap.Int("referralId", id), zap.String("status", string(newStatus)))
	return nil
}
