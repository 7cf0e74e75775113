package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dealerreferral/backend/internal/models"
	"go.uber.org/zap"
)

const referralColumns = `id, user_id, first_name, last_name, phone_number, email,
		vehicle_status, vehicle_brand, vehicle_model, status, created_at`

// referralRepository implements referral data access
type referralRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReferralRepository creates a new referral repository
func NewReferralRepository(db *sql.DB, logger *zap.Logger) *referralRepository {
	return &referralRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a referral. Identical submissions create separate rows.
func (r *referralRepository) Create(ctx context.Context, referral *models.Referral) error {
	query := `
		INSERT INTO referrals (user_id, first_name, last_name, phone_number, email,
			vehicle_status, vehicle_brand, vehicle_model, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		referral.UserID,
		referral.FirstName,
		referral.LastName,
		referral.PhoneNumber,
		referral.Email,
		referral.VehicleStatus,
		referral.VehicleBrand,
		referral.VehicleModel,
		referral.Status,
	)
	if err != nil {
		r.logger.Error("failed to create referral", zap.Error(err), zap.Int("userId", referral.UserID))
		return fmt.Errorf("failed to create referral: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	referral.ID = int(id)
	return nil
}

// CountByUser counts referrals submitted by a user
func (r *referralRepository) CountByUser(ctx context.Context, userID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM referrals WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		r.logger.Error("failed to count referrals", zap.Error(err), zap.Int("userId", userID))
		return 0, fmt.Errorf("failed to count referrals: %w", err)
	}
	return count, nil
}

// ListByUser returns a user's referrals, newest first, optionally filtered by status
func (r *referralRepository) ListByUser(ctx context.Context, userID int, status *models.ReferralStatus) ([]models.Referral, error) {
	query := `SELECT ` + referralColumns + ` FROM referrals WHERE user_id = ?`
	args := []any{userID}
	if status != nil {
		query += ` AND status = ?`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	return r.queryReferrals(ctx, query, args...)
}

// List returns one page of all referrals, newest first, with the total count
func (r *referralRepository) List(ctx context.Context, limit, offset int) ([]models.Referral, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM referrals`).Scan(&total); err != nil {
		r.logger.Error("failed to count referrals", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to count referrals: %w", err)
	}

	query := `SELECT ` + referralColumns + ` FROM referrals ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	referrals, err := r.queryReferrals(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	return referrals, total, nil
}

// UpdateStatus sets a referral's status with a single unconditional UPDATE
func (r *referralRepository) UpdateStatus(ctx context.Context, id int, status models.ReferralStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE referrals SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		r.logger.Error("failed to update referral status", zap.Error(err), zap.Int("referralId", id))
		return fmt.Errorf("failed to update referral status: %w", err)
	}

	return requireAffected(result, "referral")
}

func (r *referralRepository) queryReferrals(ctx context.Context, query string, args ...any) ([]models.Referral, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to query referrals", zap.Error(err))
		return nil, fmt.Errorf("failed to query referrals: %w", err)
	}
	defer rows.Close()

	referrals := []models.Referral{}
	for rows.Next() {
		var ref models.Referral
		if err := rows.Scan(
			&ref.ID,
			&ref.UserID,
			&ref.FirstName,
			&ref.LastName,
			&ref.PhoneNumber,
			&ref.Email,
			&ref.VehicleStatus,
			&ref.VehicleBrand,
			&ref.VehicleModel,
			&ref.Status,
			&ref.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan referral: %w", err)
		}
		referrals = append(referrals, ref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate referrals: %w", err)
	}

	return referrals, nil
}
