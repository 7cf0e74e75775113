package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// revokedTokenRepository keeps ids of tokens revoked before their expiry
type revokedTokenRepository struct {
	db *sql.DB
}

// NewRevokedTokenRepository creates a new revoked token repository
func NewRevokedTokenRepository(db *sql.DB) *revokedTokenRepository {
	return &revokedTokenRepository{
		db: db,
	}
}

// Revoke records a token id until expiresAt. Revoking the same id twice is a no-op;
// any other failure, such as a user_id with no matching user, is returned.
func (r *revokedTokenRepository) Revoke(ctx context.Context, tokenID string, userID int, expiresAt time.Time) error {
	query := `
		INSERT INTO revoked_tokens (jti, user_id, expires_at)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE jti = jti
	`

	if _, err := r.db.ExecContext(ctx, query, tokenID, userID, expiresAt); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	return nil
}

// IsRevoked reports whether a token id is on the revocation list
func (r *revokedTokenRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM revoked_tokens WHERE jti = ?)`

	var revoked bool
	if err := r.db.QueryRowContext(ctx, query, tokenID).Scan(&revoked); err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}

	return revoked, nil
}

// DeleteExpired removes entries whose token expired at or before the given time.
// Those tokens fail signature validation on their own, so the entries are dead weight.
func (r *revokedTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at <= ?`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired revocations: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rowsAffected), nil
}
