package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dealerreferral/backend/internal/models"
)

// mockUserRepository is an in-memory implementation of AuthUserRepository and AdminUserRepository
type mockUserRepository struct {
	mu        sync.Mutex
	users     map[int]*models.User
	nextID    int
	err       error // returned by every method when set
	createErr error
	activeErr error
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: map[int]*models.User{}, nextID: 1}
}

func (m *mockUserRepository) add(user models.User) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.ID = m.nextID
	m.nextID++
	m.users[user.ID] = &user
	return &user
}

func (m *mockUserRepository) get(id int) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

func (m *mockUserRepository) Create(ctx context.Context, user *models.User) error {
	if m.err != nil {
		return m.err
	}
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return fmt.Errorf("failed to create user: %w", models.ErrDuplicateEntry)
		}
	}
	user.ID = m.nextID
	m.nextID++
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", models.ErrNotFound)
}

func (m *mockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepository) SetActive(ctx context.Context, userID int, active bool) error {
	if m.err != nil {
		return m.err
	}
	if m.activeErr != nil {
		return m.activeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return fmt.Errorf("user not found: %w", models.ErrNotFound)
	}
	u.IsActive = active
	return nil
}

func (m *mockUserRepository) List(ctx context.Context, limit, offset int) ([]models.User, int, error) {
	if m.err != nil {
		return nil, 0, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	result := []models.User{}
	for id := offset + 1; id < m.nextID && len(result) < limit; id++ {
		if u, ok := m.users[id]; ok {
			result = append(result, *u)
		}
	}
	return result, len(m.users), nil
}

func (m *mockUserRepository) ListActive(ctx context.Context) ([]models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	result := []models.User{}
	for id := 1; id < m.nextID; id++ {
		if u, ok := m.users[id]; ok && u.IsActive {
			result = append(result, *u)
		}
	}
	return result, nil
}

func (m *mockUserRepository) UpdateRole(ctx context.Context, userID int, role models.Role) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return fmt.Errorf("user not found: %w", models.ErrNotFound)
	}
	u.Role = role
	return nil
}

// mockRevoker records revoked token ids
type mockRevoker struct {
	revoked map[string]time.Time
	err     error
}

func (m *mockRevoker) Revoke(ctx context.Context, tokenID string, userID int, expiresAt time.Time) error {
	if m.err != nil {
		return m.err
	}
	if m.revoked == nil {
		m.revoked = map[string]time.Time{}
	}
	m.revoked[tokenID] = expiresAt
	return nil
}

// mockReferralRepository is an in-memory implementation of ReferralRepository and AdminReferralRepository
type mockReferralRepository struct {
	referrals  []models.Referral
	err        error
	lastFilter *models.ReferralStatus
}

func (m *mockReferralRepository) Create(ctx context.Context, referral *models.Referral) error {
	if m.err != nil {
		return m.err
	}
	referral.ID = len(m.referrals) + 1
	referral.CreatedAt = time.Now()
	m.referrals = append(m.referrals, *referral)
	return nil
}

func (m *mockReferralRepository) CountByUser(ctx context.Context, userID int) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	count := 0
	for _, r := range m.referrals {
		if r.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (m *mockReferralRepository) ListByUser(ctx context.Context, userID int, status *models.ReferralStatus) ([]models.Referral, error) {
	m.lastFilter = status
	if m.err != nil {
		return nil, m.err
	}
	result := []models.Referral{}
	for i := len(m.referrals) - 1; i >= 0; i-- {
		r := m.referrals[i]
		if r.UserID != userID {
			continue
		}
		if status != nil && r.Status != *status {
			continue
		}
		result = append(result, r)
	}
	return result, nil
}

func (m *mockReferralRepository) UpdateStatus(ctx context.Context, id int, status models.ReferralStatus) error {
	if m.err != nil {
		return m.err
	}
	for i := range m.referrals {
		if m.referrals[i].ID == id {
			m.referrals[i].Status = status
			return nil
		}
	}
	return fmt.Errorf("referral not found: %w", models.ErrNotFound)
}

func (m *mockReferralRepository) List(ctx context.Context, limit, offset int) ([]models.Referral, int, error) {
	if m.err != nil {
		return nil, 0, m.err
	}
	result := []models.Referral{}
	for i := offset; i < len(m.referrals) && len(result) < limit; i++ {
		result = append(result, m.referrals[i])
	}
	return result, len(m.referrals), nil
}
