package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dealerreferral/backend/internal/auth/service"
	"github.com/dealerreferral/backend/internal/models"
	"go.uber.org/zap"
)

// DefaultTimeout bounds every API call
const DefaultTimeout = 10 * time.Second

var (
	// ErrNetwork is returned when the server could not be reached or did not answer in time
	ErrNetwork = errors.New("network error")
	// ErrSessionExpired means the server rejected the token as expired; the user has to log in again
	ErrSessionExpired = errors.New("session expired, please log in again")
)

// APIError is a non-2xx answer from the server
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// APIClient calls the referral API on behalf of the stored session. Requests are never retried.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
	session    *Session
	logger     *zap.Logger
}

// NewAPIClient creates a client for baseURL. A non-positive timeout uses DefaultTimeout.
func NewAPIClient(baseURL string, session *Session, timeout time.Duration, logger *zap.Logger) *APIClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		session:    session,
		logger:     logger,
	}
}

// Session returns the session the client attaches to requests
func (c *APIClient) Session() *Session {
	return c.session
}

// Signup creates an account and stores the returned token
func (c *APIClient) Signup(ctx context.Context, req *models.SignupRequest) error {
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/signup", req, &resp); err != nil {
		return err
	}
	return c.session.StoreToken(ctx, resp.Token)
}

// Login exchanges credentials for a token and stores it
func (c *APIClient) Login(ctx context.Context, email, password string) error {
	var resp struct {
		Token string `json:"token"`
	}
	req := &models.LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/login", req, &resp); err != nil {
		return err
	}
	return c.session.StoreToken(ctx, resp.Token)
}

// Logout tells the server and clears the local session even if the call fails
func (c *APIClient) Logout(ctx context.Context) error {
	callErr := c.do(ctx, http.MethodPost, "/logout", nil, nil)
	if err := c.session.ClearSession(ctx); err != nil {
		return err
	}
	if errors.Is(callErr, ErrSessionExpired) {
		return nil
	}
	return callErr
}

// Me returns the identity the server decoded from the token
func (c *APIClient) Me(ctx context.Context) (*service.Claims, error) {
	var resp struct {
		User *service.Claims `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/protected", nil, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// CreateReferral submits a referral and returns its id
func (c *APIClient) CreateReferral(ctx context.Context, req *models.CreateReferralRequest) (int, error) {
	var resp struct {
		ReferralID int `json:"referralId"`
	}
	if err := c.do(ctx, http.MethodPost, "/referrals", req, &resp); err != nil {
		return 0, err
	}
	return resp.ReferralID, nil
}

// ReferralCount returns how many referrals the logged in user has submitted
func (c *APIClient) ReferralCount(ctx context.Context) (int, error) {
	var resp struct {
		TotalReferrals int `json:"totalReferrals"`
	}
	if err := c.do(ctx, http.MethodGet, "/referrals/count", nil, &resp); err != nil {
		return 0, err
	}
	return resp.TotalReferrals, nil
}

// ListReferrals returns the logged in user's referrals, optionally filtered by status
func (c *APIClient) ListReferrals(ctx context.Context, status string) ([]models.Referral, error) {
	path := "/referrals"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}

	var resp struct {
		Referrals []models.Referral `json:"referrals"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Referrals, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := c.session.Attach(ctx, req); err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("request completed", zap.String("method", method), zap.String("path", path), zap.Int("status", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.errorFromResponse(ctx, resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *APIClient) errorFromResponse(ctx context.Context, resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	message := http.StatusText(resp.StatusCode)
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error != "" {
		message = payload.Error
	}

	if resp.StatusCode == http.StatusUnauthorized && message == service.ErrTokenExpired.Error() {
		if err := c.session.ClearSession(ctx); err != nil {
			c.logger.Warn("failed to clear expired session", zap.Error(err))
		}
		return ErrSessionExpired
	}

	return &APIError{Status: resp.StatusCode, Message: message}
}
