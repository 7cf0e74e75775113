//go:build integration

package server_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/dealerreferral/backend/internal/auth/service"
	"github.com/dealerreferral/backend/internal/config"
	"github.com/dealerreferral/backend/internal/repositories"
	"github.com/dealerreferral/backend/internal/server"
	"github.com/dealerreferral/backend/internal/services"
	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	testDB     *sql.DB
	testConfig *config.Config
	testRouter http.Handler
)

// TestMain migrates the test database and builds the router against it
func TestMain(m *testing.M) {
	cfg, err := config.LoadTestConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to load test config: %v", err))
	}
	testConfig = cfg
	if cfg.DSN() == "" {
		fmt.Println("TEST_DB_* not set, skipping integration tests")
		os.Exit(0)
	}

	testDB, err = sql.Open("mysql", cfg.DSN()+"&multiStatements=true")
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to test database: %v", err))
	}
	if err = testDB.Ping(); err != nil {
		panic(fmt.Sprintf("Failed to ping test database: %v", err))
	}

	driver, err := mysql.WithInstance(testDB, &mysql.Config{MigrationsTable: "schema_migrations"})
	if err != nil {
		panic(fmt.Sprintf("Failed to create migration driver: %v", err))
	}
	mig, err := migrate.NewWithDatabaseInstance("file://../../migrations", "mysql", driver)
	if err != nil {
		panic(fmt.Sprintf("Failed to create migrate instance: %v", err))
	}
	if err := mig.Up(); err != nil && err != migrate.ErrNoChange {
		panic(fmt.Sprintf("Failed to run migrations: %v", err))
	}

	testRouter = newRouter(repositories.NewRevokedTokenRepository(testDB))

	code := m.Run()

	testDB.Close()
	os.Exit(code)
}

// revocationStore is implemented by both revocation backends
type revocationStore interface {
	services.TokenRevoker
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	DeleteExpired(ctx context.Context, before time.Time) (int, error)
}

// newRouter wires the real repositories with revoke on logout enabled
func newRouter(revocations revocationStore) http.Handler {
	logger := zap.NewNop()
	tokens := service.NewTokenGenerator(testConfig.JWT.Secret, testConfig.JWT.TokenExpiry)
	userRepo := repositories.NewUserRepository(testDB, logger)
	referralRepo := repositories.NewReferralRepository(testDB, logger)

	return server.NewRouter(server.Options{
		Logger:          logger,
		AllowedOrigins:  []string{"*"},
		APIKey:          testConfig.APIKey,
		Tokens:          tokens,
		Revocations:     revocations,
		AuthService:     services.NewAuthService(userRepo, revocations, tokens, logger, true),
		ReferralService: services.NewReferralService(referralRepo, logger),
		AdminService:    services.NewAdminService(userRepo, referralRepo, logger),
		TokenCleaner:    revocations,
		HealthChecker:   testDB,
	})
}

// cleanupTestData removes all rows, children first
func cleanupTestData(t *testing.T) {
	t.Helper()
	for _, table := range []string{"revoked_tokens", "referrals", "users"} {
		_, err := testDB.Exec("DELETE FROM " + table)
		require.NoError(t, err, "Failed to clear %s", table)
	}
}

func doJSON(t *testing.T, method, path string, body any, token string) (int, map[string]any) {
	t.Helper()
	return doJSONWith(t, testRouter, method, path, body, token)
}

func doJSONWith(t *testing.T, router http.Handler, method, path string, body any, token string) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var out map[string]any
	_ = json.NewDecoder(w.Body).Decode(&out)
	return w.Code, out
}

func TestIntegration_SessionAndReferrals(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	cleanupTestData(t)
	t.Cleanup(func() { cleanupTestData(t) })

	status, body := doJSON(t, http.MethodPost, "/signup", map[string]string{
		"name": "Dana", "email": "dana@example.com", "password": "password123",
	}, "")
	require.Equal(t, http.StatusCreated, status, body)

	status, body = doJSON(t, http.MethodPost, "/signup", map[string]string{
		"email": "DANA@example.com", "password": "password123",
	}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "user with this email already exists", body["error"])

	status, body = doJSON(t, http.MethodPost, "/login", map[string]string{
		"email": "dana@example.com", "password": "password123",
	}, "")
	require.Equal(t, http.StatusOK, status, body)
	token := body["token"].(string)

	for i := 0; i < 2; i++ {
		status, body = doJSON(t, http.MethodPost, "/referrals", map[string]string{
			"firstName": "Sam", "lastName": "Lee", "phoneNumber": "555-0100", "vehicleStatus": "used",
		}, token)
		require.Equal(t, http.StatusCreated, status, body)
	}

	status, body = doJSON(t, http.MethodGet, "/referrals/count", nil, token)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, body["totalReferrals"])

	status, body = doJSON(t, http.MethodGet, "/referrals?status=Pending", nil, token)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["referrals"], 2)

	status, _ = doJSON(t, http.MethodPost, "/logout", nil, token)
	require.Equal(t, http.StatusOK, status)

	status, body = doJSON(t, http.MethodGet, "/referrals/count", nil, token)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid token", body["error"])
}

func TestIntegration_Health(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}

	status, body := doJSON(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestIntegration_RedisRevocationOnLogout(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	if testConfig.Redis.Host == "" {
		t.Skip("TEST_REDIS_HOST not set")
	}
	cleanupTestData(t)
	t.Cleanup(func() { cleanupTestData(t) })

	ctx := context.Background()
	redisClient := redis.NewClient(&redis.Options{
		Addr:     testConfig.RedisAddr(),
		Password: testConfig.Redis.Password,
		DB:       testConfig.Redis.DB,
	})
	t.Cleanup(func() { redisClient.Close() })
	require.NoError(t, redisClient.Ping(ctx).Err())

	router := newRouter(repositories.NewRedisRevocationStore(redisClient))

	status, body := doJSONWith(t, router, http.MethodPost, "/signup", map[string]string{
		"email": "redis@example.com", "password": "password123",
	}, "")
	require.Equal(t, http.StatusCreated, status, body)
	token := body["token"].(string)

	claims, err := service.ParseUnverified(token)
	require.NoError(t, err)
	key := "revoked_token:" + claims.RegisteredClaims.ID
	t.Cleanup(func() { redisClient.Del(ctx, key) })

	status, _ = doJSONWith(t, router, http.MethodGet, "/referrals/count", nil, token)
	require.Equal(t, http.StatusOK, status)

	status, _ = doJSONWith(t, router, http.MethodPost, "/logout", nil, token)
	require.Equal(t, http.StatusOK, status)

	ttl, err := redisClient.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0), "revoked key should exist with a TTL")
	assert.LessOrEqual(t, ttl, testConfig.JWT.TokenExpiry)

	status, body = doJSONWith(t, router, http.MethodGet, "/referrals/count", nil, token)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid token", body["error"])
}
