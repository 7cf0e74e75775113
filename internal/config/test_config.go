package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LoadTestConfig loads the configuration for integration tests from TEST_* variables
// If the test database is not configured, an empty Config is returned and callers should skip
func LoadTestConfig() (*Config, error) {
	// .env files are optional for tests
	_ = godotenv.Load("../../.env")
	_ = godotenv.Load()

	cfg := &Config{}
	dbHost := os.Getenv("TEST_DB_HOST")
	if dbHost == "" {
		return cfg, nil
	}

	dbPortStr := os.Getenv("TEST_DB_PORT")
	if dbPortStr == "" {
		return cfg, nil
	}
	dbPort, err := strconv.Atoi(dbPortStr)
	if err != nil {
		return nil, fmt.Errorf("invalid TEST_DB_PORT: %w", err)
	}

	dbUser := os.Getenv("TEST_DB_USER")
	dbName := os.Getenv("TEST_DB_NAME")
	if dbUser == "" || dbName == "" {
		return cfg, nil
	}

	cfg.Database = DatabaseConfig{
		Host:     dbHost,
		Port:     dbPort,
		User:     dbUser,
		Password: os.Getenv("TEST_DB_PASSWORD"),
		DBName:   dbName,
	}

	cfg.JWT.Secret = os.Getenv("TEST_JWT_SECRET")
	if cfg.JWT.Secret == "" {
		cfg.JWT.Secret = "integration-test-secret"
	}

	expiryStr := os.Getenv("TEST_JWT_TOKEN_EXPIRY")
	if expiryStr == "" {
		expiryStr = "1h"
	}
	expiry, err := time.ParseDuration(expiryStr)
	if err != nil {
		return nil, fmt.Errorf("invalid TEST_JWT_TOKEN_EXPIRY: %w", err)
	}
	cfg.JWT.TokenExpiry = expiry

	// Redis is optional; tests needing it skip when TEST_REDIS_HOST is unset
	if redisHost := os.Getenv("TEST_REDIS_HOST"); redisHost != "" {
		redisPort, err := intFromEnv("TEST_REDIS_PORT", 6379)
		if err != nil {
			return nil, err
		}
		redisDB, err := intFromEnv("TEST_REDIS_DB", 0)
		if err != nil {
			return nil, err
		}
		cfg.Redis = RedisConfig{
			Host:     redisHost,
			Port:     redisPort,
			Password: os.Getenv("TEST_REDIS_PASSWORD"),
			DB:       redisDB,
		}
	}

	cfg.APIKey = os.Getenv("TEST_API_KEY")
	cfg.Revocation.Backend = RevocationBackendMySQL

	return cfg, nil
}
