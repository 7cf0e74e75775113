package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/dealerreferral/backend/docs"
	"github.com/dealerreferral/backend/internal/auth/service"
	"github.com/dealerreferral/backend/internal/config"
	"github.com/dealerreferral/backend/internal/logger"
	"github.com/dealerreferral/backend/internal/repositories"
	"github.com/dealerreferral/backend/internal/server"
	"github.com/dealerreferral/backend/internal/services"
	"github.com/dealerreferral/backend/internal/sweeper"
	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// revocationStore is satisfied by both the MySQL and the Redis backend
type revocationStore interface {
	Revoke(ctx context.Context, tokenID string, userID int, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	DeleteExpired(ctx context.Context, before time.Time) (int, error)
}

// @title Dealer Referral API
// @version 1.0
// @description Session and referral API for the dealership referral app

// @contact.name API Support

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()

	logger.Logger.Info("Starting Dealer Referral API",
		zap.String("revocation_backend", cfg.Revocation.Backend),
		zap.Bool("revoke_on_logout", cfg.JWT.RevokeOnLogout),
	)

	// Connect to database
	db, err := connectDB(cfg.DSN())
	if err != nil {
		logger.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	if err := runMigrations(db); err != nil {
		logger.Logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	tokenGenerator := service.NewTokenGenerator(cfg.JWT.Secret, cfg.JWT.TokenExpiry)

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db, logger.Logger)
	referralRepo := repositories.NewReferralRepository(db, logger.Logger)

	backend := revocationBackend(cfg)
	if backend != cfg.Revocation.Backend {
		logger.Logger.Info("Token revocation disabled, not connecting to redis",
			zap.String("configured_backend", cfg.Revocation.Backend),
		)
	}

	var revocations revocationStore
	switch backend {
	case config.RevocationBackendRedis:
		redisClient, err := connectRedis(cfg)
		if err != nil {
			logger.Logger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
		revocations = repositories.NewRedisRevocationStore(redisClient)
	default:
		revocations = repositories.NewRevokedTokenRepository(db)
	}

	// Initialize services
	authService := services.NewAuthService(userRepo, revocations, tokenGenerator, logger.Logger, cfg.JWT.RevokeOnLogout)
	referralService := services.NewReferralService(referralRepo, logger.Logger)
	adminService := services.NewAdminService(userRepo, referralRepo, logger.Logger)

	opts := server.Options{
		Logger:          logger.Logger,
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		APIKey:          cfg.APIKey,
		SwaggerURL:      fmt.Sprintf("http://localhost:%d/swagger/doc.json", cfg.Server.Port),
		Tokens:          tokenGenerator,
		AuthService:     authService,
		ReferralService: referralService,
		AdminService:    adminService,
		TokenCleaner:    revocations,
		HealthChecker:   db,
	}
	// Leave the interface nil rather than holding a store nobody writes to
	if cfg.JWT.RevokeOnLogout {
		opts.Revocations = revocations
	}

	// Redis expires revoked ids itself
	if backend == config.RevocationBackendMySQL {
		revocationSweeper, err := sweeper.NewSweeper(revocations, logger.Logger, cfg.Revocation.SweepSchedule)
		if err != nil {
			logger.Logger.Fatal("Failed to create revocation sweeper", zap.Error(err))
		}
		revocationSweeper.Start()
		defer revocationSweeper.Stop()
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.NewRouter(opts),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Logger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Logger.Info("Server exited")
}

// connectDB connects to the database
func connectDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// revocationBackend returns the store actually used for revocations.
// Without revoke on logout nothing is ever written, so the MySQL table
// (always present through migrations) serves the cleaning endpoint and Redis is never dialed.
func revocationBackend(cfg *config.Config) string {
	if !cfg.JWT.RevokeOnLogout {
		return config.RevocationBackendMySQL
	}
	return cfg.Revocation.Backend
}

// connectRedis opens the client used by the redis revocation backend
func connectRedis(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.RedisAddr(), err)
	}

	return client, nil
}

// runMigrations runs database migrations
func runMigrations(db *sql.DB) error {
	driver, err := mysql.WithInstance(db, &mysql.Config{
		MigrationsTable: "schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Binaries started from cmd/api find the folder two levels up
	migrationPath := "file://migrations"
	if _, err := os.Stat("migrations"); os.IsNotExist(err) {
		if _, err := os.Stat("../../migrations"); err == nil {
			migrationPath = "file://../../migrations"
		}
	}

	m, err := migrate.NewWithDatabaseInstance(migrationPath, "mysql", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
