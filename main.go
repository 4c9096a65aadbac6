package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dialdesk-ai/dialdesk-admin/pkg/audit"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/auth"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/config"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/crypto"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/database"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/handlers"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/logging"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/middleware"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/repositories"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/services"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/tenantdb"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	// Migrations run through database/sql; the pool below uses pgx directly.
	migrationDB, err := sql.Open("pgx", cfg.Database.URL())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(migrationDB, cfg.Database.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = migrationDB.Close()

	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to configuration store", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := database.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Warn("Redis unavailable, continuing without schema cache", zap.Error(err))
		redisClient = nil
	}

	secret, source := cfg.ResolveEncryptionSecret()
	if source == "dev-fallback" {
		logger.Warn("SECURITY: no usable encryption secret configured, falling back to the built-in development secret. " +
			"Credentials encrypted under it are not protected. Set CREDENTIALS_ENCRYPTION_KEY (32+ chars).")
	} else {
		logger.Info("Credential encryption secret resolved", zap.String("source", source))
	}
	cipher, err := crypto.NewCipher(secret, logger)
	if err != nil {
		logger.Fatal("Failed to initialize credential cipher", zap.Error(err))
	}

	databaseRepo := repositories.NewProductDatabaseRepository(db)
	activityRepo := repositories.NewActivityLogRepository(db)
	productRepo := repositories.NewProductRepository(db)

	manager := tenantdb.NewManager(databaseRepo, cipher, cfg.Discovery, logger)
	auditor := audit.NewActivityAuditor(activityRepo, logger)

	tablesTTL := time.Duration(cfg.Redis.TablesTTLSeconds) * time.Second
	databaseService := services.NewProductDatabaseService(
		databaseRepo, activityRepo, cipher, manager, auditor, redisClient, tablesTTL, logger)

	authMiddleware := auth.NewMiddleware(cfg.Auth.JWTSecret, logger)
	if !cfg.Auth.EnableVerification {
		logger.Warn("Auth verification is DISABLED; all API requests are anonymous")
		authMiddleware.AllowAnonymous()
	}

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewProductsHandler(productRepo, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewProductDatabasesHandler(databaseService, logger).RegisterRoutes(mux, authMiddleware)
	mux.Handle("GET /metrics", promhttp.Handler())

	handler := middleware.RequestLogger(logger)(middleware.Metrics()(mux))

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting dialdesk-admin",
		zap.String("addr", addr),
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
