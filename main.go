package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/adapters/dialect"
	_ "github.com/querypilot/querypilot-engine/pkg/adapters/dialect/mssql"
	_ "github.com/querypilot/querypilot-engine/pkg/adapters/dialect/mysql"
	_ "github.com/querypilot/querypilot-engine/pkg/adapters/dialect/oracle"
	_ "github.com/querypilot/querypilot-engine/pkg/adapters/dialect/postgres"
	"github.com/querypilot/querypilot-engine/pkg/audit"
	"github.com/querypilot/querypilot-engine/pkg/config"
	"github.com/querypilot/querypilot-engine/pkg/crypto"
	"github.com/querypilot/querypilot-engine/pkg/database"
	"github.com/querypilot/querypilot-engine/pkg/handlers"
	"github.com/querypilot/querypilot-engine/pkg/llm"
	"github.com/querypilot/querypilot-engine/pkg/middleware"
	"github.com/querypilot/querypilot-engine/pkg/repositories"
	"github.com/querypilot/querypilot-engine/pkg/services"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Engine exited with error", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("database", cfg.Database.Host),
		zap.Bool("llm_available", cfg.LLM.IsAvailable()),
		zap.Bool("credentials_encrypted", cfg.CredentialsKey != ""))

	// Admin metadata pool.
	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
		MinConnections: cfg.Database.MinConnections,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	// golang-migrate wants a database/sql handle.
	migrationDB := stdlib.OpenDBFromPool(db.Pool)
	if err := database.RunMigrations(migrationDB, cfg.MigrationsPath, logger); err != nil {
		_ = migrationDB.Close()
		return err
	}
	_ = migrationDB.Close()

	// Optional at-rest encryption for credential bundles.
	var cipher *crypto.CredentialCipher
	if cfg.CredentialsKey != "" {
		cipher, err = crypto.NewCredentialCipher(cfg.CredentialsKey)
		if err != nil {
			return err
		}
	}

	connMgr := dialect.NewConnectionManager(dialect.ConnectionManagerConfig{
		TTLMinutes:            cfg.Datasource.ConnectionTTLMinutes,
		MaxPoolsPerOrg:        cfg.Datasource.MaxPoolsPerOrg,
		PoolMaxConns:          int32(cfg.Datasource.PoolMaxConns),
		PoolMinConns:          int32(cfg.Datasource.PoolMinConns),
		ConnectTimeoutSeconds: cfg.Datasource.ConnectTimeoutSeconds,
	}, logger)
	defer connMgr.Close()

	adapters := dialect.NewAdapterFactory(connMgr)

	// Repositories over the admin pool.
	orgRepo := repositories.NewOrgRepository(db)
	schemaCacheRepo := repositories.NewSchemaCacheRepository(db)
	queryRepo := repositories.NewQueryRepository(db)
	activityRepo := repositories.NewActivityRepository(db)
	performanceRepo := repositories.NewPerformanceRepository(db)

	// Services.
	auditor := audit.NewSecurityAuditor(logger)
	resolver := services.NewConnectionResolver(orgRepo, cipher, logger)
	schemaService := services.NewSchemaService(resolver, adapters, schemaCacheRepo, logger)
	validator := services.NewValidatorService(resolver, adapters, db, logger)
	tracker := services.NewExecutionTracker(queryRepo, activityRepo, performanceRepo, auditor, logger)
	connectionService := services.NewConnectionService(orgRepo, resolver, adapters, cipher, logger)

	var generator llm.SQLGenerator
	if cfg.LLM.IsAvailable() {
		generator = llm.NewOpenAIGenerator(llm.Config{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
		})
	} else {
		logger.Warn("No LLM endpoint configured; /query will be unavailable")
	}

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewSchemaHandler(schemaService, adapters, logger).RegisterRoutes(mux)
	handlers.NewConnectionHandler(connectionService, logger).RegisterRoutes(mux)

	if generator != nil {
		queryService := services.NewQueryService(
			schemaService, resolver, generator, validator, adapters, tracker, auditor, logger)
		handlers.NewQueryHandler(queryService, validator, queryRepo, logger).RegisterRoutes(mux)
	}

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting querypilot-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
