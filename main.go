package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"go.uber.org/zap"

	"github.com/sqless-io/sqless-engine/pkg/config"
	"github.com/sqless-io/sqless-engine/pkg/database"
	"github.com/sqless-io/sqless-engine/pkg/handlers"
	"github.com/sqless-io/sqless-engine/pkg/logging"
	"github.com/sqless-io/sqless-engine/pkg/middleware"
	"github.com/sqless-io/sqless-engine/pkg/repositories"
	"github.com/sqless-io/sqless-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.String("catalog_backend", cfg.Catalog.Backend),
		zap.Float64("high_conf_threshold", cfg.Engine.HighConfThreshold),
		zap.Float64("clarifying_threshold", cfg.Engine.ClarifyingThreshold))

	ctx := context.Background()

	catalog, cleanup, err := buildCatalog(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize catalog", zap.Error(err))
	}
	defer cleanup()

	if cfg.Catalog.Seed {
		if err := repositories.SeedDefaultSpecs(ctx, catalog); err != nil {
			logger.Fatal("Failed to seed catalog", zap.Error(err))
		}
	}

	svc := services.NewResolutionService(
		catalog,
		services.NewIntentParser(),
		services.NewCandidateRetriever(catalog, cfg.Engine.TopK),
		services.NewConflictDetector(),
		services.NewConfidenceGate(cfg.Engine.HighConfThreshold, cfg.Engine.ClarifyingThreshold, cfg.Engine.ScoreMargin),
		services.NewClarificationEngine(cfg.Engine.MaxQuestions),
		services.NewExpertRouter(cfg.Engine.Reviewers),
		logger,
	)
	registry := repositories.NewMemorySessionRegistry()
	payloads := handlers.NewPayloadBuilder(svc, cfg.Engine.ClarifyingThreshold)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewSessionHandler(svc, registry, payloads, logger).RegisterRoutes(mux)
	handlers.NewCatalogHandler(catalog, payloads, logger).RegisterRoutes(mux)

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting sqless-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

// buildCatalog constructs the configured catalog backend. The returned
// cleanup closes the database pool for the postgres backend and is a
// no-op for the in-memory one.
func buildCatalog(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.CatalogRepository, func(), error) {
	if cfg.Catalog.Backend != "postgres" {
		return repositories.NewMemoryCatalogRepository(), func() {}, nil
	}

	logger.Info("Connecting to catalog database",
		zap.String("url", logging.SanitizeConnectionString(cfg.Database.URL())))

	db, err := database.NewPool(ctx, &database.Config{
		URL:            cfg.Database.URL(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		return nil, nil, err
	}

	// golang-migrate needs a database/sql handle
	sqlDB, err := sql.Open("pgx", cfg.Database.URL())
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	defer sqlDB.Close()

	if err := database.Migrate(sqlDB, "migrations", logger); err != nil {
		db.Close()
		return nil, nil, err
	}

	return repositories.NewPostgresCatalogRepository(db), db.Close, nil
}
