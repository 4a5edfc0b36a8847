package database

import (
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// Migrate applies pending catalog schema migrations from dir. Safe to
// run at every startup: an up-to-date database is a no-op.
func Migrate(db *sql.DB, dir string, logger *zap.Logger) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warn("Failed to close migrator",
				zap.NamedError("source_err", srcErr),
				zap.NamedError("db_err", dbErr))
		}
	}()

	switch err := m.Up(); err {
	case nil:
	case migrate.ErrNoChange:
		logger.Info("Catalog schema up to date")
		return nil
	default:
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	logger.Info("Catalog schema migrated",
		zap.Uint("version", version),
		zap.Bool("dirty", dirty))
	return nil
}
