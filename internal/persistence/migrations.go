package persistence

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFS embed.FS

// RunMigrations applies the embedded schema migrations for the database's dialect.
func RunMigrations(ctx context.Context, db *Database, logger *zap.Logger) error {
	if db == nil || db.SQL == nil {
		logger.Warn("no database available; skipping migrations")
		return nil
	}

	var (
		dialect goose.Dialect
		dir     string
	)
	switch db.Driver {
	case DriverPostgres:
		dialect, dir = goose.DialectPostgres, "migrations/postgres"
	case DriverSQLite:
		dialect, dir = goose.DialectSQLite3, "migrations/sqlite"
	default:
		return fmt.Errorf("no migrations for driver %q", db.Driver)
	}

	fsys, err := fs.Sub(migrationFS, dir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	// The provider is not closed: Close would close the shared *sql.DB.
	provider, err := goose.NewProvider(dialect, db.SQL, fsys)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, res := range results {
		logger.Info("applied migration", zap.String("file", res.Source.Path), zap.Duration("duration", res.Duration))
	}

	logger.Info("migrations applied", zap.Int("count", len(results)))
	return nil
}
