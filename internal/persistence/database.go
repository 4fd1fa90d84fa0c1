package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/spec-kit/account-portal/internal/config"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Database bundles the ORM handle with the connections it was built on.
type Database struct {
	Driver string
	Gorm   *gorm.DB
	SQL    *sql.DB
	pool   *pgxpool.Pool
}

// Open connects to the configured driver and returns a GORM handle with
// constraint errors translated to gorm sentinels.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Database, error) {
	gormCfg := &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Discard,
	}

	switch cfg.Driver {
	case DriverPostgres:
		pool, err := NewPostgresPool(ctx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		sqlDB := stdlib.OpenDBFromPool(pool)
		db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormCfg)
		if err != nil {
			_ = sqlDB.Close()
			pool.Close()
			return nil, fmt.Errorf("open gorm postgres: %w", err)
		}
		return &Database{Driver: DriverPostgres, Gorm: db, SQL: sqlDB, pool: pool}, nil
	case DriverSQLite:
		db, err := gorm.Open(sqlite.Open(cfg.DSN), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %q: %w", cfg.DSN, err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// SQLite serializes writers; one connection avoids SQLITE_BUSY under concurrent requests.
		sqlDB.SetMaxOpenConns(1)
		logger.Info("opened sqlite database", zap.String("dsn", cfg.DSN))
		return &Database{Driver: DriverSQLite, Gorm: db, SQL: sqlDB}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Ping verifies database connectivity.
func (d *Database) Ping(ctx context.Context) error {
	if d == nil || d.SQL == nil {
		return errors.New("database not configured")
	}
	return d.SQL.PingContext(ctx)
}

// Close releases database resources.
func (d *Database) Close() {
	if d == nil {
		return
	}
	if d.SQL != nil {
		_ = d.SQL.Close()
	}
	if d.pool != nil {
		d.pool.Close()
	}
}
