package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/account-portal/internal/config"
)

func TestOpenSQLiteAndMigrate(t *testing.T) {
	ctx := context.Background()
	cfg := config.DatabaseConfig{Driver: DriverSQLite, DSN: filepath.Join(t.TempDir(), "portal.db")}

	db, err := Open(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.Ping(ctx))
	require.NoError(t, RunMigrations(ctx, db, zap.NewNop()))
	// A second run finds nothing pending.
	require.NoError(t, RunMigrations(ctx, db, zap.NewNop()))

	assert.True(t, db.Gorm.Migrator().HasTable("users"))
	assert.True(t, db.Gorm.Migrator().HasIndex("users", "idx_users_email"))
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "oracle", DSN: "x"}, zap.NewNop())
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestNilDatabase(t *testing.T) {
	var db *Database
	assert.Error(t, db.Ping(context.Background()))
	assert.NotPanics(t, db.Close)
	assert.NoError(t, RunMigrations(context.Background(), db, zap.NewNop()))
}
