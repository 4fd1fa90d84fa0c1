package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/spec-kit/account-portal/internal/config"
	"github.com/spec-kit/account-portal/internal/domain"
	"github.com/spec-kit/account-portal/internal/persistence"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()
	db, err := persistence.Open(ctx, config.DatabaseConfig{
		Driver: persistence.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "users.db"),
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, persistence.RunMigrations(ctx, db, zap.NewNop()))
	return db.Gorm
}

func countUsers(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&domain.User{}).Count(&n).Error)
	return n
}

func TestCreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))

	created, err := repo.Create(ctx, "ada@example.com", "Ada", "digest")
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	byEmail, err := repo.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, created.ID, byEmail.ID)
	assert.Equal(t, "Ada", byEmail.Name)
	assert.Equal(t, "digest", byEmail.Password)

	byID, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "ada@example.com", byID.Email)
}

func TestFindAbsent(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))

	user, err := repo.FindByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, user)

	user, err = repo.FindByID(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestEmailMatchIsExact(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))

	_, err := repo.Create(ctx, "ada@example.com", "Ada", "digest")
	require.NoError(t, err)

	user, err := repo.FindByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestCreateDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewUserRepository(db)

	_, err := repo.Create(ctx, "ada@example.com", "Ada", "digest")
	require.NoError(t, err)

	_, err = repo.Create(ctx, "ada@example.com", "Impostor", "other")
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.Equal(t, int64(1), countUsers(t, db))

	user, err := repo.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name)
}

func TestConcurrentCreateSameEmail(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewUserRepository(db)

	const workers = 8
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		successes  int
		duplicates int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Create(ctx, "race@example.com", "Racer", "digest")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case assert.ErrorIs(t, err, ErrDuplicateEmail):
				duplicates++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, duplicates)
	assert.Equal(t, int64(1), countUsers(t, db))
}

func TestIDsAreNotReused(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))

	first, err := repo.Create(ctx, "a@example.com", "A", "d")
	require.NoError(t, err)
	_, err = repo.Create(ctx, "a@example.com", "A", "d")
	require.ErrorIs(t, err, ErrDuplicateEmail)
	second, err := repo.Create(ctx, "b@example.com", "B", "d")
	require.NoError(t, err)

	assert.Greater(t, second.ID, first.ID)
}
