// Package repotest opens throwaway in-memory stores for tests.
package repotest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"

	"github.com/core-coin/successio/internal/repository"
	"github.com/core-coin/successio/pkg/logger"
)

// New returns a migrated store backed by a private in-memory sqlite database.
// The database is closed when the test ends.
func New(t testing.TB) *repository.GormDB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := repository.NewGormDB(sqlite.Open(dsn), logger.NewNopLogger())
	require.NoError(t, err)

	sqlDB, err := db.Conn.DB()
	require.NoError(t, err)
	// a single connection keeps the shared in-memory database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() { _ = db.Close() })
	return db
}
