// Package testutil holds helpers shared by package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/repository"
)

// NewDB opens a migrated SQLite database that lives in the test's
// temporary directory.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	cfg := &config.DatabaseConfig{
		Driver: repository.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "storefront.db"),
	}
	db, err := repository.NewDatabase(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}
