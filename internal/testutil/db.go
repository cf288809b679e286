package testutil

import (
	"testing"

	"teamflow/internal/config"
	"teamflow/internal/infra/db"

	"gorm.io/gorm"
)

// NewTestDB はテスト毎に独立したインメモリSQLiteを作り、マイグレーション済みで返す。
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := config.Default()
	cfg.DBDriver = "sqlite"
	cfg.DatabaseURL = ":memory:"

	gormDB, err := db.Connect(cfg)
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close(gormDB)
	})
	return gormDB
}
