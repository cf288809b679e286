package db

import (
	"fmt"
	"time"

	"teamflow/internal/config"
	"teamflow/internal/domain/model"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect はDBに接続して *gorm.DB を返す。
// DB_DRIVER=sqlite ならファイル/メモリのSQLite（ローカル確認用）。
func Connect(cfg config.Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	var (
		gormDB *gorm.DB
		err    error
	)
	switch cfg.DBDriver {
	case "sqlite":
		gormDB, err = gorm.Open(sqlite.Open(cfg.DatabaseURL), gcfg)
	case "postgres":
		gormDB, err = gorm.Open(postgres.Open(cfg.DatabaseURL), gcfg)
	default:
		return nil, fmt.Errorf("unsupported db driver: %s", cfg.DBDriver)
	}
	if err != nil {
		return nil, err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, err
	}
	if cfg.DBDriver == "sqlite" {
		// :memory: は接続ごとに別DBになるので1本に絞る
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return gormDB, nil
}

// テーブル定義をモデルに合わせる
func AutoMigrate(gormDB *gorm.DB) error {
	return gormDB.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Epic{},
		&model.Task{},
		&model.TaskComment{},
		&model.TaskAttachment{},
		&model.AuditLog{},
	)
}

// Close はコネクションプールを閉じる
func Close(gormDB *gorm.DB) error {
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
