package db

import (
	"tableorder/internal/config"
	"tableorder/internal/domain/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect はDBに接続して *gorm.DB を返す。
func Connect(cfg config.Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{}
	if cfg.GoEnv == "prod" {
		gcfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	return gorm.Open(postgres.Open(cfg.PostgresDSN()), gcfg)
}

// Migrate は注文まわりのテーブルを作成・更新する
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.MenuItem{},
		&model.MenuAddOn{},
		&model.DiningTable{},
		&model.RateSetting{},
		&model.Order{},
		&model.OrderItem{},
		&model.AuditLog{},
	)
}
