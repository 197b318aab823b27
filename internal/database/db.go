package database

import (
	"khomypham-backend/internal/config"
	"khomypham-backend/internal/logging"
	"khomypham-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}
	if cfg.LogLevel == "debug" {
		gormCfg.Logger = logger.Default.LogMode(logger.Info)
	}

	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), gormCfg)
	if err != nil {
		logging.L.Fatal("Không kết nối được cơ sở dữ liệu", zap.Error(err))
	}

	if err := Migrate(DB); err != nil {
		logging.L.Fatal("AutoMigrate lỗi", zap.Error(err))
	}

	logging.L.Info("Kết nối cơ sở dữ liệu thành công. Migration hoàn tất.")
}

// Migrate creates or updates every table the service uses.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.Batch{},
		&models.ImportOrder{},
		&models.ImportItem{},
		&models.ExportOrder{},
		&models.ExportItem{},
		&models.AuditLog{},
	)
}
