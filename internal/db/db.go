package db

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fluxionwatt/modbusgw/internal/config"
	"github.com/fluxionwatt/modbusgw/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open opens the sqlite database at cfg.Database.URL.
// Open 在 cfg.Database.URL 下打开 sqlite 数据库。
func Open(cfg *config.Config, errorLogger *logrus.Logger) (*gorm.DB, error) {
	if err := config.EnsureDataDir(cfg.DataPath); err != nil {
		return nil, err
	}

	path := cfg.Database.URL
	if path == "" {
		path = filepath.Join(cfg.DataPath, "app.db")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create dir %s: %w", dir, err)
		}
	}

	gormLogger := models.NewLogrusLogger(errorLogger)
	if cfg.Database.Echo {
		gormLogger.LogLevel = gormlogger.Info
	}

	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("open sqlite failed: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	// 设置连接池中空闲连接的最大数量。
	sqlDB.SetMaxIdleConns(10)
	// 设置打开数据库连接的最大数量。
	sqlDB.SetMaxOpenConns(100)
	// 设置连接可复用的最大时间。
	sqlDB.SetConnMaxLifetime(time.Hour)

	return gdb, nil
}

// SeedDefaultSettings inserts default system settings if missing.
// SeedDefaultSettings 补齐缺失的系统默认配置（不覆盖已有值）。
func SeedDefaultSettings(gdb *gorm.DB) error {
	mustJSON := func(v any) models.ScalarJSON {
		b, _ := json.Marshal(v)
		return models.ScalarJSON(b)
	}

	defaults := []models.Setting{
		{Name: "site_name", ValueType: "string", ValueJSON: mustJSON("Modbus Gateway")},
		{Name: "timezone", ValueType: "string", ValueJSON: mustJSON("UTC")},
		{Name: "log_level", ValueType: "string", ValueJSON: mustJSON("info")},
	}

	return gdb.Transaction(func(tx *gorm.DB) error {
		for _, d := range defaults {
			var existing models.Setting
			err := tx.Where("name = ?", d.Name).First(&existing).Error
			if err == nil {
				continue
			}
			if err != gorm.ErrRecordNotFound {
				return err
			}
			if err := tx.Create(&d).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
