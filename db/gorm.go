package db

import (
	"fmt"
	"time"

	"yampd/config"
	"yampd/logger"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormDB serves the bookkeeping tables (scan history). Library tables stay on
// the plain database/sql pool.
var GormDB *gorm.DB

// ConnectGormDB opens a GORM connection to the same MySQL database.
func ConnectGormDB(cfg *config.Config) (*gorm.DB, error) {
	conn, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Warn),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database with GORM: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	GormDB = conn
	logger.Info("Connected to MySQL with GORM")
	return conn, nil
}

// CloseGormDB closes the GORM connection pool.
func CloseGormDB() error {
	if GormDB == nil {
		return nil
	}
	sqlDB, err := GormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrateModels migrates the given model pointers.
func AutoMigrateModels(conn *gorm.DB, models ...interface{}) error {
	if conn == nil {
		return fmt.Errorf("GORM database not initialized")
	}
	if err := conn.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to auto migrate models: %w", err)
	}
	return nil
}
