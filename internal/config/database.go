package config

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// InitDatabase initializes the registry's bookkeeping database with GORM.
// TranslateError is required: the unique constraint on table_name is the
// concurrency guard for request creation, and the service relies on duplicate
// inserts surfacing as gorm.ErrDuplicatedKey. SingularTable keeps the model
// structs mapped onto the owned tables schema_registry and schema_audit.
func InitDatabase(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.Database.Username,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Database,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         gormLogger(cfg.Database.LogLevel),
		TranslateError: true,
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func gormLogger(level string) logger.Interface {
	switch level {
	case "debug":
		return logger.Default.LogMode(logger.Info)
	case "info":
		return logger.Default.LogMode(logger.Warn)
	case "warn":
		return logger.Default.LogMode(logger.Error)
	case "error", "silent":
		return logger.Default.LogMode(logger.Silent)
	default:
		return logger.Default.LogMode(logger.Warn)
	}
}
