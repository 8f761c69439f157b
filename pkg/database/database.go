package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/opticshop/optics/internal/model"
	"github.com/opticshop/optics/pkg/config"
	"github.com/opticshop/optics/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB is the global database instance
var DB *gorm.DB

// InitDB opens the PostgreSQL connection and applies the pool settings
func InitDB(dbConfig *config.DBConfig) (*gorm.DB, error) {
	pgConfig := postgres.Config{
		DSN:                  dbConfig.GetDSN(),
		PreferSimpleProtocol: true,
	}

	db, err := gorm.Open(postgres.New(pgConfig), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(dbConfig.LogLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database object: %w", err)
	}

	sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConns)
	sqlDB.SetMaxOpenConns(dbConfig.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	DB = db
	logger.GetLogger().Info("Database connected",
		zap.String("db_host", dbConfig.Host),
		zap.String("db_name", dbConfig.DBName))

	return DB, nil
}

// Migrate creates or updates every table and seeds the built-in roles
func Migrate() error {
	if DB == nil {
		return errors.New("database is not initialized")
	}

	if err := DB.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	return SeedRoles(DB)
}

// SeedRoles inserts the default roles that are not present yet
func SeedRoles(db *gorm.DB) error {
	for _, role := range model.DefaultRoles {
		r := role
		if err := db.Where(model.Role{Name: r.Name}).FirstOrCreate(&r).Error; err != nil {
			return fmt.Errorf("failed to seed role %s: %w", r.Name, err)
		}
	}
	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}

// SetDB replaces the global database instance
func SetDB(db *gorm.DB) {
	DB = db
}

// Ping checks that the database answers within the context deadline
func Ping(ctx context.Context) error {
	if DB == nil {
		return errors.New("database is not initialized")
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
