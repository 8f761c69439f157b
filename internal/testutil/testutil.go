// Package testutil provides database and request helpers shared by package tests.
package testutil

import (
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/opticshop/optics/internal/model"
	"github.com/opticshop/optics/pkg/database"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewSQLiteDB opens a migrated in-memory database, installs it as the global
// handle and closes it when the test ends.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:optics_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a single connection keeps concurrent goroutines on the same database
	sqlDB.SetMaxOpenConns(1)

	database.SetDB(db)
	require.NoError(t, database.Migrate())

	t.Cleanup(func() {
		database.SetDB(nil)
		sqlDB.Close()
	})
	return db
}

// MockDB wraps a gorm handle backed by sqlmock
type MockDB struct {
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	SqlDB *sql.DB
}

// NewMockDB creates a sqlmock-backed gorm database and installs it as the global handle
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	database.SetDB(db)
	t.Cleanup(func() {
		database.SetDB(nil)
		mockDB.Close()
	})
	return &MockDB{DB: db, Mock: mock, SqlDB: mockDB}
}

// Seed holds the rows created by SeedTenant
type Seed struct {
	Tenant  model.Tenant
	Admin   model.Profile
	Cashier model.Profile
}

// SeedTenant creates a tenant with an admin and a cashier profile
func SeedTenant(t *testing.T, db *gorm.DB, name string) Seed {
	t.Helper()

	tenant := model.Tenant{Name: name, Slug: name, Active: true}
	require.NoError(t, db.Create(&tenant).Error)

	var adminRole, cashierRole model.Role
	require.NoError(t, db.Where("name = ?", model.RoleAdmin).First(&adminRole).Error)
	require.NoError(t, db.Where("name = ?", model.RoleCashier).First(&cashierRole).Error)

	admin := model.Profile{TenantID: &tenant.ID, RoleID: adminRole.ID, Email: "admin@" + name + ".test", FullName: "Admin", Active: true}
	require.NoError(t, admin.SetPassword("password"))
	require.NoError(t, db.Create(&admin).Error)

	cashier := model.Profile{TenantID: &tenant.ID, RoleID: cashierRole.ID, Email: "cashier@" + name + ".test", FullName: "Cashier", Active: true}
	require.NoError(t, cashier.SetPassword("password"))
	require.NoError(t, db.Create(&cashier).Error)

	return Seed{Tenant: tenant, Admin: admin, Cashier: cashier}
}
