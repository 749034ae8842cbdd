// Package dbtest opens throwaway in-memory SQLite databases carrying the full
// schema for repository tests.
package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pasabuy/pasabuy-backend/pkg/db"
	"github.com/pasabuy/pasabuy-backend/pkg/db/models"
	"github.com/pasabuy/pasabuy-backend/pkg/enums"
)

// Open returns a migrated connection private to t.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_busy_timeout=5000"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err == nil {
		t.Cleanup(func() { _ = sqlDB.Close() })
	}
	return conn
}

// Client wraps Open in the application's db client.
func Client(t testing.TB) *db.Client {
	t.Helper()
	return db.NewFromGorm(Open(t))
}

// CreateUser inserts a user with the given role and display name.
func CreateUser(t testing.TB, conn *gorm.DB, role enums.UserRole, name string) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.New(),
		Email:        uuid.NewString() + "@pasabuy.test",
		PasswordHash: "hash",
		DisplayName:  name,
		Role:         role,
		IsActive:     true,
	}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}
