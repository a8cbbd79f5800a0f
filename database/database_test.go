package database

import (
	"testing"

	"taproom-backend/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestCreateDefaultAdmin(t *testing.T) {
	db := setupTestDB(t)

	if err := CreateDefaultAdmin(db, "boss@bar.test", "s3cret-pass"); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	var admin models.User
	if err := db.Where("email = ?", "boss@bar.test").First(&admin).Error; err != nil {
		t.Fatalf("admin not created: %v", err)
	}
	if admin.Role != models.RoleAdmin {
		t.Errorf("expected admin role, got %s", admin.Role)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte("s3cret-pass")); err != nil {
		t.Error("stored password does not match")
	}
}

func TestCreateDefaultAdminIdempotent(t *testing.T) {
	db := setupTestDB(t)

	for i := 0; i < 2; i++ {
		if err := CreateDefaultAdmin(db, "boss@bar.test", "s3cret-pass"); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	var count int64
	db.Model(&models.User{}).Where("email = ?", "boss@bar.test").Count(&count)
	if count != 1 {
		t.Errorf("expected 1 admin, got %d", count)
	}
}

func TestCreateDefaultAdminFallbackCredentials(t *testing.T) {
	db := setupTestDB(t)

	if err := CreateDefaultAdmin(db, "", ""); err != nil {
		t.Fatal(err)
	}

	var count int64
	db.Model(&models.User{}).Where("email = ?", "admin@taproom.local").Count(&count)
	if count != 1 {
		t.Errorf("expected fallback admin, got %d", count)
	}
}

func TestSeedDefaultSettingsKeepsEdits(t *testing.T) {
	db := setupTestDB(t)

	if err := SeedDefaultSettings(db); err != nil {
		t.Fatal(err)
	}
	db.Model(&models.Setting{}).Where("key = ?", "points_per_dollar").Update("value", "3")

	if err := SeedDefaultSettings(db); err != nil {
		t.Fatal(err)
	}

	var count int64
	db.Model(&models.Setting{}).Count(&count)
	if int(count) != len(DefaultSettings) {
		t.Errorf("expected %d settings, got %d", len(DefaultSettings), count)
	}

	var ppd models.Setting
	db.First(&ppd, "key = ?", "points_per_dollar")
	if ppd.Value != "3" {
		t.Errorf("expected edited value to survive reseed, got %s", ppd.Value)
	}
}
