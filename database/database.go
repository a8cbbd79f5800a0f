package database

import (
	"errors"
	"log"
	"os"

	"taproom-backend/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func Connect() (*gorm.DB, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "host=localhost user=postgres password=postgres dbname=taproom port=5432 sslmode=disable"
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	return db, nil
}

// AllModels is the migration set, in dependency order.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.RefreshToken{},
		&models.PasswordResetCode{},
		&models.Product{},
		&models.Reward{},
		&models.Service{},
		&models.Booking{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusChange{},
		&models.Redemption{},
		&models.PointTransaction{},
		&models.Staff{},
		&models.Photo{},
		&models.Setting{},
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}

func CreateDefaultAdmin(db *gorm.DB, email, password string) error {
	if email == "" {
		email = "admin@taproom.local"
	}
	if password == "" {
		password = "admin123"
	}

	var existingUser models.User
	result := db.Where("email = ?", email).First(&existingUser)
	if result.Error == nil {
		return nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return result.Error
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := models.User{
		Email:    email,
		Password: string(hashedPassword),
		Role:     models.RoleAdmin,
		Name:     "Admin User",
	}

	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	log.Printf("Default admin created: %s", email)
	return nil
}

// DefaultSettings are inserted on first boot. Existing rows are left alone so
// admin edits survive restarts.
var DefaultSettings = []models.Setting{
	{Key: "points_per_dollar", Value: "1", Description: "Default points per unit of currency for new products"},
	{Key: "tier_levels", Value: "bronze,silver,gold,platinum", Description: "Ordered tier names, lowest first"},
	{Key: "tier_bronze_min", Value: "0", Description: "Lifetime points needed for bronze"},
	{Key: "tier_bronze_multiplier", Value: "1.0", Description: "Points multiplier for bronze"},
	{Key: "tier_silver_min", Value: "500", Description: "Lifetime points needed for silver"},
	{Key: "tier_silver_multiplier", Value: "1.25", Description: "Points multiplier for silver"},
	{Key: "tier_gold_min", Value: "1500", Description: "Lifetime points needed for gold"},
	{Key: "tier_gold_multiplier", Value: "1.5", Description: "Points multiplier for gold"},
	{Key: "tier_platinum_min", Value: "5000", Description: "Lifetime points needed for platinum"},
	{Key: "tier_platinum_multiplier", Value: "2.0", Description: "Points multiplier for platinum"},
	{Key: "venue_name", Value: "The Taproom", Description: "Shown on receipts and emails"},
	{Key: "venue_address", Value: "", Description: "Shown on receipts"},
	{Key: "venue_phone", Value: "", Description: "Shown on receipts"},
	{Key: "receipt_footer", Value: "Thanks for visiting!", Description: "Footer line printed on receipts"},
}

func SeedDefaultSettings(db *gorm.DB) error {
	for _, s := range DefaultSettings {
		setting := s
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&setting).Error; err != nil {
			return err
		}
	}
	return nil
}
