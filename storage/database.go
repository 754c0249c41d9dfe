package storage

import (
	"fmt"

	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/models"
	"github.com/kataras/golog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func connectToDB(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DB_CONNECTION_STRING environment variable is required")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("error connecting to db: %w", err)
	}
	return db, nil
}

// Migrate creates or updates every table the API uses.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Profile{}, // create table containing many side first
		&models.ListingAllowance{},
		&models.BanEntry{},
		&models.Amenity{},
		&models.Property{},
		&models.PropertyMedia{},
		&models.ListingFee{},
		&models.Booking{},
		&models.Conversation{},
		&models.Message{},
		&models.Transaction{},
		&models.Review{},
		&models.SavedSearch{},
		&models.AuditLog{},
	)
}

func InitializeDB(dsn string) *gorm.DB {
	db, err := connectToDB(dsn)
	if err != nil {
		golog.Fatal(err)
	}
	if err := Migrate(db); err != nil {
		golog.Fatalf("migrate: %v", err)
	}

	DB = db
	return db
}
