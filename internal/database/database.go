package database

import (
	"fmt"
	"log"

	"model-market/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect establishes a connection to the PostgreSQL database
func Connect(dsn string) error {
	var err error

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Error),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})

	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Database connection established successfully")
	return nil
}

// AutoMigrate runs automatic migrations for all models
func AutoMigrate() error {
	return Migrate(DB)
}

// Migrate runs migrations against the given database handle
func Migrate(db *gorm.DB) error {
	// Core entities first
	coreModels := []interface{}{
		&models.User{},
		&models.Model{},
		&models.TrainingJob{},
	}

	for _, model := range coreModels {
		if err := db.AutoMigrate(model); err != nil {
			log.Printf("Warning: migration issue for %T: %v", model, err)
		}
	}

	// Marketplace entities
	marketplaceModels := []interface{}{
		&models.ModelLease{},
		&models.ModelReview{},
		&models.ModelStatusEvent{},
	}

	for _, model := range marketplaceModels {
		if err := db.AutoMigrate(model); err != nil {
			log.Printf("Warning: migration issue for %T: %v", model, err)
		}
	}

	// One ACTIVE lease per (lessee, model). The partial unique index is the
	// storage-level guard that makes concurrent duplicate leases impossible.
	if err := db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_leases_active_unique
		 ON model_leases (lessee_id, model_id) WHERE status = 'ACTIVE'`,
	).Error; err != nil {
		return fmt.Errorf("failed to create active lease index: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
