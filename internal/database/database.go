package database

import (
	"fmt"
	"time"

	"github.com/docufind/backend/internal/config"
	"github.com/docufind/backend/internal/models"
	"github.com/docufind/backend/internal/queue"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB initializes the database connection with configuration
func InitDB(dbConfig config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		// Duplicate-key violations must be detectable as gorm.ErrDuplicatedKey
		// so the match sweep can treat "pair already matched" as a no-op.
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.Open(dbConfig.URL), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	sqlDB.SetMaxIdleConns(dbConfig.MaxIdle)
	sqlDB.SetMaxOpenConns(dbConfig.MaxConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// Migrate runs schema auto-migration followed by the versioned migrations
// (indexes and seed data that AutoMigrate cannot express).
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		// Accounts and reference data
		&models.User{},
		&models.DocumentType{},
		&models.PickupStation{},
		&models.Address{},

		// Documents and cases
		&models.Document{},
		&models.DocumentImage{},
		&models.DocumentCase{},
		&models.FoundDocumentCase{},
		&models.LostDocumentCase{},
		&models.SecurityQuestion{},

		// Matching and claims
		&models.Match{},
		&models.Claim{},
		&models.ClaimVerification{},
		&models.ClaimAttachment{},

		// Workflow bookkeeping
		&models.TransitionReason{},
		&models.StatusTransition{},
		&models.AIInteraction{},
		&models.Invoice{},

		// Background jobs
		&queue.Job{},
	)
	if err != nil {
		return err
	}

	return RunVersionedMigrations(db)
}
