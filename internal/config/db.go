package config

import (
	"errors"
	"fmt"
	"log/slog"

	"bank-payments-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB connects to the Postgres database behind the hosted backend.
func InitDB(cfg DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database.dsn is not set (BANKPAY_DATABASE_DSN or DATABASE_URL)")
	}
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if cfg.AutoMigrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
		log.Info("schema migrated")
	}
	return db, nil
}

// Migrate creates or extends the tables this service writes. The users table
// belongs to the hosted backend and is never touched here.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.BankPayment{},
		&models.MatchAuditLog{},
		&models.ImportBatch{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
