// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"bank-payments-backend/internal/config"
	"bank-payments-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a migrated in-memory SQLite database private to t.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString()[:8])

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := config.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// Stand-in for the hosted backend's users table.
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate users fixture: %v", err)
	}
	return db
}

// CreateUser inserts a user; an empty symbol leaves variable_symbol NULL.
func CreateUser(t testing.TB, db *gorm.DB, email, symbol string) models.User {
	t.Helper()
	u := models.User{ID: uuid.New(), Email: email, DisplayName: strings.Split(email, "@")[0]}
	if symbol != "" {
		s := symbol
		u.VariableSymbol = &s
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// CreatePayment inserts an unmatched payment carrying reference.
func CreatePayment(t testing.TB, db *gorm.DB, reference, amount string) models.BankPayment {
	t.Helper()
	p := models.BankPayment{
		ID:             uuid.New(),
		PayerReference: reference,
		Amount:         decimal.RequireFromString(amount),
		Currency:       "CZK",
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("create payment: %v", err)
	}
	return p
}
