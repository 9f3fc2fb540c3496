package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a directory entry owned by the hosted backend; this service only reads it.
type User struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email          string    `gorm:"index" json:"email"`
	DisplayName    string    `json:"display_name"`
	VariableSymbol *string   `gorm:"size:32;index" json:"variable_symbol"`
	CreatedAt      time.Time `json:"created_at"`
}

// Symbol returns the variable symbol or "" when none is assigned.
func (u *User) Symbol() string {
	if u.VariableSymbol == nil {
		return ""
	}
	return *u.VariableSymbol
}
