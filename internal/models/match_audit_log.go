package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	AuditActionAutoMatch   = "auto_match"
	AuditActionManualMatch = "manual_match"
	AuditActionUnmatch     = "unmatch"
)

type MatchAuditLog struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TransactionID uuid.UUID      `gorm:"type:uuid;index" json:"transaction_id"`
	Action        string         `gorm:"size:32" json:"action"`
	PreviousUser  *uuid.UUID     `gorm:"type:uuid" json:"previous_user,omitempty"`
	NewUser       *uuid.UUID     `gorm:"type:uuid" json:"new_user,omitempty"`
	PaymentType   *PaymentType   `gorm:"size:16" json:"payment_type,omitempty"`
	PerformedBy   string         `json:"performed_by"`
	Details       datatypes.JSON `json:"details,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}
