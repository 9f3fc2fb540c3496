package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ImportStatusProcessing = "processing"
	ImportStatusCompleted  = "completed"
	ImportStatusFailed     = "failed"
)

// ImportBatch tracks one bank-statement file loaded into bank_payments.
type ImportBatch struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Filename      string     `json:"filename"`
	Format        string     `gorm:"size:32" json:"format"`
	TotalRows     int        `json:"total_rows"`
	InsertedCount int        `json:"inserted_count"`
	DuplicateRows int        `json:"duplicate_rows"`
	RejectedRows  int        `json:"rejected_rows"`
	Status        string     `gorm:"size:16;index" json:"status"`
	Error         string     `json:"error,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}
