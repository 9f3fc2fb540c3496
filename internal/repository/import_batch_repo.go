package repository

import (
	"context"
	"errors"
	"time"

	"bank-payments-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ImportBatchRepository struct {
	db *gorm.DB
}

func NewImportBatchRepository(db *gorm.DB) *ImportBatchRepository {
	return &ImportBatchRepository{db: db}
}

// Create starts a new batch in processing state.
func (r *ImportBatchRepository) Create(ctx context.Context, filename, format string) (*models.ImportBatch, error) {
	now := time.Now()
	batch := &models.ImportBatch{
		ID:        uuid.New(),
		Filename:  filename,
		Format:    format,
		Status:    models.ImportStatusProcessing,
		StartedAt: now,
		CreatedAt: now,
	}
	if err := r.db.WithContext(ctx).Create(batch).Error; err != nil {
		return nil, err
	}
	return batch, nil
}

func (r *ImportBatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ImportBatch, error) {
	var batch models.ImportBatch
	err := r.db.WithContext(ctx).First(&batch, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// Finish stores the final counters and status of a batch.
func (r *ImportBatchRepository) Finish(ctx context.Context, batch *models.ImportBatch) error {
	now := time.Now()
	batch.CompletedAt = &now
	return r.db.WithContext(ctx).Model(&models.ImportBatch{}).
		Where("id = ?", batch.ID).
		Updates(map[string]interface{}{
			"total_rows":     batch.TotalRows,
			"inserted_count": batch.InsertedCount,
			"duplicate_rows": batch.DuplicateRows,
			"rejected_rows":  batch.RejectedRows,
			"status":         batch.Status,
			"error":          batch.Error,
			"completed_at":   now,
		}).Error
}
