package repository

import (
	"context"
	"errors"
	"strings"

	"bank-payments-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID fetch a single user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListWithSymbol returns the auto-match candidate pool.
func (r *UserRepository) ListWithSymbol(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("variable_symbol IS NOT NULL AND variable_symbol <> ''").
		Order("email ASC").
		Find(&users).Error
	return users, err
}

// Search does a case-insensitive substring match over email, display name and variable symbol.
func (r *UserRepository) Search(ctx context.Context, query string, limit int) ([]models.User, error) {
	var users []models.User
	like := "%" + escapeLike(strings.ToLower(query)) + "%"

	err := r.db.WithContext(ctx).
		Where(
			"LOWER(email) LIKE ? ESCAPE '\\' OR LOWER(display_name) LIKE ? ESCAPE '\\' OR LOWER(variable_symbol) LIKE ? ESCAPE '\\'",
			like, like, like,
		).
		Order("email ASC").
		Limit(limit).
		Find(&users).Error
	return users, err
}
