package repository

import (
	"context"
	"errors"
	"strings"

	"bank-payments-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("not found")

// MatchState is the mutable part of a bank payment.
type MatchState struct {
	Matched     bool
	RelatedID   *uuid.UUID
	PaymentType *models.PaymentType
}

func (s MatchState) columns() map[string]interface{} {
	cols := map[string]interface{}{
		"matched":      s.Matched,
		"related_id":   nil,
		"payment_type": nil,
	}
	if s.RelatedID != nil {
		cols["related_id"] = *s.RelatedID
	}
	if s.PaymentType != nil {
		cols["payment_type"] = string(*s.PaymentType)
	}
	return cols
}

const (
	StatusAll       = "all"
	StatusMatched   = "matched"
	StatusUnmatched = "unmatched"
)

// PaymentFilter drives the admin list screen.
type PaymentFilter struct {
	Status string
	Query  string
	Cursor string
	Limit  int
}

type PaymentPage struct {
	Items      []models.BankPayment `json:"items"`
	NextCursor string               `json:"next_cursor"`
	HasMore    bool                 `json:"has_more"`
}

type BankPaymentRepository struct {
	db *gorm.DB
}

func NewBankPaymentRepository(db *gorm.DB) *BankPaymentRepository {
	return &BankPaymentRepository{db: db}
}

func (r *BankPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BankPayment, error) {
	var p models.BankPayment
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListUnmatched returns every payment still waiting for attribution, oldest first.
func (r *BankPaymentRepository) ListUnmatched(ctx context.Context) ([]models.BankPayment, error) {
	var payments []models.BankPayment
	err := r.db.WithContext(ctx).
		Where("matched = ?", false).
		Order("transaction_date ASC, id ASC").
		Find(&payments).Error
	return payments, err
}

func (r *BankPaymentRepository) CountMatched(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.BankPayment{}).Where("matched = ?", true).Count(&n).Error
	return n, err
}

// UpdateMatchState writes the match fields only when the row is still in the
// expected state. It reports false when another writer got there first.
func (r *BankPaymentRepository) UpdateMatchState(ctx context.Context, id uuid.UUID, expectMatched bool, state MatchState) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.BankPayment{}).
		Where("id = ? AND matched = ?", id, expectMatched).
		Updates(state.columns())
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CreateIfAbsent inserts a payment unless one with the same import key exists.
func (r *BankPaymentRepository) CreateIfAbsent(ctx context.Context, p *models.BankPayment) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "import_key"}}, DoNothing: true}).
		Create(p)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *BankPaymentRepository) List(ctx context.Context, f PaymentFilter) (PaymentPage, error) {
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var items []models.BankPayment
	query := r.db.WithContext(ctx).
		Order("id ASC").
		Limit(limit + 1)

	switch f.Status {
	case StatusMatched:
		query = query.Where("matched = ?", true)
	case StatusUnmatched:
		query = query.Where("matched = ?", false)
	}

	if f.Cursor != "" {
		query = query.Where("id > ?", f.Cursor)
	}

	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + escapeLike(strings.ToLower(q)) + "%"
		query = query.Where(
			"LOWER(counterparty_name) LIKE ? ESCAPE '\\' OR LOWER(payer_reference) LIKE ? ESCAPE '\\' OR LOWER(message) LIKE ? ESCAPE '\\'",
			like, like, like,
		)
	}

	if err := query.Find(&items).Error; err != nil {
		return PaymentPage{}, err
	}

	page := PaymentPage{Items: items}
	if len(items) > limit {
		page.HasMore = true
		page.Items = items[:limit]
		page.NextCursor = page.Items[limit-1].ID.String()
	}
	return page, nil
}

type TypeStat struct {
	Count int64           `json:"count"`
	Sum   decimal.Decimal `json:"sum"`
}

type PaymentStats struct {
	Total       int64           `json:"total"`
	TotalAmount decimal.Decimal `json:"total_amount"`

	MatchedCount int64           `json:"matched_count"`
	MatchedSum   decimal.Decimal `json:"matched_sum"`

	UnmatchedCount int64           `json:"unmatched_count"`
	UnmatchedSum   decimal.Decimal `json:"unmatched_sum"`

	ByPaymentType map[models.PaymentType]TypeStat `json:"by_payment_type"`
}

type statRow struct {
	Matched     bool
	PaymentType *string
	Count       int64
	Sum         decimal.Decimal
}

func (r *BankPaymentRepository) Stats(ctx context.Context) (PaymentStats, error) {
	stats := PaymentStats{ByPaymentType: map[models.PaymentType]TypeStat{}}
	var rows []statRow

	err := r.db.WithContext(ctx).Model(&models.BankPayment{}).
		Select("matched, payment_type, COUNT(*) as count, COALESCE(SUM(amount),0) as sum").
		Group("matched, payment_type").
		Scan(&rows).Error
	if err != nil {
		return stats, err
	}

	for _, row := range rows {
		stats.Total += row.Count
		stats.TotalAmount = stats.TotalAmount.Add(row.Sum)

		if !row.Matched {
			stats.UnmatchedCount += row.Count
			stats.UnmatchedSum = stats.UnmatchedSum.Add(row.Sum)
			continue
		}
		stats.MatchedCount += row.Count
		stats.MatchedSum = stats.MatchedSum.Add(row.Sum)
		if row.PaymentType != nil {
			pt := models.PaymentType(*row.PaymentType)
			ts := stats.ByPaymentType[pt]
			ts.Count += row.Count
			ts.Sum = ts.Sum.Add(row.Sum)
			stats.ByPaymentType[pt] = ts
		}
	}
	return stats, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
