package repository

import (
	"context"

	"bank-payments-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store bundles the repositories behind the reconciliation service.
type Store struct {
	Payments *BankPaymentRepository
	Users    *UserRepository
	Audit    *AuditRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		Payments: NewBankPaymentRepository(db),
		Users:    NewUserRepository(db),
		Audit:    NewAuditRepository(db),
	}
}

func (s *Store) ListUnmatchedTransactions(ctx context.Context) ([]models.BankPayment, error) {
	return s.Payments.ListUnmatched(ctx)
}

func (s *Store) CountMatchedTransactions(ctx context.Context) (int64, error) {
	return s.Payments.CountMatched(ctx)
}

func (s *Store) ListTransactions(ctx context.Context, f PaymentFilter) (PaymentPage, error) {
	return s.Payments.List(ctx, f)
}

func (s *Store) TransactionStats(ctx context.Context) (PaymentStats, error) {
	return s.Payments.Stats(ctx)
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*models.BankPayment, error) {
	return s.Payments.GetByID(ctx, id)
}

func (s *Store) UpdateTransaction(ctx context.Context, id uuid.UUID, expectMatched bool, state MatchState) (bool, error) {
	return s.Payments.UpdateMatchState(ctx, id, expectMatched, state)
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.Users.ListWithSymbol(ctx)
}

func (s *Store) SearchUsersByText(ctx context.Context, query string, limit int) ([]models.User, error) {
	return s.Users.Search(ctx, query, limit)
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.Users.GetByID(ctx, id)
}

func (s *Store) AppendAudit(ctx context.Context, entry *models.MatchAuditLog) error {
	return s.Audit.Append(ctx, entry)
}

func (s *Store) ListAudit(ctx context.Context, txID uuid.UUID) ([]models.MatchAuditLog, error) {
	return s.Audit.ListByTransaction(ctx, txID)
}
