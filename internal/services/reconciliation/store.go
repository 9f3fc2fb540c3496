package reconciliation

import (
	"context"

	"bank-payments-backend/internal/models"
	"bank-payments-backend/internal/repository"

	"github.com/google/uuid"
)

// Store is everything the service needs from persistence. GetTransaction and
// GetUser return ErrNotFound for unknown ids. UpdateTransaction applies state
// only when the row's matched flag equals expectMatched and reports whether it did.
type Store interface {
	ListUnmatchedTransactions(ctx context.Context) ([]models.BankPayment, error)
	CountMatchedTransactions(ctx context.Context) (int64, error)
	ListTransactions(ctx context.Context, f repository.PaymentFilter) (repository.PaymentPage, error)
	TransactionStats(ctx context.Context) (repository.PaymentStats, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*models.BankPayment, error)
	UpdateTransaction(ctx context.Context, id uuid.UUID, expectMatched bool, state repository.MatchState) (bool, error)

	ListUsers(ctx context.Context) ([]models.User, error)
	SearchUsersByText(ctx context.Context, query string, limit int) ([]models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)

	AppendAudit(ctx context.Context, entry *models.MatchAuditLog) error
	ListAudit(ctx context.Context, txID uuid.UUID) ([]models.MatchAuditLog, error)
}
