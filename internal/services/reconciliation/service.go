package reconciliation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"bank-payments-backend/internal/events"
	"bank-payments-backend/internal/metrics"
	"bank-payments-backend/internal/models"
	"bank-payments-backend/internal/repository"
	"bank-payments-backend/internal/services/matching"

	"github.com/google/uuid"
)

// MinSearchLength is the shortest query that reaches the store.
const MinSearchLength = 2

type ReconciliationService struct {
	store     Store
	publisher events.Publisher
	metrics   metrics.Recorder
	logger    *slog.Logger
	now       func() time.Time

	defaultType        models.PaymentType
	searchLimit        int
	suggestionDistance int
}

type Option func(*ReconciliationService)

func WithLogger(l *slog.Logger) Option {
	return func(s *ReconciliationService) { s.logger = l }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *ReconciliationService) { s.publisher = p }
}

func WithMetrics(m metrics.Recorder) Option {
	return func(s *ReconciliationService) { s.metrics = m }
}

// WithDefaultPaymentType sets the type auto-match assigns when the caller
// does not pass one.
func WithDefaultPaymentType(t models.PaymentType) Option {
	return func(s *ReconciliationService) { s.defaultType = t }
}

func WithSearchLimit(n int) Option {
	return func(s *ReconciliationService) { s.searchLimit = n }
}

func WithSuggestionDistance(n int) Option {
	return func(s *ReconciliationService) { s.suggestionDistance = n }
}

func withClock(now func() time.Time) Option {
	return func(s *ReconciliationService) { s.now = now }
}

func NewReconciliationService(store Store, opts ...Option) *ReconciliationService {
	s := &ReconciliationService{
		store:              store,
		publisher:          events.Noop{},
		metrics:            metrics.Noop{},
		logger:             slog.Default(),
		now:                time.Now,
		defaultType:        models.PaymentTypeDonation,
		searchLimit:        20,
		suggestionDistance: 2,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ReconciliationService) DefaultPaymentType() models.PaymentType {
	return s.defaultType
}

// AutoMatch attributes every unmatched transaction whose payer reference equals
// exactly one user's variable symbol. paymentType may be empty to use the
// configured default. Each match is committed on its own; a failed commit is
// recorded in the report and the run continues. The returned error is non-nil
// only when the run could not start or ctx was cancelled part-way.
func (s *ReconciliationService) AutoMatch(ctx context.Context, paymentType models.PaymentType) (MatchReport, error) {
	var report MatchReport

	if paymentType == "" {
		paymentType = s.defaultType
	}
	if !paymentType.Valid() {
		return report, fmt.Errorf("%w: %q", ErrInvalidPaymentType, paymentType)
	}

	matchedBefore, err := s.store.CountMatchedTransactions(ctx)
	if err != nil {
		return report, fmt.Errorf("count matched transactions: %w", err)
	}
	txs, err := s.store.ListUnmatchedTransactions(ctx)
	if err != nil {
		return report, fmt.Errorf("list unmatched transactions: %w", err)
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return report, fmt.Errorf("list users: %w", err)
	}

	report.Skipped = int(matchedBefore)
	ix := matching.NewIndex(users)
	actor := ActorFrom(ctx)

	s.logger.Info("auto-match started",
		slog.Int("candidates", len(txs)),
		slog.Int("symbols", ix.Len()),
		slog.String("payment_type", string(paymentType)),
	)

	for i := range txs {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("auto-match interrupted", slog.Int("processed", i), slog.String("error", err.Error()))
			return report, err
		}

		tx := &txs[i]
		if err := tx.Validate(); err != nil {
			s.logger.Warn("skipping invalid bank payment row",
				slog.String("transaction_id", tx.ID.String()),
				slog.String("error", err.Error()),
			)
			report.Unmatched++
			report.Failed++
			report.Failures = append(report.Failures, MatchFailure{TransactionID: tx.ID, Error: err.Error()})
			s.metrics.AutoMatchOutcome("invalid")
			continue
		}

		d := matching.Decide(tx, ix, paymentType)
		if d.Proposed() {
			s.commitAuto(ctx, tx, d, actor, &report)
			continue
		}
		switch d.Outcome {
		case matching.OutcomeAlreadyMatched:
			report.Skipped++
		case matching.OutcomeAmbiguous:
			report.Ambiguous++
			report.Unmatched++
			s.logger.Info("ambiguous payer reference left for manual review",
				slog.String("transaction_id", tx.ID.String()),
				slog.String("reference", d.Reference),
				slog.Int("candidates", d.Candidates),
			)
		default:
			report.Unmatched++
		}
		s.metrics.AutoMatchOutcome(string(d.Outcome))
	}

	s.logger.Info("auto-match finished",
		slog.Int("matched", report.Matched),
		slog.Int("unmatched", report.Unmatched),
		slog.Int("skipped", report.Skipped),
		slog.Int("ambiguous", report.Ambiguous),
		slog.Int("failed", report.Failed),
	)
	return report, nil
}

func (s *ReconciliationService) commitAuto(ctx context.Context, tx *models.BankPayment, d matching.Decision, actor string, report *MatchReport) {
	pt := d.PaymentType
	state := repository.MatchState{Matched: true, RelatedID: d.UserID, PaymentType: &pt}

	ok, err := s.store.UpdateTransaction(ctx, tx.ID, false, state)
	switch {
	case err != nil:
		s.logger.Error("auto-match update failed",
			slog.String("transaction_id", tx.ID.String()),
			slog.String("error", err.Error()),
		)
		report.Unmatched++
		report.Failed++
		report.Failures = append(report.Failures, MatchFailure{TransactionID: tx.ID, Error: err.Error()})
		s.metrics.AutoMatchOutcome("failed")
		return
	case !ok:
		// matched by someone else since the list was read
		report.Skipped++
		s.metrics.AutoMatchOutcome(string(matching.OutcomeAlreadyMatched))
		return
	}

	report.Matched++
	s.metrics.AutoMatchOutcome(string(matching.OutcomeMatched))
	applyState(tx, state)

	s.audit(ctx, &models.MatchAuditLog{
		TransactionID: tx.ID,
		Action:        models.AuditActionAutoMatch,
		NewUser:       d.UserID,
		PaymentType:   &pt,
		PerformedBy:   actor,
	}, map[string]interface{}{
		"reference":  d.Reference,
		"candidates": d.Candidates,
		"amount":     tx.Amount.String(),
	})
	s.publish(ctx, events.TypeMatched, tx, tx.RelatedID, tx.PaymentType, "auto", actor)
}

// ManualMatch attributes one transaction to a user chosen by an administrator.
// An existing match is never replaced: the caller has to Unmatch first.
func (s *ReconciliationService) ManualMatch(ctx context.Context, txID, userID uuid.UUID, paymentType models.PaymentType) (*models.BankPayment, error) {
	tx, err := s.store.GetTransaction(ctx, txID)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", txID, err)
	}
	if tx.Matched {
		return nil, ErrAlreadyMatched
	}
	if !paymentType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentType, paymentType)
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("user %s: %w", userID, err)
	}

	uid := userID
	pt := paymentType
	state := repository.MatchState{Matched: true, RelatedID: &uid, PaymentType: &pt}

	ok, err := s.store.UpdateTransaction(ctx, txID, false, state)
	if err != nil {
		return nil, fmt.Errorf("update transaction %s: %w", txID, err)
	}
	if !ok {
		return nil, ErrAlreadyMatched
	}
	applyState(tx, state)

	actor := ActorFrom(ctx)
	s.metrics.ManualMatch(string(pt))
	s.logger.Info("transaction manually matched",
		slog.String("transaction_id", txID.String()),
		slog.String("user_id", userID.String()),
		slog.String("payment_type", string(pt)),
		slog.String("actor", actor),
	)
	s.audit(ctx, &models.MatchAuditLog{
		TransactionID: txID,
		Action:        models.AuditActionManualMatch,
		NewUser:       &uid,
		PaymentType:   &pt,
		PerformedBy:   actor,
	}, nil)
	s.publish(ctx, events.TypeMatched, tx, tx.RelatedID, tx.PaymentType, "manual", actor)
	return tx, nil
}

// Unmatch clears the match fields of a matched transaction.
func (s *ReconciliationService) Unmatch(ctx context.Context, txID uuid.UUID) (*models.BankPayment, error) {
	tx, err := s.store.GetTransaction(ctx, txID)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", txID, err)
	}
	if !tx.Matched {
		return nil, ErrNotMatched
	}
	previousUser := tx.RelatedID
	previousType := tx.PaymentType

	ok, err := s.store.UpdateTransaction(ctx, txID, true, repository.MatchState{})
	if err != nil {
		return nil, fmt.Errorf("update transaction %s: %w", txID, err)
	}
	if !ok {
		return nil, ErrNotMatched
	}
	applyState(tx, repository.MatchState{})

	actor := ActorFrom(ctx)
	s.metrics.Unmatch()
	s.logger.Info("transaction unmatched",
		slog.String("transaction_id", txID.String()),
		slog.String("actor", actor),
	)
	s.audit(ctx, &models.MatchAuditLog{
		TransactionID: txID,
		Action:        models.AuditActionUnmatch,
		PreviousUser:  previousUser,
		PaymentType:   previousType,
		PerformedBy:   actor,
	}, nil)
	s.publish(ctx, events.TypeUnmatched, tx, previousUser, previousType, "manual", actor)
	return tx, nil
}

// SearchUsers looks users up by email, display name or variable symbol.
// Queries shorter than MinSearchLength return nothing without touching the store.
func (s *ReconciliationService) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinSearchLength {
		return []models.User{}, nil
	}
	users, err := s.store.SearchUsersByText(ctx, query, s.searchLimit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// Suggestions lists users whose variable symbol is close to the reference of
// an unmatched transaction.
func (s *ReconciliationService) Suggestions(ctx context.Context, txID uuid.UUID) ([]matching.Suggestion, error) {
	tx, err := s.store.GetTransaction(ctx, txID)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", txID, err)
	}
	if tx.Matched {
		return nil, ErrAlreadyMatched
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := matching.Suggest(tx, users, s.suggestionDistance, s.searchLimit)
	if out == nil {
		out = []matching.Suggestion{}
	}
	return out, nil
}

// PaymentDetail is a payment together with the user it is matched to.
type PaymentDetail struct {
	Payment *models.BankPayment `json:"payment"`
	User    *models.User        `json:"user,omitempty"`
}

func (s *ReconciliationService) GetPayment(ctx context.Context, txID uuid.UUID) (*PaymentDetail, error) {
	tx, err := s.store.GetTransaction(ctx, txID)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", txID, err)
	}
	detail := &PaymentDetail{Payment: tx}
	if tx.RelatedID == nil {
		return detail, nil
	}

	user, err := s.store.GetUser(ctx, *tx.RelatedID)
	switch {
	case errors.Is(err, ErrNotFound):
		s.logger.Warn("matched user no longer exists",
			slog.String("transaction_id", txID.String()),
			slog.String("user_id", tx.RelatedID.String()),
		)
	case err != nil:
		return nil, fmt.Errorf("user %s: %w", tx.RelatedID, err)
	default:
		detail.User = user
	}
	return detail, nil
}

func (s *ReconciliationService) ListPayments(ctx context.Context, f repository.PaymentFilter) (repository.PaymentPage, error) {
	page, err := s.store.ListTransactions(ctx, f)
	if err != nil {
		return page, fmt.Errorf("list transactions: %w", err)
	}
	if page.Items == nil {
		page.Items = []models.BankPayment{}
	}
	return page, nil
}

func (s *ReconciliationService) Stats(ctx context.Context) (repository.PaymentStats, error) {
	stats, err := s.store.TransactionStats(ctx)
	if err != nil {
		return stats, fmt.Errorf("transaction stats: %w", err)
	}
	return stats, nil
}

func (s *ReconciliationService) AuditTrail(ctx context.Context, txID uuid.UUID) ([]models.MatchAuditLog, error) {
	if _, err := s.store.GetTransaction(ctx, txID); err != nil {
		return nil, fmt.Errorf("transaction %s: %w", txID, err)
	}
	entries, err := s.store.ListAudit(ctx, txID)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	if entries == nil {
		entries = []models.MatchAuditLog{}
	}
	return entries, nil
}

// audit failures are logged and never fail the match itself.
func (s *ReconciliationService) audit(ctx context.Context, entry *models.MatchAuditLog, details map[string]interface{}) {
	entry.ID = uuid.New()
	entry.CreatedAt = s.now()
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			entry.Details = raw
		}
	}
	if err := s.store.AppendAudit(ctx, entry); err != nil {
		s.logger.Warn("audit log write failed",
			slog.String("transaction_id", entry.TransactionID.String()),
			slog.String("action", entry.Action),
			slog.String("error", err.Error()),
		)
	}
}

func (s *ReconciliationService) publish(ctx context.Context, t events.Type, tx *models.BankPayment, userID *uuid.UUID, pt *models.PaymentType, source, actor string) {
	err := s.publisher.Publish(ctx, events.Event{
		Type:          t,
		TransactionID: tx.ID,
		UserID:        userID,
		PaymentType:   pt,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		Source:        source,
		Actor:         actor,
		OccurredAt:    s.now().UTC(),
	})
	if err != nil {
		s.logger.Warn("event publish failed",
			slog.String("transaction_id", tx.ID.String()),
			slog.String("event", string(t)),
			slog.String("error", err.Error()),
		)
	}
}

func applyState(tx *models.BankPayment, state repository.MatchState) {
	tx.Matched = state.Matched
	tx.RelatedID = state.RelatedID
	tx.PaymentType = state.PaymentType
}
