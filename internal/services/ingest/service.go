package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"bank-payments-backend/internal/importer"
	"bank-payments-backend/internal/metrics"
	"bank-payments-backend/internal/models"
	"bank-payments-backend/internal/services/reconciliation"

	"github.com/google/uuid"
)

var (
	ErrUnknownFormat = errors.New("unknown statement format")
	ErrInvalidFile   = errors.New("invalid statement file")
	ErrNotFound      = reconciliation.ErrNotFound
)

type BatchStore interface {
	Create(ctx context.Context, filename, format string) (*models.ImportBatch, error)
	Finish(ctx context.Context, batch *models.ImportBatch) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ImportBatch, error)
}

type PaymentStore interface {
	CreateIfAbsent(ctx context.Context, p *models.BankPayment) (bool, error)
}

// AutoMatcher is satisfied by *reconciliation.ReconciliationService.
type AutoMatcher interface {
	AutoMatch(ctx context.Context, paymentType models.PaymentType) (reconciliation.MatchReport, error)
}

// Report summarises one imported file.
type Report struct {
	BatchID        uuid.UUID                   `json:"batch_id"`
	Format         string                      `json:"format"`
	Rows           int                         `json:"rows"`
	Inserted       int                         `json:"inserted"`
	Duplicates     int                         `json:"duplicates"`
	Rejected       int                         `json:"rejected"`
	RejectedRows   []importer.RowError         `json:"rejected_rows,omitempty"`
	AutoMatch      *reconciliation.MatchReport `json:"auto_match,omitempty"`
	AutoMatchError string                      `json:"auto_match_error,omitempty"`
}

type Service struct {
	batches  BatchStore
	payments PaymentStore
	registry *importer.Registry
	matcher  AutoMatcher
	metrics  metrics.Recorder
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithMetrics(m metrics.Recorder) Option {
	return func(s *Service) { s.metrics = m }
}

func WithRegistry(r *importer.Registry) Option {
	return func(s *Service) { s.registry = r }
}

// WithAutoMatcher enables Import's autoMatch flag.
func WithAutoMatcher(m AutoMatcher) Option {
	return func(s *Service) { s.matcher = m }
}

func NewService(batches BatchStore, payments PaymentStore, opts ...Option) *Service {
	s := &Service{
		batches:  batches,
		payments: payments,
		registry: importer.DefaultRegistry(),
		metrics:  metrics.Noop{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Formats() []string {
	return s.registry.Formats()
}

// Import parses one statement file and inserts its lines as unmatched
// payments. Lines already present (same import key) are counted as
// duplicates and left untouched, so re-importing a file is harmless. When
// autoMatch is set and something new was inserted, an auto-match run with the
// default payment type follows; its failure is reported, not returned.
func (s *Service) Import(ctx context.Context, filename, format string, r io.Reader, autoMatch bool) (Report, error) {
	if format == "" {
		format = importer.DefaultFormat
	}
	parser := s.registry.Get(format)
	if parser == nil {
		return Report{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	batch, err := s.batches.Create(ctx, filename, parser.Format())
	if err != nil {
		return Report{}, fmt.Errorf("create import batch: %w", err)
	}
	report := Report{BatchID: batch.ID, Format: parser.Format()}
	log := s.logger.With(slog.String("batch_id", batch.ID.String()), slog.String("format", parser.Format()))
	log.Info("import started", slog.String("filename", filename))

	parsed, err := parser.Parse(r)
	if err != nil {
		s.fail(ctx, batch, err)
		return report, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	report.Rows = parsed.Rows
	report.Rejected = len(parsed.Rejected)
	report.RejectedRows = parsed.Rejected

	for i := range parsed.Payments {
		if err := ctx.Err(); err != nil {
			s.fail(ctx, batch, err)
			return report, err
		}
		p := &parsed.Payments[i]
		p.ID = uuid.New()
		p.ImportBatchID = &batch.ID

		inserted, err := s.payments.CreateIfAbsent(ctx, p)
		if err != nil {
			s.fail(ctx, batch, err)
			return report, fmt.Errorf("insert bank payment: %w", err)
		}
		if inserted {
			report.Inserted++
		} else {
			report.Duplicates++
		}
	}

	batch.TotalRows = report.Rows
	batch.InsertedCount = report.Inserted
	batch.DuplicateRows = report.Duplicates
	batch.RejectedRows = report.Rejected
	batch.Status = models.ImportStatusCompleted
	if err := s.batches.Finish(ctx, batch); err != nil {
		log.Warn("failed to finish import batch", slog.String("error", err.Error()))
	}
	s.metrics.Imported(parser.Format(), report.Inserted, report.Duplicates, report.Rejected)

	log.Info("import finished",
		slog.Int("rows", report.Rows),
		slog.Int("inserted", report.Inserted),
		slog.Int("duplicates", report.Duplicates),
		slog.Int("rejected", report.Rejected),
	)

	if autoMatch && report.Inserted > 0 && s.matcher != nil {
		mr, err := s.matcher.AutoMatch(ctx, "")
		if err != nil {
			log.Error("auto-match after import failed", slog.String("error", err.Error()))
			report.AutoMatchError = err.Error()
		}
		report.AutoMatch = &mr
	}
	return report, nil
}

func (s *Service) Batch(ctx context.Context, id uuid.UUID) (*models.ImportBatch, error) {
	return s.batches.GetByID(ctx, id)
}

// fail records the batch as failed. ctx may already be done, so the status
// write uses a detached context.
func (s *Service) fail(ctx context.Context, batch *models.ImportBatch, cause error) {
	batch.Status = models.ImportStatusFailed
	batch.Error = cause.Error()
	if err := s.batches.Finish(context.WithoutCancel(ctx), batch); err != nil {
		s.logger.Warn("failed to record failed import batch",
			slog.String("batch_id", batch.ID.String()),
			slog.String("error", err.Error()),
		)
	}
	s.logger.Error("import failed",
		slog.String("batch_id", batch.ID.String()),
		slog.String("error", cause.Error()),
	)
}
