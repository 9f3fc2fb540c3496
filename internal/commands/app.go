package commands

import (
	"log/slog"

	"bank-payments-backend/internal/config"
	"bank-payments-backend/internal/events"
	"bank-payments-backend/internal/logging"
	"bank-payments-backend/internal/metrics"
	"bank-payments-backend/internal/repository"
	"bank-payments-backend/internal/services/ingest"
	"bank-payments-backend/internal/services/reconciliation"

	"gorm.io/gorm"
)

// app is everything a command needs, wired from config.
type app struct {
	cfg     config.Config
	log     *slog.Logger
	db      *gorm.DB
	metrics metrics.Recorder
	recon   *reconciliation.ReconciliationService
	ingest  *ingest.Service

	closers []func()
}

func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)
	return cfg, log, nil
}

func newApp(rec metrics.Recorder) (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = metrics.Noop{}
	}

	db, err := config.InitDB(cfg.Database, log)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, db: db, metrics: rec}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, func() { _ = sqlDB.Close() })
	}

	var publisher events.Publisher = events.Noop{}
	if cfg.NATS.URL != "" {
		p, err := events.Connect(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			// matching must keep working without the notification bus
			log.Warn("NATS unavailable, events disabled", slog.String("error", err.Error()))
		} else {
			publisher = p
			a.closers = append(a.closers, func() { _ = p.Close() })
			log.Info("publishing match events", slog.String("url", cfg.NATS.URL))
		}
	}

	store := repository.NewStore(db)
	a.recon = reconciliation.NewReconciliationService(store,
		reconciliation.WithLogger(log),
		reconciliation.WithPublisher(publisher),
		reconciliation.WithMetrics(rec),
		reconciliation.WithDefaultPaymentType(cfg.DefaultPaymentType()),
		reconciliation.WithSearchLimit(cfg.Search.Limit),
		reconciliation.WithSuggestionDistance(cfg.Matching.SuggestionDistance),
	)
	a.ingest = ingest.NewService(repository.NewImportBatchRepository(db), store.Payments,
		ingest.WithLogger(log),
		ingest.WithMetrics(rec),
		ingest.WithAutoMatcher(a.recon),
	)
	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
