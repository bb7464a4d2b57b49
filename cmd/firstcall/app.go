package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rpggio/firstcall/internal/config"
	"github.com/rpggio/firstcall/internal/domain/activity"
	"github.com/rpggio/firstcall/internal/domain/caserecord"
	"github.com/rpggio/firstcall/internal/domain/firstcall"
	"github.com/rpggio/firstcall/internal/mcp"
	"github.com/rpggio/firstcall/internal/metrics"
	"github.com/rpggio/firstcall/internal/outbox"
	"github.com/rpggio/firstcall/internal/registry"
	"github.com/rpggio/firstcall/internal/sqlite"
)

// app holds the wired services shared by every subcommand.
type app struct {
	db         *sqlite.DB
	cases      firstcall.CaseRepository
	engine     *firstcall.Service
	board      *firstcall.Switchboard
	records    *caserecord.Service
	activity   *activity.Service
	dispatcher *outbox.Dispatcher
	metrics    *metrics.Metrics
	publisher  *outbox.NATSPublisher
}

func newApp(cfg config.Config, logger *slog.Logger) (*app, error) {
	if err := ensureDBDir(cfg.DB.Path); err != nil {
		return nil, fmt.Errorf("prepare database path: %w", err)
	}
	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	a := &app{db: db, metrics: metrics.New()}

	a.activity = activity.NewService(sqlite.NewActivityRepository(db), logger)
	a.records, err = caserecord.NewService(sqlite.NewCaseRecordRepository(db), cfg.CaseNumber.Prefix, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	a.dispatcher = outbox.NewDispatcher(sqlite.NewOutboxRepository(db), logger)
	a.dispatcher.SetObserver(a.metrics)
	a.dispatcher.Subscribe(a.records.HandleCaseFinalized)

	if cfg.NATS.URL != "" {
		a.publisher, err = outbox.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			logger.Warn("nats unavailable, finalized cases will not be published", "url", cfg.NATS.URL, "error", err)
		} else {
			a.dispatcher.Subscribe(a.publisher.Handle)
		}
	}

	switch cfg.Registry.Backend {
	case "memory":
		a.cases = registry.NewMemory()
	default:
		a.cases = sqlite.NewCaseRepository(db)
	}

	a.engine = firstcall.NewService(a.cases, a.dispatcher, a.activity, logger, firstcall.WithObserver(a.metrics))
	a.board = firstcall.NewSwitchboard(a.cases, a.engine, a.activity, logger)
	a.dispatcher.SetReconciler(a.engine.ReconcileFinalized)
	return a, nil
}

func (a *app) services() mcp.Services {
	return mcp.Services{
		Cases:       a.engine,
		Switchboard: a.board,
		Records:     a.records,
		Activity:    a.activity,
	}
}

func (a *app) Close() error {
	var errs []error
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	errs = append(errs, a.db.Close())
	return errors.Join(errs...)
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
