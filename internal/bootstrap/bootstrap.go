package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/jagawarga-anonymizer/internal/config"
	"github.com/kirillkom/jagawarga-anonymizer/internal/core/ports"
	"github.com/kirillkom/jagawarga-anonymizer/internal/core/redaction"
	"github.com/kirillkom/jagawarga-anonymizer/internal/core/usecase"
	"github.com/kirillkom/jagawarga-anonymizer/internal/infrastructure/queue/nats"
	"github.com/kirillkom/jagawarga-anonymizer/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/jagawarga-anonymizer/internal/resilience"
)

type App struct {
	Config config.Config

	Bus      *nats.Bus
	Reports  ports.ReportReader
	Scrubber ports.TextScrubber

	SubmitUC ports.ReportSubmitter
	Health   ports.HealthReporter
	AuditUC  *usecase.AuditReportEventsUseCase

	closeFn func()
}

// New establishes the process-wide storage and event-bus handles once; every
// request reuses them.
func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	redactor, err := newRedactor(cfg.RedactionRulesFile)
	if err != nil {
		return nil, err
	}

	db, err := postgres.OpenDB(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewReportRepository(db, cfg.StorageCallTimeout)
	if cfg.StorageEnsureSchema {
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}

	bus, err := nats.NewWithOptions(cfg.NATSURL, nats.Options{
		Name:          "jagawarga-" + service,
		ReconnectWait: cfg.NATSReconnectWait,
		MaxReconnects: cfg.NATSMaxReconnects,
		DrainTimeout:  cfg.NATSDrainTimeout,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init event bus: %w", err)
	}

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts: cfg.RetryMaxAttempts,
		RetryBaseDelay:   cfg.RetryBaseDelay,
		BreakerEnabled:   cfg.BreakerEnabled,
	})

	submitUC := usecase.NewSubmitReportUseCase(repo, bus, redactor, executor, cfg.NATSReportSubject)
	health := usecase.NewHealthService(service, map[string]ports.HealthChecker{
		"database": repo,
		"nats":     bus,
	})

	return &App{
		Config:   cfg,
		Bus:      bus,
		Reports:  repo,
		Scrubber: redactor,

		SubmitUC: submitUC,
		Health:   health,
		AuditUC:  usecase.NewAuditReportEventsUseCase(slog.Default()),

		closeFn: func() {
			bus.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func newRedactor(rulesFile string) (*redaction.Redactor, error) {
	if rulesFile == "" {
		return redaction.NewDefault(), nil
	}
	rules, err := redaction.LoadRulesFile(rulesFile)
	if err != nil {
		return nil, fmt.Errorf("load redaction rules: %w", err)
	}
	redactor, err := redaction.New(rules)
	if err != nil {
		return nil, err
	}
	slog.Info("redaction_rules_loaded", "file", rulesFile, "categories", redactor.Categories())
	return redactor, nil
}
