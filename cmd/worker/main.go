package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/jagawarga-anonymizer/internal/bootstrap"
	"github.com/kirillkom/jagawarga-anonymizer/internal/config"
	"github.com/kirillkom/jagawarga-anonymizer/internal/core/domain"
	"github.com/kirillkom/jagawarga-anonymizer/internal/observability/logging"
	"github.com/kirillkom/jagawarga-anonymizer/internal/observability/metrics"
)

const serviceName = "report-auditor"

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, serviceName)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	mux := http.NewServeMux()
	mux.Handle("/metrics", workerMetrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("worker_metrics_listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSReportSubject, "group", cfg.NATSConsumerGroup)
	err = app.Bus.SubscribeReportCreated(ctx, cfg.NATSReportSubject, cfg.NATSConsumerGroup,
		func(handlerCtx context.Context, event domain.ReportCreated) error {
			workerMetrics.StartEvent()
			start := time.Now()
			lag, err := app.AuditUC.Handle(handlerCtx, event)
			workerMetrics.FinishEvent(serviceName, time.Since(start), err)
			if err == nil {
				workerMetrics.ObserveAnnounceLag(serviceName, lag)
			}
			return err
		},
	)
	if err != nil {
		slog.Error("worker_subscribe_failed", "error", err)
		return
	}
	slog.Info("worker_stopped")
}
