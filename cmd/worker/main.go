package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gradeflow/gradeflow/internal/bootstrap"
	"github.com/gradeflow/gradeflow/internal/config"
	"github.com/gradeflow/gradeflow/internal/observability/logging"
	"github.com/gradeflow/gradeflow/internal/observability/metrics"
)

const serviceName = "grading-worker"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:        ":" + cfg.WorkerMetricsPort,
		Handler:     workerMetrics.Handler(),
		ReadTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("metrics listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("metrics server error: %v", err)
		}
	}()

	handler := func(handlerCtx context.Context, submissionID string) error {
		if cfg.ProcessTimeoutSeconds > 0 {
			var cancel context.CancelFunc
			handlerCtx, cancel = context.WithTimeout(handlerCtx, time.Duration(cfg.ProcessTimeoutSeconds)*time.Second)
			defer cancel()
		}

		workerMetrics.StartSubmission()
		started := time.Now()
		err := app.ProcessUC.ProcessByID(handlerCtx, submissionID)
		workerMetrics.FinishSubmission(serviceName, time.Since(started), err)
		return err
	}

	logger.Info("worker started",
		"subject", cfg.NATSSubject,
		"concurrency", cfg.WorkerConcurrency,
	)
	if err := app.Queue.SubscribeSubmissionProcess(ctx, handler); err != nil {
		log.Fatalf("subscribe error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics shutdown error", "error", err)
	}
	logger.Info("worker stopped")
}
