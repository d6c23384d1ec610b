package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gradeflow/gradeflow/internal/config"
	"github.com/gradeflow/gradeflow/internal/core/ports"
	"github.com/gradeflow/gradeflow/internal/core/usecase"
	"github.com/gradeflow/gradeflow/internal/infrastructure/extractor/pdftext"
	"github.com/gradeflow/gradeflow/internal/infrastructure/grader"
	"github.com/gradeflow/gradeflow/internal/infrastructure/ocr"
	"github.com/gradeflow/gradeflow/internal/infrastructure/queue/nats"
	"github.com/gradeflow/gradeflow/internal/infrastructure/repository/postgres"
	"github.com/gradeflow/gradeflow/internal/infrastructure/resilience"
	"github.com/gradeflow/gradeflow/internal/infrastructure/similarity"
	"github.com/gradeflow/gradeflow/internal/infrastructure/storage/minio"
)

type App struct {
	Config config.Config

	Queue     ports.ProcessQueue
	ProcessUC ports.SubmissionProcessor

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	submissions := postgres.NewSubmissionRepository(db)
	if err := submissions.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	assignments := postgres.NewAssignmentRepository(db)

	blobs, err := minio.New(minio.Config{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init blob storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		MaxInFlight:        cfg.WorkerConcurrency,
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init process queue: %w", err)
	}

	extractor := pdftext.New(ocr.New(cfg.OCRURL, executor), pdftext.Config{
		MinDirectChars: cfg.MinTextChars,
		DPI:            cfg.OCRDPI,
		Language:       cfg.OCRLanguage,
	}, logger)

	plagiarism := usecase.NewPlagiarismChecker(
		submissions,
		similarity.NewNearDuplicateDetector(cfg.NearDuplicateThreshold),
		similarity.NewVectorEngine(cfg.VectorMaxFeatures),
		usecase.PlagiarismConfig{
			VectorThreshold: cfg.VectorThreshold,
			MinTextChars:    cfg.MinTextChars,
		},
		logger,
	)

	scorer := usecase.NewScorer(grader.New(cfg.GraderURL, executor), usecase.ScoringConfig{
		PenaltyFactor: cfg.PenaltyFactor,
		MinTextChars:  cfg.MinTextChars,
	}, logger)

	processUC := usecase.NewProcessSubmissionUseCase(
		submissions, assignments, blobs, extractor, plagiarism, scorer, logger,
	)

	return &App{
		Config:    cfg,
		Queue:     queue,
		ProcessUC: processUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
