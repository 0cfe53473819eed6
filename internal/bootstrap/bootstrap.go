package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	httpadapter "github.com/velworks/strpdf/internal/adapters/http"
	"github.com/velworks/strpdf/internal/adapters/ws"
	"github.com/velworks/strpdf/internal/config"
	"github.com/velworks/strpdf/internal/core/ports"
	"github.com/velworks/strpdf/internal/core/usecase"
	"github.com/velworks/strpdf/internal/infrastructure/archive"
	"github.com/velworks/strpdf/internal/infrastructure/excel"
	"github.com/velworks/strpdf/internal/infrastructure/extractor/strform"
	"github.com/velworks/strpdf/internal/infrastructure/queue/nats"
	"github.com/velworks/strpdf/internal/infrastructure/registry"
	"github.com/velworks/strpdf/internal/infrastructure/repository/postgres"
	"github.com/velworks/strpdf/internal/infrastructure/resilience"
	"github.com/velworks/strpdf/internal/infrastructure/storage/localfs"
	"github.com/velworks/strpdf/internal/observability/logging"
	"github.com/velworks/strpdf/internal/observability/metrics"
	"github.com/velworks/strpdf/internal/progress"
)

const serviceName = "strpdf"

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue     *nats.Queue
	Processor ports.SessionProcessor

	Handler        http.Handler
	MetricsHandler http.Handler

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	history := postgres.NewHistoryRepository(db)
	if err := history.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	template := strform.DefaultTemplate()
	if cfg.TemplatePath != "" {
		template, err = strform.LoadTemplate(cfg.TemplatePath)
		if err != nil {
			return nil, fmt.Errorf("load form template: %w", err)
		}
	}

	httpMetrics := metrics.NewHTTPServerMetrics(serviceName)
	pipelineMetrics := metrics.NewPipelineMetrics(serviceName)

	sessions := registry.NewMemory(cfg.ProgressBufferSize)
	extractor := instrumentExtractor(strform.New(template), pipelineMetrics)
	workbooks := excel.NewBuilder()

	intakeUC := usecase.NewIntakeUseCase(sessions, storage, queue, archive.NewZipExpander())
	orchestrateUC := usecase.NewOrchestrateUseCase(sessions, storage, extractor, workbooks, history, logger)
	downloadUC := usecase.NewDownloadUseCase(sessions, storage)
	cleanupUC := usecase.NewCleanupUseCase(sessions, storage)

	streamer := instrumentStreamer(
		progress.NewStreamer(sessions, time.Duration(cfg.ProgressAckTimeoutSecs)*time.Second, logger),
		pipelineMetrics,
	)
	progressHandler := ws.NewProgressHandler(streamer, logger)

	router := httpadapter.NewRouter(intakeUC, downloadUC, cleanupUC, httpadapter.Options{
		MaxUploadBytes:          cfg.MaxUploadBytes,
		RateLimitRPS:            cfg.APIRateLimitRPS,
		RateLimitBurst:          cfg.APIRateLimitBurst,
		BackpressureConcurrency: cfg.APIMaxConcurrent,
		BackpressureWait:        time.Duration(cfg.APIBackpressureWaitMS) * time.Millisecond,
		ProgressHandler:         progressHandler.Handler(),
		Metrics: func(next http.Handler) http.Handler {
			return httpMetrics.Middleware(serviceName, next)
		},
	})

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", httpMetrics.Handler())
	metricsMux.Handle("/metrics/pipeline", pipelineMetrics.Handler())

	return &App{
		Config:         cfg,
		Logger:         logger,
		Queue:          queue,
		Processor:      instrumentProcessor(orchestrateUC, pipelineMetrics),
		Handler:        router.Handler(),
		MetricsHandler: metricsMux,

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
