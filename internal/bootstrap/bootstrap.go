package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/plant-id-assistant/internal/config"
	"github.com/kirillkom/plant-id-assistant/internal/core/ports"
	"github.com/kirillkom/plant-id-assistant/internal/core/usecase"
	"github.com/kirillkom/plant-id-assistant/internal/infrastructure/cache/redis"
	"github.com/kirillkom/plant-id-assistant/internal/infrastructure/catalogfile"
	"github.com/kirillkom/plant-id-assistant/internal/infrastructure/classifier/plantid"
	"github.com/kirillkom/plant-id-assistant/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/plant-id-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/plant-id-assistant/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/plant-id-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/plant-id-assistant/internal/infrastructure/search/bing"
	"github.com/kirillkom/plant-id-assistant/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/plant-id-assistant/internal/infrastructure/vision/azure"
)

// Observers receive telemetry hooks from the wired components. Nil hooks are skipped.
type Observers struct {
	UpstreamRetry resilience.RetryObserver
	Enrichment    func(outcome string)
}

type App struct {
	Config config.Config

	Queue      ports.EventQueue
	Identifier ports.PlantIdentifier
	Care       ports.CareAdvisor
	History    ports.HistoryReader
	Recorder   ports.HistoryRecorder
	Identity   ports.IdentityResolver

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, observers Observers) (*App, error) {
	catalog, err := catalogfile.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	historyRepo := postgres.NewHistoryRepository(db)
	sessionRepo := postgres.NewSessionRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init capture storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.UpstreamPolicy(cfg.UpstreamRetryMaxAttempts, cfg.UpstreamBreakerEnabled))
	if observers.UpstreamRetry != nil {
		executor = executor.WithRetryObserver(observers.UpstreamRetry)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	classifier := plantid.New(plantid.Options{
		URL:      cfg.PlantIDURL,
		APIKey:   cfg.PlantIDAPIKey,
		Executor: executor,
	})
	vision := azure.New(cfg.VisionEndpoint, cfg.VisionAPIKey, executor)
	searcher := bing.New(cfg.BingEndpoint, cfg.BingAPIKey, executor)
	careGenerator := ollama.NewCareGuideGenerator(ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, executor))

	var (
		enrichmentCache ports.EnrichmentCache
		cacheClose      = func() {}
	)
	if cfg.RedisAddr != "" {
		cache := redis.New(cfg.RedisAddr)
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := cache.Ping(pingCtx); err != nil {
			slog.Warn("enrichment_cache_unavailable", "addr", cfg.RedisAddr, "error", err)
		}
		cancel()
		enrichmentCache = cache
		cacheClose = func() { _ = cache.Close() }
	}

	enricher := usecase.NewSearchEnricher(searcher, enrichmentCache, cfg.EnrichmentCacheTTL())
	aggregator := usecase.NewAggregator(catalog, enricher)
	if observers.Enrichment != nil {
		aggregator = aggregator.WithEnrichmentObserver(observers.Enrichment)
	}
	selector := usecase.NewPathSelector(classifier, vision, aggregator, usecase.SelectorOptions{
		Mode:          cfg.IdentifyMode,
		FallbackDelay: cfg.FallbackDelay(),
	})

	return &App{
		Config: cfg,
		Queue:  queue,

		Identifier: usecase.NewIdentifyUseCase(selector, storage, queue),
		Care:       usecase.NewCareUseCase(careGenerator),
		History:    usecase.NewHistoryUseCase(historyRepo, storage, cfg.HistoryPageLimit),
		Recorder:   usecase.NewHistoryRecorderUseCase(historyRepo),
		Identity:   sessionRepo,

		closeFn: func() {
			queue.Close()
			cacheClose()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
