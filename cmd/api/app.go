package main

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/affiliateops/backend/internal/alerts"
	"github.com/affiliateops/backend/internal/attribution"
	"github.com/affiliateops/backend/internal/cache"
	"github.com/affiliateops/backend/internal/config"
	"github.com/affiliateops/backend/internal/dashboard"
	"github.com/affiliateops/backend/internal/database"
	"github.com/affiliateops/backend/internal/events"
	"github.com/affiliateops/backend/internal/handlers"
	"github.com/affiliateops/backend/internal/ingest"
	"github.com/affiliateops/backend/internal/jobs"
	"github.com/affiliateops/backend/internal/ledger"
	"github.com/affiliateops/backend/internal/models"
	"github.com/affiliateops/backend/internal/providers"
	"github.com/affiliateops/backend/internal/repository"
	"github.com/affiliateops/backend/internal/services"
	"github.com/affiliateops/backend/internal/settings"
)

// app holds the components shared by serve and sync.
type app struct {
	pool      *pgxpool.Pool
	redis     *redis.Client
	publisher events.Publisher
	notifier  alerts.Notifier
	pipeline  *ingest.Pipeline
	syncSvc   jobs.Service
	reports   *dashboard.Reports
	validator *services.Validator
	log       *slog.Logger
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	slog.Info("Connected to PostgreSQL database successfully!")
	a := &app{pool: pool, log: logger}

	a.publisher = events.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		p, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.publisher = p
		slog.Info("Kafka publisher enabled", "topic", cfg.KafkaTopic)
	}

	a.notifier = alerts.Noop{}
	if cfg.TelegramBotToken != "" {
		t, err := alerts.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			slog.Warn("Telegram alerts disabled", "error", err)
		} else {
			a.notifier = t
		}
	}

	var reportCache cache.Cache = cache.Noop{}
	if cfg.RedisURL != "" {
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			slog.Warn("Report cache disabled", "error", err)
		} else {
			a.redis = client
			reportCache = cache.NewRedis(client)
		}
	}

	ledgerSvc := ledger.NewService(ledger.NewRepository(pool))
	attributionRepo := repository.NewAttributionRepo(pool)
	linker := attribution.NewLinker(repository.NewContentRepo(pool), attributionRepo)
	a.pipeline = ingest.NewPipeline(ledgerSvc, linker, a.publisher, logger)

	a.syncSvc = jobs.NewService(
		buildAdapters(cfg, settings.NewStore(pool)),
		a.pipeline,
		jobs.NewRepository(pool),
		a.notifier,
		jobs.Config{WindowDays: cfg.SyncWindowDays, Concurrency: cfg.SyncConcurrency},
		logger,
	)

	a.reports = dashboard.NewReports(
		repository.NewConversionRepo(pool),
		attributionRepo,
		repository.NewClickRepo(pool),
		reportCache,
		cfg.ReportCacheTTL,
		logger,
	)

	if a.validator, err = services.NewValidator(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) webhookHandler(cfg *config.Config) *handlers.WebhookHandler {
	network, ok := models.ParseNetwork(cfg.WebhookNetwork)
	if !ok {
		slog.Warn("Unknown WEBHOOK_NETWORK, using impact", "value", cfg.WebhookNetwork)
		network = models.NetworkImpact
	}
	return &handlers.WebhookHandler{
		Pipeline:       a.pipeline,
		DefaultNetwork: network,
		Secret:         cfg.WebhookSecret,
		Alerts:         a.notifier,
		Logger:         a.log,
	}
}

func (a *app) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			slog.Warn("Closing event publisher failed", "error", err)
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	a.pool.Close()
}

// buildAdapters returns the polled networks in run order.
func buildAdapters(cfg *config.Config, creds settings.Reader) []providers.Adapter {
	client := providers.ClientOptions{
		Timeout:    cfg.ProviderTimeout,
		MaxRetries: cfg.ProviderMaxRetries,
	}
	return []providers.Adapter{
		providers.NewImpactAdapter(creds, providers.Options{BaseURL: cfg.ImpactBaseURL, Client: client}),
		providers.NewAwinAdapter(creds, providers.Options{BaseURL: cfg.AwinBaseURL, Client: client}),
		providers.NewShareASaleAdapter(creds, providers.Options{BaseURL: cfg.ShareASaleBaseURL, Client: client}),
		providers.NewPartnerStackAdapter(creds, providers.Options{BaseURL: cfg.PartnerStackBaseURL, Client: client}),
	}
}
