package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spacesedan/narratives/config"
	"github.com/spacesedan/narratives/internal/alerts"
	"github.com/spacesedan/narratives/internal/bot"
	"github.com/spacesedan/narratives/internal/clients"
	"github.com/spacesedan/narratives/internal/clients/kafka_client"
	"github.com/spacesedan/narratives/internal/clustering"
	"github.com/spacesedan/narratives/internal/db"
	"github.com/spacesedan/narratives/internal/logging"
	"github.com/spacesedan/narratives/internal/monitoring"
	"github.com/spacesedan/narratives/internal/narrative"
	"github.com/spacesedan/narratives/internal/pipeline"
	"github.com/spacesedan/narratives/internal/processing"
	"github.com/spacesedan/narratives/internal/sentiment"
)

func main() {
	config.LoadEnv(os.Getenv("APP_ENV"))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("[Main] Invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := logging.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collectors := buildCollectors(cfg, logger)
	if len(collectors) == 0 {
		logger.Error("[Main] No data sources available, check MONITORING_SOURCES and credentials")
		os.Exit(1)
	}

	engine := pipeline.NewEngine(
		sentiment.NewScorer(logger),
		clustering.NewClusterer(cfg.Detection.Clustering(), logger),
		narrative.NewDetector(cfg.Detection.Narrative(), logger),
		logger,
	)

	notifier, closeAlerts := buildNotifier(ctx, cfg, logger)
	defer closeAlerts()

	store := buildStore(ctx, cfg, logger)
	if store != nil {
		defer store.Close()
	}

	deps := bot.Deps{
		Collectors: collectors,
		Normalizer: processing.NewNormalizer(logger),
		Engine:     engine,
		Notifier:   notifier,
		Store:      store,
		Writer:     db.NewResultsWriter(cfg.Monitoring.OutputDir, logger),
	}

	if cfg.Health.Enabled {
		health := monitoring.NewHealth(cfg.Health.Addr, logger)
		health.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := health.Shutdown(shutdownCtx); err != nil {
				logger.Warn("[Main] Health server shutdown", slog.String("error", err.Error()))
			}
		}()
		deps.Health = health
	}

	b, err := bot.New(deps, cfg.Monitoring.CycleTimeout, logger)
	if err != nil {
		logger.Error("[Main] Failed to build bot", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := b.Start(ctx, cfg.Monitoring.Interval); err != nil {
		logger.Error("[Main] Bot stopped", slog.String("error", err.Error()))
	}
	logger.Info("[Main] Shutdown complete")
}

func buildCollectors(cfg config.Config, logger *slog.Logger) []processing.Collector {
	var collectors []processing.Collector

	if cfg.SourceEnabled(config.SourceNewsAPI) {
		if cfg.News.APIKey == "" {
			logger.Warn("[Main] NEWS_API_KEY not set, skipping NewsAPI")
		} else {
			client := clients.NewNewsAPIClient(clients.NewsAPIOptions{
				APIKey:   cfg.News.APIKey,
				Sources:  cfg.News.Sources,
				Country:  cfg.News.Country,
				PageSize: cfg.News.MaxArticles,
			}, logger)
			collectors = append(collectors, processing.NewNewsCollector(client))
		}
	}

	if cfg.SourceEnabled(config.SourceRSS) {
		feeds, err := config.LoadFeeds(cfg.Monitoring.RSSFeedsFile)
		switch {
		case err != nil:
			logger.Warn("[Main] Could not load RSS feeds", slog.String("error", err.Error()))
		case len(feeds) == 0:
			logger.Warn("[Main] No RSS feeds configured", slog.String("file", cfg.Monitoring.RSSFeedsFile))
		default:
			collectors = append(collectors, processing.NewRSSCollector(clients.NewRSSClient(logger), feeds, logger))
		}
	}

	if cfg.SourceEnabled(config.SourceReddit) {
		client, err := clients.NewRedditClient(clients.RedditOptions{
			ClientID:          cfg.Reddit.ClientID,
			ClientSecret:      cfg.Reddit.ClientSecret,
			RequestsPerMinute: cfg.Reddit.RequestsPerMinute,
		}, logger)
		if err != nil {
			logger.Warn("[Main] Skipping Reddit", slog.String("error", err.Error()))
		} else {
			collectors = append(collectors,
				processing.NewRedditCollector(client, cfg.Reddit.Subreddits, cfg.Reddit.Limit, logger))
		}
	}

	return collectors
}

func buildNotifier(ctx context.Context, cfg config.Config, logger *slog.Logger) (*alerts.Notifier, func()) {
	sinks := []alerts.Sink{alerts.NewLogSink(logger)}
	var opts []alerts.Option
	var closers []func()

	if cfg.Alerts.KafkaEnabled {
		producer, err := kafka_client.NewProducer(ctx, kafka_client.KafkaConfig{
			Broker: cfg.Alerts.KafkaBootstrap,
			Topic:  cfg.Alerts.KafkaTopic,
		}, logger)
		if err != nil {
			logger.Warn("[Main] Kafka unavailable, alerts go to the log only", slog.String("error", err.Error()))
		} else {
			sinks = append(sinks, alerts.NewKafkaSink(producer, cfg.Alerts.KafkaTopic, logger))
			closers = append(closers, producer.Close)
		}
	}

	if cfg.Alerts.ValkeyAddress != "" {
		vc, err := clients.NewValkeyClient(clients.ValkeyOptions{
			Address:  cfg.Alerts.ValkeyAddress,
			Password: cfg.Alerts.ValkeyPassword,
		}, logger)
		if err != nil {
			logger.Warn("[Main] Valkey unavailable, alert cooldown disabled", slog.String("error", err.Error()))
		} else {
			opts = append(opts, alerts.WithCooldown(vc, cfg.Alerts.Cooldown))
			closers = append(closers, vc.Close)
		}
	}

	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return alerts.NewNotifier(cfg.Alerts.Threshold, sinks, logger, opts...), closeAll
}

func buildStore(ctx context.Context, cfg config.Config, logger *slog.Logger) db.NarrativeStore {
	if !cfg.Database.Enabled {
		return nil
	}

	switch cfg.Database.Driver {
	case "dynamodb":
		awsCfg, err := clients.LoadAWSConfig(ctx, clients.AWSOptions{
			Region:   cfg.Database.AWSRegion,
			Endpoint: cfg.Database.AWSEndpoint,
		}, logger)
		if err != nil {
			logger.Warn("[Main] DynamoDB unavailable, narratives will not be stored", slog.String("error", err.Error()))
			return nil
		}
		client := clients.NewDynamoDBClient(awsCfg, cfg.Database.AWSEndpoint)
		return db.NewDynamoStore(client, cfg.Database.DynamoDBTable, logger)
	default:
		store, err := db.OpenSQLite(cfg.Database.SQLitePath, logger)
		if err != nil {
			logger.Warn("[Main] SQLite unavailable, narratives will not be stored", slog.String("error", err.Error()))
			return nil
		}
		return store
	}
}
