package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"news_curator/internal/config"
	"news_curator/internal/dedup"
	"news_curator/internal/filter"
	"news_curator/internal/publisher"
	"news_curator/internal/ranker"
	"news_curator/internal/scheduler"
	"news_curator/internal/scorer/openai"
	"news_curator/internal/service"
	"news_curator/internal/source/rss"
	"news_curator/internal/source/searchapi"
	"news_curator/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
		URL:              cfg.RabbitMQ.URL,
		Exchange:         cfg.RabbitMQ.Exchange,
		ReportRoutingKey: cfg.RabbitMQ.ReportRoutingKey,
		AlertRoutingKey:  cfg.RabbitMQ.AlertRoutingKey,
		QueueName:        cfg.RabbitMQ.QueueName,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer rabbitMQ.Close()

	articleStore := postgres.NewArticleStore(db)
	publishedStore := postgres.NewPublishedItemStore(db)
	txManager := postgres.NewTransactionManager(db)

	sources := buildSources(cfg, logger)
	if len(sources) == 0 {
		logger.Error("no sources configured")
		os.Exit(1)
	}

	qualityFilter, err := filter.New(filter.Config{
		MaxAge:            cfg.Pipeline.MaxArticleAge,
		MinContentLength:  cfg.Pipeline.MinContentLength,
		AllowedLanguages:  cfg.Pipeline.AllowedLanguages,
		SpamPatterns:      cfg.Pipeline.SpamPatterns,
		RelevanceKeywords: cfg.Pipeline.RelevanceKeywords,
	})
	if err != nil {
		logger.Error("failed to build quality filter", "error", err)
		os.Exit(1)
	}

	textScorer := openai.New(openai.Config{
		BaseURL: cfg.Scorer.BaseURL,
		APIKey:  cfg.Scorer.APIKey,
		Model:   cfg.Scorer.Model,
		Timeout: cfg.Scorer.Timeout,
	}, logger)

	pipeline := service.NewPipelineService(
		sources,
		articleStore,
		publishedStore,
		txManager,
		rabbitMQ,
		dedup.New(cfg.Pipeline.SimilarityThreshold),
		qualityFilter,
		ranker.New(textScorer, cfg.Scorer.CallDelay, logger),
		logger,
		cfg.Pipeline,
	)

	analytics := service.NewAnalyticsService(
		publishedStore,
		rabbitMQ,
		logger,
		cfg.Analytics,
	)

	sched := scheduler.New(
		pipeline,
		analytics,
		cfg.Pipeline.Interval,
		cfg.Analytics.Interval,
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	logger.Info("starting news curator",
		"sources", len(sources),
		"pipeline_interval", cfg.Pipeline.Interval,
		"analytics_interval", cfg.Analytics.Interval,
	)

	if err := sched.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

func buildSources(cfg *config.Config, logger *slog.Logger) []service.Source {
	var sources []service.Source

	for _, feed := range cfg.Sources.RSS {
		sources = append(sources, rss.New(rss.Config{
			Name:           feed.Name,
			URL:            feed.URL,
			Timeout:        cfg.Sources.Timeout,
			MaxAttempts:    cfg.Sources.Retry.MaxAttempts,
			InitialBackoff: cfg.Sources.Retry.InitialBackoff,
			MaxBackoff:     cfg.Sources.Retry.MaxBackoff,
		}, logger))
	}

	if cfg.Sources.SearchAPI.Enabled() {
		sources = append(sources, searchapi.New(searchapi.Config{
			BaseURL:        cfg.Sources.SearchAPI.BaseURL,
			APIKey:         cfg.Sources.SearchAPI.APIKey,
			Query:          cfg.Sources.SearchAPI.Query,
			PageSize:       cfg.Sources.SearchAPI.PageSize,
			MaxPages:       cfg.Sources.SearchAPI.MaxPages,
			Timeout:        cfg.Sources.Timeout,
			MaxAttempts:    cfg.Sources.Retry.MaxAttempts,
			InitialBackoff: cfg.Sources.Retry.InitialBackoff,
			MaxBackoff:     cfg.Sources.Retry.MaxBackoff,
		}, logger))
	}

	return sources
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
