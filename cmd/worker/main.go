package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jeremyjsx/postdesk/internal/analytics"
	"github.com/jeremyjsx/postdesk/internal/cache"
	"github.com/jeremyjsx/postdesk/internal/config"
	"github.com/jeremyjsx/postdesk/internal/db"
	"github.com/jeremyjsx/postdesk/internal/events"
	"github.com/jeremyjsx/postdesk/internal/logging"
	"github.com/jeremyjsx/postdesk/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, logCloser := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	defer logCloser.Close()
	slog.SetDefault(logger)

	if cfg.RabbitMQURL == "" {
		logger.Error("RABBITMQ_URL is required")
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sqlDB, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	var results cache.Cache
	if cfg.S3Bucket != "" {
		client, err := storage.NewS3Client(ctx, cfg.AWSRegion, cfg.S3Endpoint)
		if err != nil {
			logger.Error("failed to create s3 client", "error", err)
			os.Exit(1)
		}
		results = cache.NewObject(storage.NewS3Storage(client, cfg.S3Bucket), cfg.CachePrefix)
	} else {
		logger.Warn("S3_BUCKET not set, cached results stay in this process")
		results = cache.NewMemory()
	}

	processor := analytics.NewProcessor(analytics.NewPostgresSource(sqlDB), results, cfg.AnalyticsCacheTTL, logger)

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	jobsCh, err := conn.Channel()
	if err != nil {
		logger.Error("failed to open channel", "error", err)
		os.Exit(1)
	}
	defer jobsCh.Close()
	if err := jobsCh.Qos(cfg.AnalyticsWorkers, 0, false); err != nil {
		logger.Error("failed to set qos", "error", err)
		os.Exit(1)
	}

	eventsCh, err := conn.Channel()
	if err != nil {
		logger.Error("failed to open channel", "error", err)
		os.Exit(1)
	}
	defer eventsCh.Close()

	queue, err := analytics.NewRabbitMQQueue(cfg.RabbitMQURL)
	if err != nil {
		logger.Error("failed to connect analytics queue", "error", err)
		os.Exit(1)
	}
	defer queue.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	run := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				logger.Error("worker component stopped", "component", name, "error", err)
			}
			cancel()
		}()
	}

	run("jobs", func() error {
		return analytics.Serve(ctx, jobsCh, analytics.WithTimeout(processor, cfg.AnalyticsJobTimeout), cfg.AnalyticsWorkers, logger)
	})
	run("events", func() error {
		return events.Consume(ctx, eventsCh, events.LogEvent(logger), logger)
	})
	run("scheduler", func() error {
		analytics.NewScheduler(queue, analytics.DefaultSchedules, logger).Start(ctx)
		return nil
	})

	<-ctx.Done()
	logger.Info("worker shutting down")
	wg.Wait()
	logger.Info("worker stopped")
}
