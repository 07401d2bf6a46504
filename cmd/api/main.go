package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/cors"

	"github.com/jeremyjsx/postdesk/internal/analytics"
	"github.com/jeremyjsx/postdesk/internal/cache"
	"github.com/jeremyjsx/postdesk/internal/config"
	"github.com/jeremyjsx/postdesk/internal/db"
	"github.com/jeremyjsx/postdesk/internal/events"
	"github.com/jeremyjsx/postdesk/internal/handlers"
	"github.com/jeremyjsx/postdesk/internal/logging"
	"github.com/jeremyjsx/postdesk/internal/middleware"
	"github.com/jeremyjsx/postdesk/internal/posts"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		sqlDB    *sql.DB
		repo     posts.Repository
		versions posts.VersionRepository
		source   analytics.Source
	)
	if cfg.DatabaseURL != "" {
		sqlDB, err = db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer sqlDB.Close()
		if err := db.Migrate(ctx, sqlDB); err != nil {
			logger.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		repo = posts.NewPostgresRepository(sqlDB)
		versions = posts.NewPostgresVersionRepository(sqlDB)
		source = analytics.NewPostgresSource(sqlDB)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		store := posts.NewMemoryStore()
		repo, versions = store.Posts(), store.Versions()
		source = analytics.NewMemorySource(store)
	}

	var (
		objects storage.Storage
		results cache.Cache
	)
	if cfg.S3Bucket != "" {
		client, err := storage.NewS3Client(ctx, cfg.AWSRegion, cfg.S3Endpoint)
		if err != nil {
			logger.Error("failed to create s3 client", "error", err)
			os.Exit(1)
		}
		objects = storage.NewS3Storage(client, cfg.S3Bucket)
		results = cache.NewObject(objects, cfg.CachePrefix)
	} else {
		logger.Warn("S3_BUCKET not set, analytics cache is per process")
		results = cache.NewMemory()
	}

	var (
		publisher events.Publisher = events.NoopPublisher{}
		queue     analytics.Queue
	)
	if cfg.RabbitMQURL != "" {
		p, err := events.NewRabbitMQPublisher(cfg.RabbitMQURL)
		if err != nil {
			logger.Error("failed to connect event publisher", "error", err)
			os.Exit(1)
		}
		defer p.Close()
		publisher = p

		q, err := analytics.NewRabbitMQQueue(cfg.RabbitMQURL)
		if err != nil {
			logger.Error("failed to connect analytics queue", "error", err)
			os.Exit(1)
		}
		defer q.Close()
		queue = q
	} else {
		logger.Warn("RABBITMQ_URL not set, running analytics jobs in process")
		proc := analytics.NewProcessor(source, results, cfg.AnalyticsCacheTTL, logger)
		q := analytics.NewLocalQueue(proc, cfg.AnalyticsWorkers, cfg.AnalyticsJobTimeout, logger)
		defer q.Close()
		queue = q
	}

	postsHandler := handlers.NewPostsHandler(posts.NewService(repo, versions, publisher, logger), logger)
	analyticsHandler := handlers.NewAnalyticsHandler(
		analytics.NewService(results, queue, logger), cfg.AnalyticsJobTimeout, logger)

	mux := http.NewServeMux()
	handlers.Register(mux, postsHandler, analyticsHandler, handlers.Health(&handlers.HealthDeps{
		DB:          sqlDB,
		Storage:     objects,
		RabbitMQURL: cfg.RabbitMQURL,
	}))

	handler := middleware.Chain(mux,
		middleware.RequestID,
		middleware.Recover(logger),
		middleware.Logging(logger),
		middleware.Compress(6, "application/json"),
		cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Authorization", "X-API-Key", "X-Change-Reason", "X-Changed-By", middleware.RequestIDHeader, middleware.NoCompressionHeader},
			ExposedHeaders: []string{middleware.RequestIDHeader},
			MaxAge:         300,
		}),
		middleware.APIKey(cfg.APIKey, "/health"),
	)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logger.Error("server failed", "error", err)
		os.Exit(1)
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	logger.Info("server stopped")
}
