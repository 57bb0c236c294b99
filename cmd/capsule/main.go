package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"

	"github.com/platinummonkey/capsule/pkg/api"
	"github.com/platinummonkey/capsule/pkg/auth"
	"github.com/platinummonkey/capsule/pkg/config"
	"github.com/platinummonkey/capsule/pkg/memories"
	"github.com/platinummonkey/capsule/pkg/middleware"
	"github.com/platinummonkey/capsule/pkg/observability"
	"github.com/platinummonkey/capsule/pkg/provider"
	"github.com/platinummonkey/capsule/pkg/storage"
	"github.com/platinummonkey/capsule/pkg/upload"
	"github.com/platinummonkey/capsule/pkg/users"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithField("port", cfg.Server.Port).Info("Starting capsule")

	ctx := context.Background()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Error("Failed to open database")
		os.Exit(1)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = db.PingContext(pingCtx)
	cancel()
	if err != nil {
		logger.WithError(err).Error("Failed to reach database")
		os.Exit(1)
	}

	blobs, err := newBlobStore(ctx, cfg.Storage)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize blob storage")
		os.Exit(1)
	}
	logger.WithField("backend", cfg.Storage.Type).Info("Blob storage initialized")

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisURL,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			// Rate limiting fails open, so a missing Redis is not fatal
			logger.WithError(err).Warn("Redis unreachable at startup, rate limiting degraded")
		}
	}

	var otelProviders *observability.OTelProviders
	if cfg.Observability.OTelEnabled {
		otelProviders, err = observability.InitOTel(ctx, observability.OTelConfig{
			Enabled:        true,
			Endpoint:       cfg.Observability.OTelEndpoint,
			ServiceName:    cfg.Observability.OTelServiceName,
			ServiceVersion: cfg.Observability.OTelServiceVersion,
			Insecure:       cfg.Observability.OTelInsecure,
		}, logger)
		if err != nil {
			logger.WithError(err).Error("Failed to initialize tracing")
			os.Exit(1)
		}
	}

	metrics := observability.NewMetrics(nil)

	github, err := provider.NewGitHub(provider.GitHubConfig{
		ClientID:     cfg.GitHub.ClientID,
		ClientSecret: cfg.GitHub.ClientSecret,
		TokenURL:     cfg.GitHub.TokenURL,
		ProfileURL:   cfg.GitHub.ProfileURL,
	})
	if err != nil {
		logger.WithError(err).Error("Failed to configure identity provider")
		os.Exit(1)
	}
	directory := users.NewDirectory(db)
	codec := auth.NewCodec(cfg.Token.Secret, cfg.Token.TTL)
	authService := auth.NewService(github, directory, codec, logger)
	pipeline := upload.NewPipeline(blobs, cfg.Upload.MaxBytes)
	memoriesService := memories.NewService(db)

	var rateLimit *middleware.RateLimitMiddleware
	if redisClient != nil {
		rateLimit = middleware.NewRateLimitMiddleware(redisClient, middleware.DefaultRateLimitConfig(), logger)
	}

	server := api.NewServer(api.ServerConfig{
		Logger:         logger,
		Metrics:        metrics,
		AuthService:    authService,
		Codec:          codec,
		Pipeline:       pipeline,
		Blobs:          blobs,
		Memories:       memoriesService,
		RateLimit:      rateLimit,
		AllowedOrigins: cfg.CORSOrigins,
	})

	appServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthChecker := observability.NewHealthChecker(db, redisClient)
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/health", healthChecker.Liveness)
	healthMux.HandleFunc("/healthz", healthChecker.Liveness)
	healthMux.HandleFunc("/readyz", healthChecker.Readiness)
	if cfg.Observability.MetricsEnabled {
		healthMux.Handle("/metrics", metrics.Handler())
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	go func() {
		logger.WithField("addr", healthServer.Addr).Info("Health endpoints listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Health server failed")
		}
	}()

	shutdown := observability.NewShutdownManager(logger, appServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return db.Close()
	})
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			return redisClient.Close()
		})
	}
	if otelProviders != nil {
		shutdown.RegisterShutdownFunc(otelProviders.Shutdown)
	}

	go func() {
		logger.WithField("addr", appServer.Addr).Info("API listening")
		if err := appServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("API server failed")
			os.Exit(1)
		}
	}()

	if err := shutdown.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("Shutdown completed with errors")
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}

func newBlobStore(ctx context.Context, cfg storage.Config) (storage.BlobStore, error) {
	switch cfg.Type {
	case "s3":
		return storage.NewS3Store(ctx, cfg)
	default:
		return storage.NewFileSystemStore(cfg.FilesystemRoot)
	}
}
