package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/Akshatoff/Alloc8/internal/api/router"
	"github.com/Akshatoff/Alloc8/internal/chat"
	appconfig "github.com/Akshatoff/Alloc8/internal/config"
	"github.com/Akshatoff/Alloc8/internal/gateway"
	"github.com/Akshatoff/Alloc8/internal/http/handlers"
	"github.com/Akshatoff/Alloc8/internal/observability/metrics"
	"github.com/Akshatoff/Alloc8/internal/planner"
	"github.com/Akshatoff/Alloc8/internal/plans"
	"github.com/Akshatoff/Alloc8/internal/session"
	"github.com/Akshatoff/Alloc8/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting alloc8 API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gatewayMetrics := metrics.NewGatewayMetrics(nil)
	sessionMetrics := metrics.NewSessionMetrics(nil)

	primary, err := gateway.NewGeminiClient(gateway.GeminiConfig{
		APIKey:      cfg.GeminiAPIKey,
		ModelID:     cfg.GeminiModelID,
		Endpoint:    cfg.GeminiEndpoint,
		MaxAttempts: cfg.GatewayMaxAttempts,
		BaseDelay:   cfg.GatewayBaseDelay,
		HTTPClient:  &http.Client{Timeout: cfg.GatewayCallTimeout},
	}, logger, gatewayMetrics)
	if err != nil {
		logger.Error("failed to configure gemini client", "error", err)
		os.Exit(1)
	}

	var secondary gateway.Generator
	if cfg.GeminiSDKFallback {
		sdkClient, err := gateway.NewGenAIClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Warn("sdk fallback unavailable", "error", err)
		} else {
			defer func() { _ = sdkClient.Close() }()
			secondary = sdkClient
		}
	}
	generator := gateway.NewFallbackGenerator(primary, secondary, logger)

	sessions := session.NewManager(generator, logger, sessionMetrics, cfg.SessionIdleTTL)
	sessions.StartReaper(ctx, time.Minute)

	plannerClient, err := planner.NewClient(planner.Config{
		BaseURL: cfg.PlannerBaseURL,
		Timeout: cfg.PlannerTimeout,
	}, logger, sessionMetrics)
	if err != nil {
		logger.Error("failed to configure planner client", "error", err)
		os.Exit(1)
	}

	var (
		store plans.Store
		feed  plans.Feed
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		store = plans.NewPostgresStore(pool)
		logger.Info("plan storage: postgres")
	} else {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		client := redis.NewClient(opts)
		defer func() { _ = client.Close() }()
		redisStore := plans.NewRedisStore(client, logger)
		store = redisStore
		feed = redisStore
		logger.Info("plan storage: redis", "addr", cfg.RedisAddr)
	}

	tuning := planner.Tuning{
		VehicleCapacity:  cfg.VehicleCapacity,
		MaxFleetSize:     cfg.MaxFleetSize,
		TimeLimitSeconds: cfg.TimeLimitSeconds,
	}

	sessionsHandler := handlers.NewSessionsHandler(sessions, plannerClient, store, logger, tuning, cfg.OrgID)
	plansHandler := handlers.NewPlansHandler(store, feed, logger, cfg.OrgID)
	chatHandler := chat.NewHandler(sessions, plannerClient, store, tuning, cfg.OrgID, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		Sessions:           sessionsHandler,
		Plans:              plansHandler,
		Chat:               chatHandler,
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
