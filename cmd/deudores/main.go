package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mbelgrano/deudores-bcra-go/internal/config"
	"github.com/mbelgrano/deudores-bcra-go/internal/domain"
	"github.com/mbelgrano/deudores-bcra-go/internal/handler"
	"github.com/mbelgrano/deudores-bcra-go/internal/infra/bcra"
	"github.com/mbelgrano/deudores-bcra-go/internal/infra/cache"
	"github.com/mbelgrano/deudores-bcra-go/internal/infra/observability"
	"github.com/mbelgrano/deudores-bcra-go/internal/infra/resilience"
	"github.com/mbelgrano/deudores-bcra-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("bcra_api_url", cfg.BCRAAPIURL),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Bool("insecure_skip_verify", cfg.InsecureSkipVerify),
		zap.Duration("batch_delay", cfg.BatchDelay),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("cache_ttl", cfg.CacheTTL),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "deudores-bcra")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	debtorCache := cache.New[*domain.DebtorStatus](cfg.CacheTTL)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("bcra-api")
	bulkhead := resilience.NewBulkhead(cfg.MaxConcurrency)

	// --- Registry client ---
	httpClient := bcra.NewHTTPClient(cfg.HTTPTimeout, cfg.InsecureSkipVerify)
	registryClient := bcra.NewClient(httpClient, cfg.BCRAAPIURL, cb, resilienceCfg, logger)

	// --- Services ---
	debtorSvc := service.NewDebtor(registryClient, debtorCache, metrics, logger)
	reportSvc := service.NewReport(registryClient, metrics, logger, cfg.BatchDelay, bulkhead)

	// --- Router ---
	router := handler.NewRouter(debtorSvc, reportSvc, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute, // batch aggregation paces one request per CUIT
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
