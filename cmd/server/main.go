// Command server runs the URL shortener HTTP API.
//
// Dependency flow: config -> stores -> click recorder -> services -> handler.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shorturl/internal/bootstrap"
	"shorturl/internal/clickqueue"
	"shorturl/internal/config"
	httpHandler "shorturl/internal/handler/http"
	"shorturl/internal/ratelimit"
	"shorturl/internal/service"
	"shorturl/internal/shortcode"
	"shorturl/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.NewWithFormat(cfg.App.LogLevel, cfg.App.LogFormat, os.Stdout)
	appLogger.Info("Starting URL Shortener",
		"environment", cfg.App.Environment,
		"port", cfg.Server.Port,
		"driver", cfg.Database.Driver,
	)

	ctx := context.Background()
	stores, err := bootstrap.Open(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to open stores", "error", err)
		os.Exit(1)
	}
	defer stores.Close()

	// Clicks are written off the redirect path.
	recorder := clickqueue.New(stores.Clicks, clickqueue.Options{
		QueueSize:    cfg.Clicks.QueueSize,
		Workers:      cfg.Clicks.Workers,
		WriteTimeout: cfg.Clicks.WriteTimeout,
	}, appLogger)

	var cache service.Cache
	if stores.Cache != nil {
		cache = stores.Cache
	}

	urlService := service.NewURLService(stores.URLs, cache, shortcode.New(cfg.App.ShortCodeLength), recorder, appLogger)
	analyticsService := service.NewAnalyticsService(stores.URLs, stores.Clicks)
	bulkService := service.NewBulkService(urlService, cfg.Bulk.MaxItems, cfg.Bulk.Parallelism, appLogger)

	handler := httpHandler.NewHandler(urlService, analyticsService, bulkService, appLogger, cfg.Server.BaseURL)
	handler.AddReadinessCheck("database", stores.DB)
	if stores.Cache != nil {
		handler.AddReadinessCheck("redis", stores.Cache)
		if cfg.App.RateLimitEnabled {
			handler.WithRateLimiter(ratelimit.New(stores.Redis, "write", cfg.App.RateLimitPerMinute, time.Minute))
		}
	}

	mux := handler.Routes()
	if cfg.App.EnableMetrics {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	// Outermost first: Recovery must see panics from every other layer.
	finalHandler := httpHandler.Chain(
		httpHandler.RecoveryMiddleware(appLogger),
		httpHandler.RequestIDMiddleware,
		httpHandler.CORSMiddleware,
		httpHandler.TimeoutMiddleware(cfg.Server.RequestTimeout),
		httpHandler.LoggingMiddleware(appLogger),
		httpHandler.MetricsMiddleware,
	)(mux)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      finalHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		appLogger.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		appLogger.Info("Shutting down server...", "signal", sig.String())
	case err := <-serverErr:
		appLogger.Error("Server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}

	// Drain queued clicks before the stores close.
	if err := recorder.Stop(shutdownCtx); err != nil {
		appLogger.Warn("Click queue not fully drained", "error", err)
	}

	appLogger.Info("Server exited gracefully")
}
