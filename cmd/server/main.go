package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/janisto/hello-api/internal/config"
	"github.com/janisto/hello-api/internal/http/health"
	"github.com/janisto/hello-api/internal/http/routes"
	applog "github.com/janisto/hello-api/internal/platform/logging"
	"github.com/janisto/hello-api/internal/platform/metrics"
	appmiddleware "github.com/janisto/hello-api/internal/platform/middleware"
	"github.com/janisto/hello-api/internal/platform/ratelimit"
	"github.com/janisto/hello-api/internal/platform/respond"
)

// Version can be overridden at build time: -ldflags "-X main.Version=1.2.3"
var Version = "dev"

const maxBodyBytes = 1 << 20 // 1 MB

func main() {
	os.Exit(run())
}

func run() int {
	ctx := context.Background()
	defer func() {
		// Syncing stdout/stderr fails with EINVAL on some platforms; nothing to do about it.
		_ = applog.Sync()
	}()
	if err := applog.Err(); err != nil {
		applog.LogError(ctx, "logger init error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		applog.LogError(ctx, "config load failed", err)
		return 1
	}
	if err := applog.SetLevel(cfg.LogLevel); err != nil {
		applog.LogError(ctx, "log level", err)
		return 1
	}
	applog.Sugar().Infow("configuration loaded",
		"port", cfg.Port,
		"logLevel", cfg.LogLevel,
		"metricsEnabled", cfg.Metrics.Enabled,
		"rateLimitRps", cfg.RateLimit.RPS,
	)

	srv := newServer(cfg, newRouter(cfg, metrics.NewCollector()))

	listenErr := make(chan error, 1)
	go func() {
		applog.LogInfo(ctx, "server listening", zap.String("addr", srv.Addr), zap.String("version", Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-listenErr:
		applog.LogError(ctx, "listen failed", err, zap.String("addr", srv.Addr))
		return 1
	case <-stop:
		applog.LogInfo(ctx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		applog.LogError(shutdownCtx, "server shutdown error", err)
		return 1
	}
	applog.LogInfo(ctx, "server exited")
	return 0
}

// newRouter assembles the middleware stack, fallbacks and routes.
func newRouter(cfg *config.Config, collector *metrics.Collector) http.Handler {
	router := chi.NewRouter()
	router.NotFound(respond.NotFoundHandler())
	router.MethodNotAllowed(respond.MethodNotAllowedHandler())

	router.Use(
		appmiddleware.Security(routes.DocsPath),
		appmiddleware.Vary(),
		appmiddleware.CORS(),
		appmiddleware.RequestID(),
		// RealIP trusts X-Real-IP and X-Forwarded-For; deploy behind a proxy that sets them.
		chimiddleware.RealIP,
		chimiddleware.RequestSize(maxBodyBytes),
		applog.RequestLogger(),
		applog.AccessLogger(),
		collector.Middleware(),
	)
	if cfg.RateLimit.Enabled() {
		limiter := ratelimit.NewIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		// Probes and scrapes must not be throttled.
		router.Use(ratelimit.Middleware(limiter, health.Path, cfg.Metrics.Path))
	}
	router.Use(respond.Recoverer())

	if cfg.Metrics.Enabled {
		router.Method(http.MethodGet, cfg.Metrics.Path, collector.Handler())
	}

	routes.Register(routes.NewAPI(router, Version))
	return router
}

func newServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    64 << 10, // 64 KB
	}
}
