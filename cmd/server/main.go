package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/stackpitch/venturerank/internal/adapters/cache"
	"github.com/stackpitch/venturerank/internal/adapters/http/api"
	"github.com/stackpitch/venturerank/internal/adapters/repository"
	app "github.com/stackpitch/venturerank/internal/app"
	"github.com/stackpitch/venturerank/internal/config"
	"github.com/stackpitch/venturerank/internal/domain/ratelimit"
	"github.com/stackpitch/venturerank/internal/domain/scoring"
	"github.com/stackpitch/venturerank/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Disable default Go metrics collection; the service registry only
	// carries domain metrics.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Optional .env for local development; absence is not an error.
	_ = godotenv.Load()

	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, err := repository.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error(ctx, "failed to connect to postgres", logger.Error(err))
		return
	}
	defer store.Close()

	pageCache := buildCache(ctx, cfg, log)
	limiter := ratelimit.New(pageCache,
		ratelimit.WithWindow(time.Duration(cfg.VoteRateLimitSeconds)*time.Second),
	)

	// Create and start the service with configuration options
	svc := app.New(
		app.WithLogger(log),
		app.WithStore(store),
		app.WithCache(pageCache),
		app.WithLimiter(limiter),
		app.WithCalculator(scoring.New(scoring.WithWeights(weightsFrom(cfg.ScoringWeights)))),
		app.WithCacheTTL(time.Duration(cfg.CacheTTLSeconds)*time.Second),
		app.WithDefaultLimit(cfg.DefaultLimit),
		app.WithMaxLimit(cfg.MaxLeaderboardLimit),
	)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	// HTTP mux and routes.
	mux := http.NewServeMux()
	auth := api.NewAuthenticator(cfg.JWTSecret)
	apiServer := api.NewServer(svc, svc, auth)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// buildCache prefers Redis and falls back to the in-process cache when no
// address is configured or the connection fails.
func buildCache(ctx context.Context, cfg *config.Config, log logger.Logger) cache.Cache {
	if cfg.RedisAddr == "" {
		log.Info(ctx, "no redis address configured, using in-process cache")
		return cache.NewMemoryCache()
	}
	rc, err := cache.NewRedisCache(ctx, cfg.RedisAddr)
	if err != nil {
		log.Warn(ctx, "redis unavailable, using in-process cache",
			logger.String("addr", cfg.RedisAddr), logger.Error(err))
		return cache.NewMemoryCache()
	}
	log.Info(ctx, "connected to redis", logger.String("addr", cfg.RedisAddr))
	return rc
}

// weightsFrom maps the configured weight table onto the calculator's
// shape. Missing keys read as zero; the calculator rejects degenerate
// weight sets and keeps its defaults.
func weightsFrom(m map[string]float64) scoring.Weights {
	return scoring.Weights{
		Growth:     m["growth"],
		Traction:   m["traction"],
		Validation: m["validation"],
		Execution:  m["execution"],
		Engagement: m["engagement"],
	}
}
