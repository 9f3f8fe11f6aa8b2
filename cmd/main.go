package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/mingle/internal/adapters/http/api"
	"github.com/okian/mingle/internal/adapters/http/swagger"
	repository "github.com/okian/mingle/internal/adapters/repository"
	app "github.com/okian/mingle/internal/app"
	"github.com/okian/mingle/internal/auth"
	"github.com/okian/mingle/internal/config"
	"github.com/okian/mingle/internal/domain/scoring"
	"github.com/okian/mingle/pkg/logger"
	"github.com/okian/mingle/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// logger isn't available yet
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.InitWith(os.Stdout, logger.Format(cfg.LogFormat)); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() { _ = logger.Sync() }()

	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, err := newService(ctx, cfg, loggerInstance)
	if err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	handler, err := newHandler(cfg, svc, loggerInstance)
	if err != nil {
		loggerInstance.Error(ctx, "failed to build HTTP handler", logger.Error(err))
		return
	}

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// newService opens the configured store and starts the matchmaking service.
func newService(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.Service, error) {
	backend, err := repository.Open(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	scorer := scoring.NewCompatibilityScorer(
		scoring.WithWeights(cfg.InterestWeight, cfg.SurveyWeight),
		scoring.WithPoints(cfg.InterestPoints, cfg.MultiChoicePoints, cfg.SingleChoicePoints),
	)

	svc := app.New(
		app.WithLogger(log),
		app.WithBackend(backend),
		app.WithScorer(scorer),
		app.WithTopK(cfg.TopK),
		app.WithLookupConcurrency(cfg.LookupConcurrency),
		app.WithRequestTimeout(time.Duration(cfg.RequestTimeoutMS)*time.Millisecond),
	)
	if err := svc.Start(ctx); err != nil {
		_ = backend.Close()
		return nil, err
	}
	return svc, nil
}

// newHandler builds the HTTP routes served by the process.
func newHandler(cfg *config.Config, svc *app.Service, log logger.Logger) (http.Handler, error) {
	var opts []auth.Option
	if cfg.JWTIssuer != "" {
		opts = append(opts, auth.WithIssuer(cfg.JWTIssuer))
	}
	tokens, err := auth.NewManager(cfg.JWTSecret, opts...)
	if err != nil {
		return nil, err
	}

	server := api.NewServer(svc, svc,
		api.WithTokenValidator(tokens),
		api.WithCORSOrigins(cfg.CORSAllowedOrigins),
		api.WithRateLimit(cfg.RateLimitPerMinute),
		api.WithLogger(log),
		api.WithRoutes(swagger.Register),
	)
	return server.Router(), nil
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
