// Command ethos serves the trait progression API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/ethos/internal/adapters/http/api"
	"github.com/okian/ethos/internal/adapters/http/swagger"
	"github.com/okian/ethos/internal/adapters/repository"
	"github.com/okian/ethos/internal/adapters/repository/sqlite"
	app "github.com/okian/ethos/internal/app"
	"github.com/okian/ethos/internal/config"
	"github.com/okian/ethos/pkg/logger"
	"github.com/okian/ethos/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		// The logger may not exist yet.
		_, _ = os.Stderr.WriteString("ethos: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	m := metrics.NewManager(metrics.WithRuntimeCollectors())

	store, err := openStore(ctx, cfg, m)
	if err != nil {
		return err
	}
	log.Info(ctx, "store opened", logger.String("driver", cfg.StoreDriver))

	svc := app.New(
		app.WithLogger(log.Named("service")),
		app.WithMetrics(m),
		app.WithStore(store),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithToastHistory(cfg.ToastHistory),
		app.WithAutoCommit(cfg.AutoCommit),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(svc, log.Named("http"), m),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for shutdown signal or a listener failure.
	var runErr error
	select {
	case <-ctx.Done():
		log.Info(ctx, "shutting down server...")
	case err := <-serveErr:
		runErr = fmt.Errorf("http server: %w", err)
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "service shutdown failed", logger.Error(err))
	}

	log.Info(shutdownCtx, "server stopped")
	return runErr
}

func newLogger(cfg *config.Config) (logger.Logger, error) {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	lv := new(slog.LevelVar)
	lv.Set(level)
	log, err := logger.New(logger.WithFormat(cfg.LogFormat), logger.WithLevelVar(lv))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return log, nil
}

func openStore(ctx context.Context, cfg *config.Config, m *metrics.Manager) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath, sqlite.WithMetrics(m))
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	case config.StoreMemory:
		return repository.NewMemoryStore(repository.WithMetrics(m)), nil
	default:
		return nil, fmt.Errorf("%w: unknown store_driver %q", config.ErrInvalidConfig, cfg.StoreDriver)
	}
}

// newHandler mounts the API and the docs on one router.
func newHandler(svc *app.Service, log logger.Logger, m *metrics.Manager) http.Handler {
	r := api.NewServer(svc, api.WithLogger(log), api.WithMetrics(m)).Router()
	swagger.Register(r)
	return r
}

// startServiceMetricsUpdater periodically refreshes the gauges derived from
// service stats.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = svc.GetStats(ctx)
		}
	}
}
