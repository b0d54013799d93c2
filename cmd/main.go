package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/redis/go-redis/v9"

	"github.com/okian/podium/internal/adapters/cache/dedupe"
	"github.com/okian/podium/internal/adapters/cache/identity"
	"github.com/okian/podium/internal/adapters/cache/keys"
	"github.com/okian/podium/internal/adapters/cache/progress"
	"github.com/okian/podium/internal/adapters/cache/ranking"
	"github.com/okian/podium/internal/adapters/http/api"
	"github.com/okian/podium/internal/adapters/notify"
	"github.com/okian/podium/internal/adapters/prize"
	"github.com/okian/podium/internal/adapters/repository"
	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/config"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	a, err := build(ctx, cfg, loggerInstance)
	if err != nil {
		loggerInstance.Error(ctx, "failed to start", logger.Error(err))
		os.Exit(1)
	}

	metrics.Configure(
		metrics.WithMetricsEnabled(cfg.MetricsEnabled),
		metrics.WithRefreshInterval(cfg.MetricsRefresh()),
	)
	if metrics.Get().Enabled() {
		go startSystemMetricsUpdater(ctx, metrics.Get().RefreshInterval())
		go startServiceMetricsUpdater(ctx, a, metrics.Get().RefreshInterval())
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           a.handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	a.close(shutdownCtx)

	loggerInstance.Info(ctx, "server stopped")
}

// application holds the wired service and everything that must be closed
// when the process stops.
type application struct {
	svc        service.API
	handler    http.Handler
	dispatcher *notify.Dispatcher
	closers    []func(context.Context) error
	logger     logger.Logger
}

// build wires the cache, repository, messaging and HTTP layers from cfg.
// Notifications and prize awards are enabled only when NATSURL is set.
func build(ctx context.Context, cfg *config.Config, l logger.Logger) (*application, error) {
	a := &application{logger: l}
	ok := false
	defer func() {
		if !ok {
			a.close(context.Background())
		}
	}()

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	a.onClose(func(context.Context) error { return client.Close() })
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}

	repo, closeRepo, err := repository.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	a.onClose(func(context.Context) error { return closeRepo() })

	k := keys.New(cfg.CachePrefix)
	store := ranking.New(client,
		ranking.WithKeys(k),
		ranking.WithLockTTL(cfg.LockTTL()),
		ranking.WithLockRetries(cfg.LockRetryCount, cfg.LockRetryBackoff()),
		ranking.WithActiveWindow(cfg.ActiveWindow()),
		ranking.WithConcurrency(cfg.AdjustConcurrency),
		ranking.WithLogger(l.Named("ranking")),
	)
	trackerOpts := []progress.Option{progress.WithKeys(k), progress.WithLogger(l.Named("progress"))}

	svcOpts := []service.Option{
		service.WithIdentity(identity.New(client, k)),
		service.WithDeduper(dedupe.New(client, k, cfg.AwardDedupeTTL())),
		service.WithPersistBatchSize(cfg.PersistBatchSize),
		service.WithRetention(cfg.Retention()),
		service.WithMaxPageSize(cfg.MaxPageSize),
		service.WithDefaultCountry(cfg.DefaultCountry),
		service.WithLogger(l.Named("service")),
	}

	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name(cfg.NATSName))
		if err != nil {
			return nil, fmt.Errorf("nats connect %s: %w", cfg.NATSURL, err)
		}
		a.onClose(func(context.Context) error { return nc.Drain() })

		a.dispatcher = notify.NewDispatcher(notify.NewNATSSink(nc, cfg.NotifySubjectPrefix),
			notify.WithQueueSize(cfg.NotifyQueueSize),
			notify.WithWorkers(cfg.NotifyWorkerCount),
			notify.WithLogger(l.Named("notify")),
		)
		a.dispatcher.Start(ctx)
		a.onClose(a.dispatcher.Shutdown)
		trackerOpts = append(trackerOpts, progress.WithNotifier(a.dispatcher))
		svcOpts = append(svcOpts, service.WithNotifier(a.dispatcher))

		js, err := jetstream.New(nc)
		if err != nil {
			return nil, fmt.Errorf("jetstream: %w", err)
		}
		if err := prize.EnsureStream(ctx, js, cfg.PrizeSubject, l.Named("prize")); err != nil {
			return nil, err
		}
		svcOpts = append(svcOpts, service.WithAwarder(prize.NewJetStreamAwarder(js,
			prize.WithSubject(cfg.PrizeSubject),
			prize.WithLogger(l.Named("prize")),
		)))
	} else {
		l.Warn(ctx, "nats_url not set; notifications and prize awards are disabled")
	}

	a.svc = service.WithLogging(
		service.New(repo, store, progress.New(client, trackerOpts...), svcOpts...),
		l.Named("service"),
	)
	a.handler = api.NewServer(a.svc, l.Named("api")).Handler()
	ok = true
	return a, nil
}

func (a *application) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// close releases resources in reverse order of acquisition.
func (a *application) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn(ctx, "close failed", logger.Error(err))
		}
	}
	a.closers = nil
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
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

// startServiceMetricsUpdater refreshes gauges derived from the running service.
func startServiceMetricsUpdater(ctx context.Context, a *application, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if a.dispatcher != nil {
				metrics.UpdateQueueSize(a.dispatcher.Pending())
			}
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
