// Package server assembles the service's long-lived components and runs the
// HTTP front end.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/sitescout/sitescout/internal/api"
	"github.com/sitescout/sitescout/internal/cache"
	"github.com/sitescout/sitescout/internal/clock/system"
	"github.com/sitescout/sitescout/internal/config"
	"github.com/sitescout/sitescout/internal/dispatcher"
	"github.com/sitescout/sitescout/internal/engine"
	"github.com/sitescout/sitescout/internal/extractor"
	"github.com/sitescout/sitescout/internal/fetcher"
	collyfetcher "github.com/sitescout/sitescout/internal/fetcher/colly"
	"github.com/sitescout/sitescout/internal/id/uuid"
	"github.com/sitescout/sitescout/internal/metrics"
	"github.com/sitescout/sitescout/internal/progress"
	progresssinks "github.com/sitescout/sitescout/internal/progress/sinks"
	"github.com/sitescout/sitescout/internal/scorer"
	"github.com/sitescout/sitescout/internal/search"
	"github.com/sitescout/sitescout/internal/store/memory"
)

// App contains the application's dependencies.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	apiServer *api.Server
	dispatch  *dispatcher.Dispatcher
	broker    *progress.Broker
	jobStore  *memory.JobStore
	cacheConn *cache.Redis
}

// NewApp builds every component from config. It fails fast: a misconfigured
// cache or sink surfaces here, not at first use.
func NewApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	logger.Info("creating application", zap.Int("port", cfg.Server.Port))

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	promSink, err := progresssinks.NewPrometheusSink(registry)
	if err != nil {
		return nil, fmt.Errorf("init prometheus sink: %w", err)
	}
	httpMetrics, err := metrics.NewHTTP(registry)
	if err != nil {
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	broker := progress.NewBroker(progress.Config{
		Retention: cfg.Retention(),
		Logger:    logger,
	}, progresssinks.NewLogSink(logger), promSink)

	jobStore := memory.NewJobStore(memory.Config{
		Retention: cfg.Retention(),
		MaxJobs:   cfg.Store.MaxJobs,
	}, broker.Forget)

	limiter := fetcher.NewHostLimiter(fetcher.LimiterConfig{
		RequestsPerSecond: cfg.Crawler.PerHostRPS,
		Burst:             cfg.Crawler.PerHostBurst,
	})
	base := collyfetcher.New(collyfetcher.Config{
		UserAgent:    cfg.Crawler.UserAgent,
		Timeout:      cfg.FetchTimeout(),
		MaxBodyBytes: cfg.Crawler.MaxBodyKB * 1024,
	})
	pool := fetcher.NewPool(base, cfg.Crawler.Workers, limiter, logger)

	var (
		resultCache search.ResultCache = cache.Noop{}
		cacheConn   *cache.Redis
	)
	if cfg.Cache.Enabled {
		cacheConn, err = cache.NewRedis(ctx, cache.RedisConfig{
			Addr: cfg.Cache.Addr,
			DB:   cfg.Cache.DB,
			TTL:  cfg.CacheTTL(),
		})
		if err != nil {
			return nil, fmt.Errorf("connect result cache: %w", err)
		}
		resultCache = cacheConn
		logger.Info("result cache enabled", zap.String("addr", cfg.Cache.Addr))
	}

	extract := extractor.New()
	score := scorer.New(cfg.Jobs.ContextSize)
	clock := system.New()
	engineCfg := engine.Config{
		Parallelism: cfg.Jobs.Parallelism,
		MaxRuntime:  cfg.JobRuntime(),
	}
	factory := func(job search.Job) dispatcher.Engine {
		return engine.New(job, engineCfg, pool, extract, score,
			resultCache, jobStore, broker, clock, logger)
	}
	dispatch := dispatcher.New(factory, dispatcher.Config{
		MaxConcurrentJobs: cfg.Jobs.MaxConcurrent,
		Logger:            logger,
	})

	apiServer := api.NewServer(jobStore, dispatch, broker, uuid.New(), clock, api.Options{
		RequestTimeout: time.Duration(cfg.Server.RequestTimeout) * time.Second,
		Gatherer:       registry,
		Metrics:        httpMetrics,
		Logger:         logger,
	})

	return &App{
		cfg:       cfg,
		logger:    logger,
		apiServer: apiServer,
		dispatch:  dispatch,
		broker:    broker,
		jobStore:  jobStore,
		cacheConn: cacheConn,
	}, nil
}

// Run starts the HTTP server and blocks until the context is cancelled or a
// termination signal arrives, then shuts everything down gracefully.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(a.cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}

	return a.Close(shutdownCtx)
}

// Close gracefully shuts down the long-lived components.
func (a *App) Close(ctx context.Context) error {
	if err := a.dispatch.Shutdown(ctx); err != nil {
		a.logger.Warn("dispatcher shutdown incomplete", zap.Error(err))
	}
	if err := a.broker.Close(ctx); err != nil {
		a.logger.Warn("broker close error", zap.Error(err))
	}
	a.jobStore.Close()
	if a.cacheConn != nil {
		if err := a.cacheConn.Close(); err != nil {
			a.logger.Warn("cache close error", zap.Error(err))
		}
	}
	a.logger.Info("shutdown complete")
	return nil
}
