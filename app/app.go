// Package app is the composition root. It wires the clock, cache store,
// cache manager, recovery handler, and wrapped documentation services
// from configuration, and owns their lifecycle.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/docforge/docforge/cache"
	redisstore "github.com/docforge/docforge/cache/redis"
	"github.com/docforge/docforge/clock"
	"github.com/docforge/docforge/config"
	"github.com/docforge/docforge/docs"
	"github.com/docforge/docforge/logger"
	"github.com/docforge/docforge/recovery"
)

// healthLogInterval is how often Run logs a cache health snapshot.
const healthLogInterval = time.Minute

// App holds the assembled object graph.
type App struct {
	cfg *config.Config
	log logger.Logger
	clk clock.Clock

	store   cache.Store
	cache   *cache.Manager
	handler *recovery.Handler
	runner  docs.Runner

	probes []HealthProbe

	closeCh   chan struct{}
	closeOnce sync.Once
}

// New assembles an application from configuration. Every dependency is
// built here; nothing reaches for globals.
func New(cfg *config.Config, log logger.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if log == nil {
		log = logger.New(cfg.Log.Level, cfg.Log.Pretty)
	}

	clk := clock.NewReal()

	store, err := buildStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("building cache store: %w", err)
	}

	manager, err := cache.NewManager(store, clk, log, cfg.CacheManagerConfig())
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("building cache manager: %w", err)
	}

	handler := recovery.NewHandler(cfg.HandlerConfig(), clk, log, manager)
	handler.AddAlertFunc(logAlerts(log))

	runner := buildRunner(cfg, handler, manager, clk, log)

	a := &App{
		cfg:     cfg,
		log:     log,
		clk:     clk,
		store:   store,
		cache:   manager,
		handler: handler,
		runner:  runner,
		closeCh: make(chan struct{}),
	}
	a.probes = []HealthProbe{
		cacheHealthProbe(manager),
		recoveryHealthProbe(handler, cfg.Recovery.Alerts.ErrorRate),
	}
	return a, nil
}

// buildStore picks the cache backend from configuration.
func buildStore(cfg *config.Config) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case config.BackendRedis:
		return redisstore.NewStore(&cfg.Cache.Redis)
	default:
		return cache.NewMemoryStore(), nil
	}
}

// buildRunner assembles the documentation pipeline with every stage
// wrapped in the recovery layer.
func buildRunner(cfg *config.Config, handler *recovery.Handler, manager *cache.Manager, clk clock.Clock, log logger.Logger) docs.Runner {
	parser := docs.NewWrappedParser(
		docs.NewGoParser(manager, log),
		recovery.NewWrapper(docs.ServiceParser, handler, clk, log))
	enhancer := docs.NewWrappedEnhancer(
		docs.NewStaticEnhancer(manager, log),
		recovery.NewWrapper(docs.ServiceEnhancer, handler, clk, log))
	renderer := docs.NewWrappedRenderer(
		docs.NewMarkupRenderer(manager, log),
		recovery.NewWrapper(docs.ServiceRenderer, handler, clk, log))

	return docs.NewPipeline(parser, enhancer, renderer, docs.PipelineOptions{
		Recursive: cfg.Docs.Recursive,
		Include:   cfg.Docs.Include,
		Exclude:   cfg.Docs.Exclude,
		Output:    cfg.Docs.Output,
		Format:    docs.Format(cfg.Docs.Format),
	}, clk, log)
}

// logAlerts routes recovery alerts into the structured log.
func logAlerts(log logger.Logger) recovery.AlertFunc {
	return func(alert recovery.Alert) {
		log.Warn().
			Str("alert_type", alert.Type).
			Int("count", alert.Count).
			Int("threshold", alert.Threshold).
			Msg(alert.Message)
	}
}

// Runner returns the documentation pipeline.
func (a *App) Runner() docs.Runner {
	return a.runner
}

// Cache returns the cache manager.
func (a *App) Cache() *cache.Manager {
	return a.cache
}

// Recovery returns the error handler.
func (a *App) Recovery() *recovery.Handler {
	return a.handler
}

// Run blocks until the context is canceled, an interrupt arrives, or
// Shutdown is called, while maintenance loops keep running.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.healthLoop(gctx) })

	a.log.Info().
		Str("env", a.cfg.App.Env).
		Str("backend", a.cfg.Cache.Backend).
		Msg("application started")

	select {
	case <-gctx.Done():
	case <-a.closeCh:
		a.log.Info().Msg("shutdown requested")
	case sig := <-quit:
		a.log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	}

	cancel()
	return g.Wait()
}

// healthLoop periodically logs the cache health snapshot so degradation
// shows up without polling an endpoint.
func (a *App) healthLoop(ctx context.Context) error {
	for {
		if err := a.clk.Sleep(ctx, healthLogInterval); err != nil {
			return nil
		}

		health := a.cache.HealthStatus()
		event := a.log.Debug()
		if health.Status != cache.StatusHealthy {
			event = a.log.Warn()
		}
		event.Str("status", health.Status).
			Interface("issues", health.Issues).
			Msg("cache health")
	}
}

// Shutdown stops Run, flushes the cache manager, and closes the store.
// Safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	a.closeOnce.Do(func() { close(a.closeCh) })

	if err := a.cache.Shutdown(ctx); err != nil {
		return fmt.Errorf("cache shutdown: %w", err)
	}
	a.log.Info().Msg("application stopped")
	return nil
}
