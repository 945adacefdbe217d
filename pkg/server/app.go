package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"SynthFeed/internal/domain/repository"
	mid "SynthFeed/internal/middleware"
	"SynthFeed/internal/usecase"
	pkgch "SynthFeed/pkg/clickhouse"
	"SynthFeed/pkg/config"
	xhttp "SynthFeed/pkg/http"
	applogger "SynthFeed/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	feed       repository.Feed
	runner     *usecase.FeedRunner
	pipeline   *mid.PublishPipeline
	chClient   *pkgch.Client
	cache      io.Closer
	handlers   []xhttp.Handler
	httpServer *xhttp.Server
	runnerDone chan struct{}
	closers    []io.Closer
}

// New creates a new App instance with all dependencies. chClient and cache
// may be nil when the source does not use them.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	feed repository.Feed,
	runner *usecase.FeedRunner,
	pipeline *mid.PublishPipeline,
	chClient *pkgch.Client,
	cache io.Closer,
	handlers []xhttp.Handler,
) *App {
	return &App{
		cfg:        cfg,
		l:          l,
		feed:       feed,
		runner:     runner,
		pipeline:   pipeline,
		chClient:   chClient,
		cache:      cache,
		handlers:   handlers,
		runnerDone: make(chan struct{}),
	}
}

// CloseOnShutdown registers c to be closed after every other component.
func (a *App) CloseOnShutdown(c io.Closer) {
	a.closers = append(a.closers, c)
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsPath := ""
	if a.cfg.Metrics.Enabled {
		metricsPath = a.cfg.Metrics.Path
	}
	a.httpServer = xhttp.NewServer(a.l, a.handlers,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
	)

	a.pipeline.Start(ctx)
	a.l.Info("publish pipeline started", applogger.Strings("sinks", a.pipeline.Sinks()))

	go func() {
		defer close(a.runnerDone)
		if err := a.runner.Run(ctx); err != nil {
			a.l.Error("feed runner error", applogger.Error(err))
		}
	}()

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}

	<-ctx.Done()
	a.l.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	a.l.Info("shutting down...")

	// The runner observes the cancelled context before its next step.
	<-a.runnerDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	// Flush log digests while the kafka producer is still open.
	a.l.RemoveCollector()

	// Flushes queued ticks, then closes publishers (websocket hub, kafka producer).
	if err := a.pipeline.Close(); err != nil {
		a.l.Warn("publisher close error", applogger.Error(err))
	}

	if err := a.feed.Close(); err != nil {
		a.l.Warn("feed close error", applogger.Error(err))
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.l.Warn("window cache close error", applogger.Error(err))
		}
	}

	// Close infrastructure clients
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.l.Warn("close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete", applogger.Int64("steps", a.runner.Steps()))
	return nil
}
