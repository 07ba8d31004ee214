package server

import (
	"context"
	"errors"
	"io"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"CoinPulse/internal/domain/repository"
	"CoinPulse/internal/usecase"
	"CoinPulse/pkg/config"
	xhttp "CoinPulse/pkg/http"
	applogger "CoinPulse/pkg/logger"
)

// Janitor is periodic housekeeping, such as dropping idle rate-limit buckets.
type Janitor func()

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	scheduler  *usecase.Scheduler
	publisher  *usecase.Publisher
	store      repository.SnapshotStore
	httpServer *xhttp.Server
	janitors   []Janitor
	closers    []io.Closer
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	scheduler *usecase.Scheduler,
	publisher *usecase.Publisher,
	store repository.SnapshotStore,
	httpServer *xhttp.Server,
) *App {
	return &App{
		cfg:        cfg,
		logger:     logger,
		scheduler:  scheduler,
		publisher:  publisher,
		store:      store,
		httpServer: httpServer,
	}
}

// AddJanitor registers housekeeping run once a minute while the app is up.
func (a *App) AddJanitor(j Janitor) { a.janitors = append(a.janitors, j) }

// AddCloser registers a resource closed after the store on shutdown.
func (a *App) AddCloser(c io.Closer) {
	if c != nil {
		a.closers = append(a.closers, c)
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts the scheduler and HTTP server and blocks until ctx is done.
func (a *App) RunContext(ctx context.Context) error {
	primeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := a.publisher.Prime(primeCtx); err != nil {
		// Not fatal: push subscribers wait for the first tick instead.
		a.logger.Warn("publisher prime failed", applogger.Error(err))
	}
	cancel()

	var wg sync.WaitGroup
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.scheduler.Run(runCtx); err != nil {
			a.logger.Error("scheduler error", applogger.Error(err))
		}
	}()
	a.logger.Info("scheduler started", applogger.Duration("interval_ms", a.cfg.Scheduler.Interval))

	if len(a.janitors) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.housekeeping(runCtx)
		}()
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		cancelRun()
		wg.Wait()
		return err
	}

	<-ctx.Done()
	a.logger.Info("shutdown signal received")
	cancelRun()
	return a.shutdown(&wg)
}

func (a *App) housekeeping(ctx context.Context) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			for _, j := range a.janitors {
				j()
			}
		}
	}
}

// shutdown stops the HTTP server, waits for an in-flight tick and closes resources.
func (a *App) shutdown(wg *sync.WaitGroup) error {
	a.logger.Info("shutting down...")

	var errs []error
	if err := a.httpServer.Stop(context.Background()); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}

	wg.Wait()

	if err := a.store.Close(); err != nil {
		a.logger.Warn("store close error", applogger.Error(err))
		errs = append(errs, err)
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("close error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}
