package app

import (
	"context"
	"errors"
	"fmt"

	"kcourse/internal/config"
	"kcourse/internal/logger"
	"kcourse/internal/synthesis"
	planshttp "kcourse/internal/transport/http/plans"

	"golang.org/x/sync/errgroup"
)

// App owns the wired service: trip plan pipeline, stores and HTTP API.
type App struct {
	cfg          *config.Config
	orchestrator *synthesis.Orchestrator
	httpServer   *planshttp.Server
	closers      []func() error
	Summary      *StartupSummary
}

// NewApp builds the application from cfg without starting anything.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run serves the HTTP API until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.httpServer == nil {
		return fmt.Errorf("http server not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.httpServer.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	return group.Wait()
}

// Orchestrator exposes the pipeline for one-shot runs outside the HTTP API.
func (a *App) Orchestrator() *synthesis.Orchestrator {
	if a == nil {
		return nil
	}
	return a.orchestrator
}

// Close releases stores in reverse order of creation.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
