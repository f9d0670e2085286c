// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Kiosk is the startup and teardown surface of the orchestrator.
type Kiosk interface {
	Startup(ctx context.Context) error
	Shutdown()
}

// Runner is a long-lived background subsystem (input listener, bus bridge).
type Runner struct {
	Name string
	Run  func(ctx context.Context) error
}

// App owns the runtime lifecycle: kiosk startup, background listeners and the
// HTTP manager.
type App struct {
	logger  zerolog.Logger
	manager Manager
	kiosk   Kiosk
	runners []Runner
}

// NewApp creates a new App.
func NewApp(logger zerolog.Logger, manager Manager, kiosk Kiosk, runners ...Runner) *App {
	return &App{
		logger:  logger,
		manager: manager,
		kiosk:   kiosk,
		runners: runners,
	}
}

// Run brings the kiosk to idle, starts all runners and serves until ctx is
// cancelled or a server fails. Kiosk teardown runs as the first shutdown hook.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}
	if a.kiosk == nil {
		return ErrMissingOrchestrator
	}

	if err := a.kiosk.Startup(ctx); err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	// Registered after the caller's hooks, so it runs before them.
	a.manager.RegisterShutdownHook("kiosk", func(context.Context) error {
		a.kiosk.Shutdown()
		return nil
	})

	g, ctx := errgroup.WithContext(ctx)

	// Runners are best-effort: a failed listener must not take the kiosk down.
	for _, r := range a.runners {
		g.Go(func() error {
			if err := r.Run(ctx); err != nil {
				a.logger.Error().Err(err).Str("runner", r.Name).Str("event", "runner.failed").Msg("background runner failed")
			}
			a.logger.Debug().Str("runner", r.Name).Msg("background runner stopped")
			return nil
		})
	}

	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}
