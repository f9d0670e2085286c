// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package svctoggle starts and stops the systemd unit feeding the secondary
// ingest pipeline, verifying the result and absorbing duplicate requests.
package svctoggle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ManuGH/kioskd/internal/config"
	"github.com/ManuGH/kioskd/internal/log"
	"github.com/ManuGH/kioskd/internal/metrics"
	"github.com/ManuGH/kioskd/internal/platform/cmdrun"
)

var (
	// ErrDebounced means the request arrived too soon after the previous one
	// and was dropped.
	ErrDebounced = errors.New("toggle request debounced")
	// ErrNotConverged means every attempt ran but the unit never reached the
	// desired state.
	ErrNotConverged = errors.New("service did not reach desired state")
)

// Toggle controls one systemd unit. The active state is never cached.
type Toggle struct {
	service      string
	maxRetries   int
	pollInterval time.Duration
	pollTimeout  time.Duration
	runner       cmdrun.Runner
	limiter      *rate.Limiter
	logger       zerolog.Logger
}

// New creates a Toggle using runner for every systemctl call.
func New(cfg config.StreamingConfig, runner cmdrun.Runner) *Toggle {
	limit := rate.Inf
	if cfg.Debounce > 0 {
		limit = rate.Every(cfg.Debounce)
	}
	return &Toggle{
		service:      cfg.Service,
		maxRetries:   max(0, cfg.MaxRetries),
		pollInterval: cfg.PollInterval,
		pollTimeout:  cfg.PollTimeout,
		runner:       runner,
		limiter:      rate.NewLimiter(limit, 1),
		logger:       log.WithComponent("streaming").With().Str("service", cfg.Service).Logger(),
	}
}

// Service returns the unit name.
func (t *Toggle) Service() string {
	return t.service
}

// Active asks systemd whether the unit is active.
func (t *Toggle) Active(ctx context.Context) bool {
	return t.runner.Run(ctx, "systemctl", "is-active", "--quiet", t.service).OK()
}

// SetEnabled starts or stops the unit, making up to maxRetries+1 attempts and
// polling the unit state after each one.
func (t *Toggle) SetEnabled(ctx context.Context, desired bool) error {
	if !t.limiter.Allow() {
		metrics.IncServiceToggle(desired, "debounced")
		t.logger.Info().Bool("desired", desired).Msg("Streaming: toggle debounced")
		return ErrDebounced
	}

	action := "stop"
	if desired {
		action = "start"
	}

	var last cmdrun.Result
	for attempt := 1; attempt <= t.maxRetries+1; attempt++ {
		last = t.runner.Run(ctx, "sudo", "-n", "systemctl", action, t.service)
		if !last.OK() {
			t.logger.Warn().Int("attempt", attempt).Str("kind", last.Kind.String()).Str("detail", last.Detail).
				Msgf("Streaming: systemctl %s failed", action)
		}
		if t.waitFor(ctx, desired) {
			metrics.IncServiceToggle(desired, "success")
			t.logger.Info().Int("attempt", attempt).Msgf("Streaming: %s ok", action)
			return nil
		}
		if ctx.Err() != nil {
			break
		}
	}

	metrics.IncServiceToggle(desired, "failure")
	t.logger.Error().Int("attempts", t.maxRetries+1).Msgf("Streaming: %s failed, state not reached", action)
	if err := last.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrNotConverged, err)
	}
	return ErrNotConverged
}

// waitFor polls the unit until it matches desired or pollTimeout elapses.
func (t *Toggle) waitFor(ctx context.Context, desired bool) bool {
	deadline := time.Now().Add(t.pollTimeout)
	for {
		if t.Active(ctx) == desired {
			return true
		}
		if !time.Now().Before(deadline) || ctx.Err() != nil {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(t.pollInterval):
		}
	}
}
