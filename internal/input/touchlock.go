// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package input

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/ManuGH/kioskd/internal/config"
	"github.com/ManuGH/kioskd/internal/log"
	"github.com/ManuGH/kioskd/internal/metrics"
)

// TouchLock tracks the soft lock (OS input grabbed, unlock gesture evaluated)
// and the hard lock (input ignored entirely). Hard lock wins.
type TouchLock struct {
	path      string
	threshold int
	window    time.Duration
	open      Opener
	clock     clock.Clock
	logger    zerolog.Logger

	mu          sync.Mutex
	dev         Device
	disabled    bool
	locked      bool
	counter     int
	windowStart time.Time
	onTouch     func()
}

// Option configures input listeners.
type Option func(*options)

type options struct {
	open  Opener
	clock clock.Clock
}

// WithOpener replaces the device opener.
func WithOpener(o Opener) Option {
	return func(opts *options) { opts.open = o }
}

// WithClock replaces the clock used for the unlock window.
func WithClock(c clock.Clock) Option {
	return func(opts *options) { opts.clock = c }
}

func buildOptions(opts []Option) options {
	o := options{open: Open, clock: clock.New()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewTouchLock creates a TouchLock in the free state. The device is opened
// lazily on first use.
func NewTouchLock(cfg config.TouchConfig, opts ...Option) *TouchLock {
	o := buildOptions(opts)
	return &TouchLock{
		path:      cfg.DevicePath,
		threshold: max(1, cfg.UnlockTouches),
		window:    cfg.UnlockWindow(),
		open:      o.open,
		clock:     o.clock,
		logger:    log.WithComponent("touch").With().Str(log.FieldDevice, cfg.DevicePath).Logger(),
	}
}

// SetOnTouch registers the callback run for every event outside hard lock.
func (t *TouchLock) SetOnTouch(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onTouch = fn
}

// State returns the soft and hard lock flags.
func (t *TouchLock) State() (disabled, locked bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.disabled, t.locked
}

// Disable soft-locks: the OS stops seeing touches but the gesture still counts.
func (t *TouchLock) Disable() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.locked = false
	t.disabled = true
	t.resetGestureLocked()
	t.applyLocked()
	t.logger.Info().Msg("Touch: disable() -> OS blocked, gesture active")
}

// Enable clears both locks and hands input back to the OS.
func (t *TouchLock) Enable() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enableLocked()
}

func (t *TouchLock) enableLocked() {
	t.locked = false
	t.disabled = false
	t.resetGestureLocked()
	t.applyLocked()
	t.logger.Info().Msg("Touch: enable() -> OS receives touch again")
}

// Lock sets the hard lock.
func (t *TouchLock) Lock() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.locked = true
	t.resetGestureLocked()
	t.applyLocked()
	t.logger.Info().Msg("Touch: hard lock")
}

// Unlock clears the hard lock only; a soft lock underneath stays in place.
func (t *TouchLock) Unlock() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.locked = false
	t.applyLocked()
	t.logger.Info().Msg("Touch: hard unlock")
}

func (t *TouchLock) resetGestureLocked() {
	t.counter = 0
	t.windowStart = time.Time{}
}

func (t *TouchLock) ensureDeviceLocked() (Device, error) {
	if t.dev != nil {
		return t.dev, nil
	}
	dev, err := t.open(t.path)
	if err != nil {
		return nil, err
	}
	t.dev = dev
	t.logger.Info().Str("name", dev.Name()).Msgf("Touch: opened %s (%s)", dev.Path(), dev.Name())
	return dev, nil
}

// applyLocked grabs the device when either flag is set.
func (t *TouchLock) applyLocked() {
	dev, err := t.ensureDeviceLocked()
	if err != nil {
		t.logger.Warn().Err(err).Msg("Touch: device unavailable, grab state not applied")
		return
	}
	if t.disabled || t.locked {
		err = dev.Grab()
	} else {
		err = dev.Release()
	}
	if err != nil {
		t.logger.Error().Err(err).Msg("Touch: grab/ungrab failed")
	}
}

// Run reads the device until ctx is done or the device fails. A missing
// device or denied permission is logged and Run returns nil.
func (t *TouchLock) Run(ctx context.Context) error {
	t.mu.Lock()
	dev, err := t.ensureDeviceLocked()
	t.mu.Unlock()
	if err != nil {
		t.logOpenError(err)
		return nil
	}

	stop := context.AfterFunc(ctx, func() { _ = dev.Close() })
	defer stop()
	defer func() {
		_ = dev.Close()
		t.mu.Lock()
		if t.dev == dev {
			t.dev = nil
		}
		t.mu.Unlock()
	}()

	t.logger.Info().Msg("Touch: monitor started")
	for {
		ev, err := dev.ReadEvent()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			t.logger.Error().Err(err).Msg("Touch: monitor failed")
			return nil
		}
		t.handle(ev)
	}
}

func (t *TouchLock) logOpenError(err error) {
	switch {
	case errors.Is(err, os.ErrNotExist):
		t.logger.Warn().Msgf("Touch: device not found: %s", t.path)
	case errors.Is(err, os.ErrPermission):
		t.logger.Warn().Msgf("Touch: permission denied: %s (udev/group rights)", t.path)
	default:
		t.logger.Warn().Err(err).Msg("Touch: open failed")
	}
}

func qualifies(ev Event) bool {
	return ev.Type == EvKey || ev.Type == EvAbs
}

func (t *TouchLock) handle(ev Event) {
	if !qualifies(ev) {
		return
	}

	t.mu.Lock()
	if t.locked {
		t.mu.Unlock()
		metrics.IncTouchEvent("ignored_locked")
		t.logger.Info().Msg("Touch: ignored (HARD-LOCK)")
		return
	}
	cb := t.onTouch
	t.mu.Unlock()

	metrics.IncTouchEvent("wake")
	if cb != nil {
		cb()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.disabled || t.locked {
		return
	}
	now := t.clock.Now()
	if t.windowStart.IsZero() || now.Sub(t.windowStart) > t.window {
		t.windowStart = now
		t.counter = 1
	} else {
		t.counter++
	}
	t.logger.Info().Msgf("Touch: unlock %d/%d", t.counter, t.threshold)

	if t.counter >= t.threshold {
		metrics.IncTouchEvent("unlock")
		t.logger.Info().Msg("Touch: unlock pattern detected -> enable()")
		t.enableLocked()
	}
}
