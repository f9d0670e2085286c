// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package orchestrator maps every trigger (touch, keyboard, HTTP, bus) onto
// a small set of actions over the relay, overlay, stream, touch lock and
// streaming service. It never holds a lock of its own while calling into a
// component, so the call graph stays acyclic.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/kioskd/internal/config"
	"github.com/ManuGH/kioskd/internal/log"
	"github.com/ManuGH/kioskd/internal/platform/cmdrun"
	"github.com/ManuGH/kioskd/internal/relay"
	"github.com/ManuGH/kioskd/internal/stream"
	"github.com/ManuGH/kioskd/internal/sysinfo"
)

const (
	// MinStreamSeconds and MaxStreamSeconds bound externally requested durations.
	MinStreamSeconds = 5
	MaxStreamSeconds = 3600
	// QuickSeconds is the duration of the "5 min" buttons.
	QuickSeconds = 300
)

// Preset is the stream target used by argument-less start commands.
type Preset struct {
	URL     string      `json:"url"`
	Mode    stream.Mode `json:"mode"`
	Seconds int         `json:"seconds"`
}

// Snapshot is the unified state published to the bus and returned by /status.
type Snapshot struct {
	Relay                   string        `json:"relay"`
	RelayForceOn            bool          `json:"relay_force_on"`
	OverlayBlack            bool          `json:"overlay_black"`
	ScreenOn                bool          `json:"screen_on"`
	TouchOn                 bool          `json:"touch_on"`
	RTSP                    stream.Info   `json:"rtsp"`
	RTSPPreset              Preset        `json:"rtsp_preset"`
	TouchDisabled           bool          `json:"touch_disabled"`
	TouchLocked             bool          `json:"touch_locked"`
	DisplayRemainingSeconds *int          `json:"display_remaining_seconds"`
	StreamingActive         bool          `json:"streaming_active"`
	Display                 string        `json:"display"`
	XAuthority              string        `json:"xauthority"`
	System                  sysinfo.Stats `json:"system"`
}

// Orchestrator owns the kiosk components.
type Orchestrator struct {
	onTime            time.Duration
	allowPowerActions bool

	relay   Relay
	overlay Overlay
	stream  Stream
	touch   Touch
	toggle  ServiceToggle
	display Display
	host    HostStats
	presets PresetStore
	runner  cmdrun.Runner
	logger  zerolog.Logger

	mu       sync.Mutex
	preset   Preset
	notifier func()
}

// New wires the orchestrator. cfg is read once.
func New(cfg config.AppConfig, deps Deps) (*Orchestrator, error) {
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	runner := deps.Runner
	if runner == nil {
		runner = cmdrun.Exec{}
	}
	return &Orchestrator{
		onTime:            cfg.Relay.OnTime(),
		allowPowerActions: cfg.AllowPowerActions,
		relay:             deps.Relay,
		overlay:           deps.Overlay,
		stream:            deps.Stream,
		touch:             deps.Touch,
		toggle:            deps.Toggle,
		display:           deps.Display,
		host:              deps.Host,
		presets:           deps.Presets,
		runner:            runner,
		logger:            log.WithComponent("orchestrator"),
		preset: Preset{
			URL:     cfg.RTSP.DefaultURL,
			Mode:    stream.Normal,
			Seconds: cfg.RTSP.DefaultSeconds,
		},
	}, nil
}

// SetNotifier registers the callback run when state changes on its own
// (stream completion). The bus bridge uses it to republish.
func (o *Orchestrator) SetNotifier(fn func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.notifier = fn
}

func (o *Orchestrator) notify() {
	o.mu.Lock()
	fn := o.notifier
	o.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Startup brings the kiosk to idle: image on disk, relay off, overlay shown.
// It also restores the persisted stream preset.
func (o *Orchestrator) Startup(ctx context.Context) error {
	if err := o.overlay.EnsureAsset(); err != nil {
		return fmt.Errorf("overlay asset: %w", err)
	}
	o.loadPreset(ctx)

	o.relay.TurnOff()
	o.showOverlay()
	o.logger.Info().Msg("Startup: idle (relay off + black)")
	return nil
}

// Shutdown stops the stream, drops the relay timer and hides the overlay.
func (o *Orchestrator) Shutdown() {
	o.stream.StopOnly()
	o.relay.CancelTimer()
	o.overlay.Hide()
	o.logger.Info().Msg("Shutdown: stream stopped, timers cancelled, overlay hidden")
}

// Wake is the touch and keyboard action: wake the display and power the
// screen for the configured on-time.
func (o *Orchestrator) Wake(ctx context.Context) {
	o.display.Wake(ctx)
	o.relay.ActivateFor(o.onTime, o.hooks(EffectHideOverlay, EffectShowOverlay))
}

// ScreenTimed is the "screen 5 min" button; it behaves like a touch.
func (o *Orchestrator) ScreenTimed(ctx context.Context) {
	o.Wake(ctx)
}

// RelayOn keeps the screen powered until told otherwise.
func (o *Orchestrator) RelayOn() {
	o.relay.OnPermanent(o.resolve(EffectHideOverlay))
}

// RelayOff cuts power now and blanks the screen.
func (o *Orchestrator) RelayOff() {
	o.relay.CancelTimer()
	o.relay.TurnOff()
	o.showOverlay()
}

// RelaySwitch turns the relay on for the on-time or off immediately.
func (o *Orchestrator) RelaySwitch(on bool) {
	if on {
		o.relay.ActivateFor(o.onTime, o.hooks(EffectHideOverlay, EffectShowOverlay))
		return
	}
	o.RelayOff()
}

// Screen switches the screen permanently on, or off and blank.
func (o *Orchestrator) Screen(ctx context.Context, on bool) {
	if on {
		o.display.Wake(ctx)
		o.RelayOn()
		return
	}
	o.RelayOff()
}

// RelayStatus queries the board.
func (o *Orchestrator) RelayStatus() string {
	return o.relay.Status()
}

// RelayForceOn reports permanent mode.
func (o *Orchestrator) RelayForceOn() bool {
	return o.relay.Mode() == relay.PermanentOn
}

// OverlayOn shows the overlay without touching the relay.
func (o *Orchestrator) OverlayOn() error {
	return o.overlay.Show()
}

// OverlayOff hides the overlay without touching the relay.
func (o *Orchestrator) OverlayOff() {
	o.overlay.Hide()
}

// OverlayRunning reports whether the overlay is up.
func (o *Orchestrator) OverlayRunning() bool {
	return o.overlay.Running()
}

func (o *Orchestrator) TouchDisable() { o.touch.Disable() }
func (o *Orchestrator) TouchEnable()  { o.touch.Enable() }
func (o *Orchestrator) TouchLock()    { o.touch.Lock() }
func (o *Orchestrator) TouchUnlock()  { o.touch.Unlock() }

// TouchState returns the soft and hard lock flags.
func (o *Orchestrator) TouchState() (disabled, locked bool) {
	return o.touch.State()
}

// RTSPStart plays url for seconds in mode. The completion sequence returns
// the kiosk to idle and republishes state.
func (o *Orchestrator) RTSPStart(ctx context.Context, url string, seconds int, mode string) error {
	url = strings.TrimSpace(url)
	if !strings.HasPrefix(url, "rtsp://") {
		return ErrInvalidURL
	}
	return o.stream.Start(ctx, url, seconds, mode, o.notify)
}

// RTSPStartPreset starts the stored preset. seconds overrides the preset
// duration when positive.
func (o *Orchestrator) RTSPStartPreset(ctx context.Context, seconds int) error {
	p := o.Preset()
	if seconds <= 0 {
		seconds = p.Seconds
	}
	return o.RTSPStart(ctx, p.URL, seconds, string(p.Mode))
}

// RTSPStop ends playback only; relay and overlay stay as they are.
func (o *Orchestrator) RTSPStop() {
	o.stream.StopOnly()
}

// RTSPInfo returns the stream snapshot.
func (o *Orchestrator) RTSPInfo() stream.Info {
	return o.stream.Info()
}

// StreamingSet starts or stops the external streaming service.
func (o *Orchestrator) StreamingSet(ctx context.Context, on bool) error {
	return o.toggle.SetEnabled(ctx, on)
}

// StreamingActive asks the OS whether the streaming service runs.
func (o *Orchestrator) StreamingActive(ctx context.Context) bool {
	return o.toggle.Active(ctx)
}

// PowerActionsAllowed reports the ALLOW_POWER_ACTIONS flag.
func (o *Orchestrator) PowerActionsAllowed() bool {
	return o.allowPowerActions
}

// Reboot asks systemd to reboot the host.
func (o *Orchestrator) Reboot(ctx context.Context) error {
	return o.power(ctx, "reboot")
}

// PowerOff asks systemd to power the host off.
func (o *Orchestrator) PowerOff(ctx context.Context) error {
	return o.power(ctx, "poweroff")
}

func (o *Orchestrator) power(ctx context.Context, action string) error {
	if !o.allowPowerActions {
		o.logger.Warn().Str("action", action).Msg("SYSTEM: blocked (ALLOW_POWER_ACTIONS=0)")
		return ErrPowerActionsDisabled
	}
	o.logger.Warn().Str("action", action).Msg("SYSTEM: triggered")
	res := o.runner.Run(ctx, "systemctl", action)
	if !res.OK() {
		o.logger.Error().Str("action", action).Str("kind", res.Kind.String()).Str("detail", res.Detail).Msg("SYSTEM: systemctl failed")
	}
	return res.Err()
}

// Status builds the unified snapshot. The relay and the streaming service are
// queried live.
func (o *Orchestrator) Status(ctx context.Context) Snapshot {
	relayState := o.relay.Status()
	overlayBlack := o.overlay.Running()
	disabled, locked := o.touch.State()

	var remaining *int
	if left, ok := o.relay.RemainingSeconds(); ok {
		remaining = &left
	}

	return Snapshot{
		Relay:                   relayState,
		RelayForceOn:            o.RelayForceOn(),
		OverlayBlack:            overlayBlack,
		ScreenOn:                relayState == "ON" && !overlayBlack,
		TouchOn:                 !locked,
		RTSP:                    o.stream.Info(),
		RTSPPreset:              o.Preset(),
		TouchDisabled:           disabled,
		TouchLocked:             locked,
		DisplayRemainingSeconds: remaining,
		StreamingActive:         o.toggle.Active(ctx),
		Display:                 o.display.Display(),
		XAuthority:              o.display.XAuthority(),
		System:                  o.host.Collect(),
	}
}
