// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/ManuGH/kioskd/internal/persistence/sqlite"
	"github.com/ManuGH/kioskd/internal/platform/cmdrun"
	"github.com/ManuGH/kioskd/internal/relay"
	"github.com/ManuGH/kioskd/internal/stream"
	"github.com/ManuGH/kioskd/internal/sysinfo"
)

// Relay is the relay timer controller.
type Relay interface {
	TurnOff()
	Status() string
	ActivateFor(d time.Duration, hooks relay.Hooks)
	OnPermanent(enter func())
	CancelTimer()
	RemainingSeconds() (int, bool)
	Mode() relay.Mode
}

// Overlay is the black overlay process manager.
type Overlay interface {
	EnsureAsset() error
	Show() error
	Hide()
	Running() bool
}

// Stream is the streaming session manager.
type Stream interface {
	Start(ctx context.Context, url string, seconds int, mode string, afterDone func()) error
	StopOnly()
	Info() stream.Info
}

// Touch is the touch lock state machine.
type Touch interface {
	Disable()
	Enable()
	Lock()
	Unlock()
	State() (disabled, locked bool)
}

// ServiceToggle controls the external streaming service.
type ServiceToggle interface {
	SetEnabled(ctx context.Context, desired bool) error
	Active(ctx context.Context) bool
}

// Display wakes the screen and reports the X session it targets.
type Display interface {
	Wake(ctx context.Context) cmdrun.Result
	Display() string
	XAuthority() string
}

// HostStats samples host figures.
type HostStats interface {
	Collect() sysinfo.Stats
}

// PresetStore persists the stream preset.
type PresetStore interface {
	Load(ctx context.Context) (sqlite.Preset, bool, error)
	Save(ctx context.Context, p sqlite.Preset) error
}

// Deps bundles the components the orchestrator drives.
type Deps struct {
	Relay   Relay
	Overlay Overlay
	Stream  Stream
	Touch   Touch
	Toggle  ServiceToggle
	Display Display
	Host    HostStats
	// Presets is optional; without it the preset lives in memory only.
	Presets PresetStore
	// Runner executes power actions. Defaults to cmdrun.Exec.
	Runner cmdrun.Runner
}

// Validate ensures all mandatory components are present.
func (d Deps) Validate() error {
	var errs []error
	if d.Relay == nil {
		errs = append(errs, errors.New("relay"))
	}
	if d.Overlay == nil {
		errs = append(errs, errors.New("overlay"))
	}
	if d.Stream == nil {
		errs = append(errs, errors.New("stream"))
	}
	if d.Touch == nil {
		errs = append(errs, errors.New("touch"))
	}
	if d.Toggle == nil {
		errs = append(errs, errors.New("service toggle"))
	}
	if d.Display == nil {
		errs = append(errs, errors.New("display"))
	}
	if d.Host == nil {
		errs = append(errs, errors.New("host stats"))
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrMissingDependency}, errs...)...)
	}
	return nil
}
