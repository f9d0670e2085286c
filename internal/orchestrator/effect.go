// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package orchestrator

import "github.com/ManuGH/kioskd/internal/relay"

// Effect is a named side effect run at a relay session boundary.
type Effect int

const (
	EffectNone Effect = iota
	EffectHideOverlay
	EffectShowOverlay
)

func (e Effect) String() string {
	switch e {
	case EffectHideOverlay:
		return "hide_overlay"
	case EffectShowOverlay:
		return "show_overlay"
	default:
		return "none"
	}
}

// resolve turns an Effect into the call the relay runs. EffectNone is nil.
func (o *Orchestrator) resolve(e Effect) func() {
	switch e {
	case EffectHideOverlay:
		return o.overlay.Hide
	case EffectShowOverlay:
		return o.showOverlay
	default:
		return nil
	}
}

func (o *Orchestrator) hooks(enter, exit Effect) relay.Hooks {
	return relay.Hooks{Enter: o.resolve(enter), Exit: o.resolve(exit)}
}

func (o *Orchestrator) showOverlay() {
	if err := o.overlay.Show(); err != nil {
		o.logger.Warn().Err(err).Msg("overlay show failed")
	}
}
