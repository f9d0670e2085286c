// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package orchestrator

import "errors"

var (
	// ErrMissingDependency is returned by New when a component is missing.
	ErrMissingDependency = errors.New("orchestrator: missing dependency")
	// ErrPowerActionsDisabled is returned by Reboot and PowerOff unless
	// ALLOW_POWER_ACTIONS is set.
	ErrPowerActionsDisabled = errors.New("power actions disabled")
	// ErrInvalidURL rejects stream targets that are not rtsp:// URLs.
	ErrInvalidURL = errors.New("url must start with rtsp://")
	// ErrInvalidMode rejects unknown render modes in preset updates.
	ErrInvalidMode = errors.New("mode must be normal, crop or stretch")
	// ErrInvalidSeconds rejects preset durations outside the allowed range.
	ErrInvalidSeconds = errors.New("seconds out of range")
)
