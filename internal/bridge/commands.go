// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ManuGH/kioskd/internal/orchestrator"
	"github.com/ManuGH/kioskd/internal/stream"
)

const (
	payloadOn      = "ON"
	payloadOff     = "OFF"
	payloadPress   = "PRESS"
	payloadOnline  = "online"
	payloadOffline = "offline"

	cmdRelayForceOn  = "relay_force_on"
	cmdOverlayBlack  = "overlay_black"
	cmdTouchLock     = "touch_lock"
	cmdTouch         = "touch"
	cmdScreen        = "screen"
	cmdScreenTimed   = "screen_5min"
	cmdPresetURL     = "rtsp_url/set"
	cmdPresetMode    = "rtsp_mode/set"
	cmdPresetSeconds = "rtsp_seconds/set"
	cmdRTSPStart     = "rtsp_start"
	cmdRTSPQuick     = "rtsp_start_5min"
	cmdRTSPStartJSON = "rtsp/start"
	cmdRTSPStop      = "rtsp_stop"
	cmdStreaming     = "streaming"
	cmdReboot        = "system/reboot"
	cmdShutdown      = "system/shutdown"
)

var errUnknownCommand = errors.New("unknown command")

// Controller is the set of orchestrator actions the bus can trigger.
type Controller interface {
	RelayOn()
	RelayOff()
	OverlayOn() error
	OverlayOff()
	TouchLock()
	TouchUnlock()
	Screen(ctx context.Context, on bool)
	ScreenTimed(ctx context.Context)
	Preset() orchestrator.Preset
	SetPresetURL(ctx context.Context, url string) error
	SetPresetMode(ctx context.Context, mode string) error
	SetPresetSeconds(ctx context.Context, seconds int) error
	SetPreset(ctx context.Context, p orchestrator.Preset) error
	RTSPStart(ctx context.Context, url string, seconds int, mode string) error
	RTSPStartPreset(ctx context.Context, seconds int) error
	RTSPStop()
	StreamingSet(ctx context.Context, on bool) error
	Reboot(ctx context.Context) error
	PowerOff(ctx context.Context) error
	Status(ctx context.Context) orchestrator.Snapshot
}

// startRequest is the rtsp/start payload. Missing fields fall back to the
// preset URL and mode and to the quick duration.
type startRequest struct {
	URL     *string `json:"url"`
	Seconds *int    `json:"seconds"`
	Mode    *string `json:"mode"`
}

// dispatch runs cmd. Payload matching is case-insensitive for ON and PRESS;
// anything that is not ON counts as off.
func (b *Bridge) dispatch(ctx context.Context, cmd, payload string) error {
	on := strings.EqualFold(payload, payloadOn)
	press := strings.EqualFold(payload, payloadPress)

	switch cmd {
	case cmdRelayForceOn:
		if on {
			b.ctrl.RelayOn()
		} else {
			b.ctrl.RelayOff()
		}
	case cmdOverlayBlack:
		if on {
			return b.ctrl.OverlayOn()
		}
		b.ctrl.OverlayOff()
	case cmdTouchLock:
		if on {
			b.ctrl.TouchLock()
		} else {
			b.ctrl.TouchUnlock()
		}
	case cmdTouch:
		if on {
			b.ctrl.TouchUnlock()
		} else {
			b.ctrl.TouchLock()
		}
	case cmdScreen:
		b.ctrl.Screen(ctx, on)
	case cmdScreenTimed:
		if press {
			b.ctrl.ScreenTimed(ctx)
		}
	case cmdPresetURL:
		return b.ctrl.SetPresetURL(ctx, payload)
	case cmdPresetMode:
		return b.ctrl.SetPresetMode(ctx, payload)
	case cmdPresetSeconds:
		sec, err := strconv.Atoi(payload)
		if err != nil {
			return fmt.Errorf("seconds: %w", err)
		}
		return b.ctrl.SetPresetSeconds(ctx, sec)
	case cmdRTSPStart:
		return b.ctrl.RTSPStartPreset(ctx, 0)
	case cmdRTSPQuick:
		if press {
			return b.ctrl.RTSPStartPreset(ctx, orchestrator.QuickSeconds)
		}
	case cmdRTSPStartJSON:
		return b.startFromJSON(ctx, payload)
	case cmdRTSPStop:
		b.ctrl.RTSPStop()
	case cmdStreaming:
		return b.ctrl.StreamingSet(ctx, on)
	case cmdReboot:
		if press {
			return b.ctrl.Reboot(ctx)
		}
	case cmdShutdown:
		if press {
			return b.ctrl.PowerOff(ctx)
		}
	default:
		return fmt.Errorf("%w: %s", errUnknownCommand, cmd)
	}
	return nil
}

func (b *Bridge) startFromJSON(ctx context.Context, payload string) error {
	var req startRequest
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return fmt.Errorf("bad payload: %w", err)
		}
	}

	p := b.ctrl.Preset()
	url := p.URL
	if req.URL != nil {
		url = strings.TrimSpace(*req.URL)
	}
	if !strings.HasPrefix(url, "rtsp://") {
		return orchestrator.ErrInvalidURL
	}
	seconds := orchestrator.QuickSeconds
	if req.Seconds != nil {
		seconds = min(max(*req.Seconds, orchestrator.MinStreamSeconds), orchestrator.MaxStreamSeconds)
	}
	mode := p.Mode
	if req.Mode != nil {
		mode = stream.ParseMode(*req.Mode)
	}

	next := orchestrator.Preset{URL: url, Mode: mode, Seconds: seconds}
	if err := b.ctrl.SetPreset(ctx, next); err != nil {
		b.logger.Warn().Err(err).Msg("preset not persisted")
	}
	return b.ctrl.RTSPStart(ctx, next.URL, next.Seconds, string(next.Mode))
}
