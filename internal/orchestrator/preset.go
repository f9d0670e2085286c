// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package orchestrator

import (
	"context"
	"strings"

	"github.com/ManuGH/kioskd/internal/persistence/sqlite"
	"github.com/ManuGH/kioskd/internal/stream"
)

// Preset returns the current stream preset.
func (o *Orchestrator) Preset() Preset {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.preset
}

// SetPresetURL stores a new preset URL.
func (o *Orchestrator) SetPresetURL(ctx context.Context, url string) error {
	url = strings.TrimSpace(url)
	if !strings.HasPrefix(url, "rtsp://") {
		return ErrInvalidURL
	}
	return o.updatePreset(ctx, func(p *Preset) { p.URL = url })
}

// SetPresetMode stores a new preset mode.
func (o *Orchestrator) SetPresetMode(ctx context.Context, mode string) error {
	m, ok := stream.LookupMode(mode)
	if !ok {
		return ErrInvalidMode
	}
	return o.updatePreset(ctx, func(p *Preset) { p.Mode = m })
}

// SetPresetSeconds stores a new preset duration.
func (o *Orchestrator) SetPresetSeconds(ctx context.Context, seconds int) error {
	if seconds < MinStreamSeconds || seconds > MaxStreamSeconds {
		return ErrInvalidSeconds
	}
	return o.updatePreset(ctx, func(p *Preset) { p.Seconds = seconds })
}

// SetPreset replaces the whole preset; used when a start command carries
// explicit arguments.
func (o *Orchestrator) SetPreset(ctx context.Context, p Preset) error {
	return o.updatePreset(ctx, func(cur *Preset) { *cur = p })
}

func (o *Orchestrator) updatePreset(ctx context.Context, mutate func(*Preset)) error {
	o.mu.Lock()
	mutate(&o.preset)
	p := o.preset
	o.mu.Unlock()

	if o.presets == nil {
		return nil
	}
	if err := o.presets.Save(ctx, p.toRecord()); err != nil {
		o.logger.Error().Err(err).Msg("preset not persisted")
		return err
	}
	return nil
}

func (o *Orchestrator) loadPreset(ctx context.Context) {
	if o.presets == nil {
		return
	}
	rec, ok, err := o.presets.Load(ctx)
	if err != nil {
		o.logger.Warn().Err(err).Msg("preset load failed, using defaults")
		return
	}
	if !ok {
		return
	}
	o.mu.Lock()
	o.preset = Preset{URL: rec.URL, Mode: stream.ParseMode(rec.Mode), Seconds: rec.Seconds}
	if o.preset.Seconds <= 0 {
		o.preset.Seconds = QuickSeconds
	}
	o.mu.Unlock()
	o.logger.Info().Str("url", rec.URL).Str("mode", rec.Mode).Int("seconds", rec.Seconds).Msg("preset restored")
}

func (p Preset) toRecord() sqlite.Preset {
	return sqlite.Preset{URL: p.URL, Mode: string(p.Mode), Seconds: p.Seconds}
}
