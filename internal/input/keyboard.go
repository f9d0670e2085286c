// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package input

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/kioskd/internal/log"
	"github.com/ManuGH/kioskd/internal/metrics"
)

// KeyboardWake calls onKey for every key-down on any matching keyboard.
type KeyboardWake struct {
	glob   string
	onKey  func()
	open   Opener
	logger zerolog.Logger
}

// NewKeyboardWake creates a listener for devices matching glob.
func NewKeyboardWake(glob string, onKey func(), opts ...Option) *KeyboardWake {
	o := buildOptions(opts)
	return &KeyboardWake{
		glob:   glob,
		onKey:  onKey,
		open:   o.open,
		logger: log.WithComponent("keyboard"),
	}
}

func (k *KeyboardWake) discover() []Device {
	paths, err := filepath.Glob(k.glob)
	if err != nil {
		k.logger.Error().Err(err).Str("glob", k.glob).Msg("KeyboardWake: bad glob")
		return nil
	}
	sort.Strings(paths)
	return lo.FilterMap(paths, func(p string, _ int) (Device, bool) {
		dev, err := k.open(p)
		if err != nil {
			k.logger.Debug().Err(err).Str(log.FieldDevice, p).Msg("KeyboardWake: skip device")
			return nil, false
		}
		return dev, true
	})
}

// Run blocks with one reader per device until ctx is done or every device
// has failed. No devices is logged and Run returns nil.
func (k *KeyboardWake) Run(ctx context.Context) error {
	devs := k.discover()
	if len(devs) == 0 {
		k.logger.Warn().Msgf("KeyboardWake: no device matches %s", k.glob)
		return nil
	}
	names := lo.Map(devs, func(d Device, _ int) string { return d.Path() })
	k.logger.Info().Msgf("KeyboardWake: listening on %s", strings.Join(names, ", "))

	g, gctx := errgroup.WithContext(ctx)
	for _, dev := range devs {
		g.Go(func() error {
			k.loop(gctx, dev)
			return nil
		})
	}
	return g.Wait()
}

func (k *KeyboardWake) loop(ctx context.Context, dev Device) {
	stop := context.AfterFunc(ctx, func() { _ = dev.Close() })
	defer stop()
	defer func() { _ = dev.Close() }()

	for {
		ev, err := dev.ReadEvent()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, os.ErrPermission) {
				k.logger.Warn().Msgf("KeyboardWake: permission denied %s (udev/group rights)", dev.Path())
			} else {
				k.logger.Warn().Err(err).Msgf("KeyboardWake: error %s", dev.Path())
			}
			return
		}
		if ev.Type == EvKey && ev.Value == 1 {
			metrics.IncKeyPress()
			k.logger.Info().Msgf("KeyboardWake: keypress on %s", dev.Path())
			if k.onKey != nil {
				k.onKey()
			}
		}
	}
}
