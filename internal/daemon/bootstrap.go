// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/kioskd/internal/api"
	"github.com/ManuGH/kioskd/internal/bridge"
	"github.com/ManuGH/kioskd/internal/config"
	"github.com/ManuGH/kioskd/internal/display"
	"github.com/ManuGH/kioskd/internal/input"
	"github.com/ManuGH/kioskd/internal/log"
	"github.com/ManuGH/kioskd/internal/orchestrator"
	"github.com/ManuGH/kioskd/internal/overlay"
	"github.com/ManuGH/kioskd/internal/persistence/sqlite"
	"github.com/ManuGH/kioskd/internal/platform/cmdrun"
	"github.com/ManuGH/kioskd/internal/relay"
	"github.com/ManuGH/kioskd/internal/stream"
	"github.com/ManuGH/kioskd/internal/svctoggle"
	"github.com/ManuGH/kioskd/internal/sysinfo"
	"github.com/ManuGH/kioskd/internal/telemetry"
)

const dbFile = "kioskd.db"

// Runtime is the wired component graph for one daemon run.
type Runtime struct {
	Orchestrator *orchestrator.Orchestrator
	Bridge       *bridge.Bridge
	API          *api.Server
	Runners      []Runner

	db *sql.DB
}

// Close releases the preset database.
func (r *Runtime) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Build wires every component from cfg. ctx bounds the input callbacks.
func Build(ctx context.Context, cfg config.AppConfig) (*Runtime, error) {
	logger := log.WithComponent("daemon")

	rly := relay.New(
		relay.SerialOpener{Device: cfg.Relay.Device, BaudRate: cfg.Relay.BaudRate},
		relay.WithDevice(cfg.Relay.Device),
	)
	waker := display.New(cfg.Display)
	ov := overlay.New(cfg.Overlay, waker)
	player := stream.New(cfg.RTSP, waker, ov, rly)
	touch := input.NewTouchLock(cfg.Touch)

	rt := &Runtime{}
	var presets orchestrator.PresetStore
	if store, db, err := openPresets(ctx, cfg.DataDir, logger); err != nil {
		logger.Warn().Err(err).Str(log.FieldPath, cfg.DataDir).Msg("preset store unavailable, presets stay in memory")
	} else {
		presets, rt.db = store, db
	}

	orch, err := orchestrator.New(cfg, orchestrator.Deps{
		Relay:   rly,
		Overlay: ov,
		Stream:  player,
		Touch:   touch,
		Toggle:  svctoggle.New(cfg.Streaming, cmdrun.Exec{}),
		Display: waker,
		Host:    sysinfo.New(cfg.Hostname),
		Presets: presets,
	})
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	br := bridge.New(cfg, orch)
	orch.SetNotifier(br.PublishNow)

	wake := func() { orch.Wake(ctx) }
	touch.SetOnTouch(wake)
	kbd := input.NewKeyboardWake(cfg.Touch.KeyboardGlob, wake)

	rt.Orchestrator = orch
	rt.Bridge = br
	rt.API = api.New(cfg, orch, br)
	rt.Runners = []Runner{
		{Name: "touch", Run: touch.Run},
		{Name: "keyboard", Run: kbd.Run},
		{Name: "bridge", Run: br.Run},
	}
	return rt, nil
}

func openPresets(ctx context.Context, dataDir string, logger zerolog.Logger) (*sqlite.PresetStore, *sql.DB, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}
	path := filepath.Join(dataDir, dbFile)
	if _, err := os.Stat(path); err == nil {
		if problems, err := sqlite.VerifyIntegrity(path); err != nil {
			logger.Warn().Err(err).Str(log.FieldPath, path).Msg("integrity check failed")
		} else if len(problems) > 0 {
			logger.Warn().Strs("problems", problems).Str(log.FieldPath, path).Msg("preset database reports integrity problems")
		}
	}

	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	if err != nil {
		return nil, nil, err
	}
	store, err := sqlite.NewPresetStore(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return store, db, nil
}

// Serve builds the runtime and runs it until ctx is cancelled.
func Serve(ctx context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("daemon")

	tracing, err := telemetry.NewProvider(ctx, cfg.Tracing, cfg.DeviceID, cfg.Version)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}

	rt, err := Build(ctx, cfg)
	if err != nil {
		_ = tracing.Shutdown(context.WithoutCancel(ctx))
		return err
	}

	mgr, err := NewManager(Deps{
		Logger:         logger,
		Server:         cfg.Server,
		APIHandler:     rt.API.Handler(),
		MetricsHandler: promhttp.Handler(),
	})
	if err != nil {
		_ = rt.Close()
		_ = tracing.Shutdown(context.WithoutCancel(ctx))
		return err
	}
	mgr.RegisterShutdownHook("tracing", tracing.Shutdown)
	mgr.RegisterShutdownHook("preset-db", func(context.Context) error { return rt.Close() })

	logger.Info().
		Str(log.FieldDeviceID, cfg.DeviceID).
		Str(log.FieldTopic, cfg.BaseTopic()).
		Bool("mqtt", rt.Bridge.Enabled()).
		Bool("tracing", tracing.Enabled()).
		Msg("kiosk runtime wired")

	return NewApp(logger, mgr, rt.Orchestrator, rt.Runners...).Run(ctx)
}
