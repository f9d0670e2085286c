// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package overlay supervises the full-screen black image viewer used to blank
// the display without cutting power.
package overlay

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	"github.com/ManuGH/kioskd/internal/config"
	"github.com/ManuGH/kioskd/internal/log"
	"github.com/ManuGH/kioskd/internal/metrics"
	"github.com/ManuGH/kioskd/internal/procgroup"
)

//go:embed assets/black.png
var blackPNG []byte

// ErrToolMissing is returned by Show when the viewer binary is not installed.
var ErrToolMissing = errors.New("overlay viewer not installed")

// EnvProvider supplies the X session environment for the viewer.
type EnvProvider interface {
	Env() []string
}

// Manager owns at most one viewer process.
type Manager struct {
	imagePath string
	viewer    string
	env       EnvProvider
	grace     time.Duration
	logger    zerolog.Logger

	mu   sync.Mutex
	proc *procgroup.Proc
}

// New creates a Manager. The image is not written until EnsureAsset or Show.
func New(cfg config.OverlayConfig, env EnvProvider) *Manager {
	return &Manager{
		imagePath: cfg.ImagePath,
		viewer:    cfg.ViewerBinary,
		env:       env,
		grace:     procgroup.DefaultGrace,
		logger:    log.WithComponent("overlay"),
	}
}

// EnsureAsset writes the embedded black image to disk unless a non-empty file
// already exists there.
func (m *Manager) EnsureAsset() error {
	if st, err := os.Stat(m.imagePath); err == nil && st.Size() > 0 {
		return nil
	}
	pf, err := renameio.NewPendingFile(m.imagePath, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending overlay image: %w", err)
	}
	defer func() {
		if err := pf.Cleanup(); err != nil {
			m.logger.Debug().Err(err).Msg("cleanup pending overlay image")
		}
	}()
	if _, err := pf.Write(blackPNG); err != nil {
		return fmt.Errorf("write overlay image: %w", err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("commit overlay image: %w", err)
	}
	m.logger.Info().Str(log.FieldPath, m.imagePath).Msg("Overlay: image materialized")
	return nil
}

// Show starts the viewer unless one is already running.
func (m *Manager) Show() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.proc != nil && !m.proc.Exited() {
		return nil
	}
	if err := m.EnsureAsset(); err != nil {
		metrics.IncOverlayShow(false)
		m.logger.Error().Err(err).Msg("Overlay: image unavailable")
		return err
	}

	// #nosec G204 -- viewer binary comes from operator configuration
	cmd := exec.Command(m.viewer, "--no-terminal", "--fs", "--ontop", "--no-osc", "--vo=gpu", m.imagePath)
	cmd.Env = m.env.Env()
	proc, err := procgroup.Start(cmd)
	if err != nil {
		m.proc = nil
		metrics.IncOverlayShow(false)
		if errors.Is(err, exec.ErrNotFound) {
			m.logger.Error().Str(log.FieldTool, m.viewer).Msg("Overlay: viewer not found (install mpv)")
			return fmt.Errorf("%w: %s", ErrToolMissing, m.viewer)
		}
		m.logger.Error().Err(err).Msg("Overlay: start failed")
		return err
	}
	m.proc = proc
	metrics.IncOverlayShow(true)
	m.logger.Info().Int(log.FieldPID, proc.Pid()).Msg("Overlay: BLACK on")
	return nil
}

// Hide terminates the viewer group if one exists.
func (m *Manager) Hide() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.proc == nil {
		return
	}
	proc := m.proc
	m.proc = nil
	if proc.Exited() {
		return
	}
	if err := proc.Terminate(m.grace); err != nil {
		m.logger.Error().Err(err).Int(log.FieldPID, proc.Pid()).Msg("Overlay: kill failed")
		return
	}
	m.logger.Info().Msg("Overlay: stopped")
}

// Running reports whether a viewer process is alive.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.proc != nil && !m.proc.Exited()
}
