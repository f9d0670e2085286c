// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package stream supervises the RTSP player process and couples its lifetime
// to the relay and the black overlay.
package stream

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/ManuGH/kioskd/internal/config"
	"github.com/ManuGH/kioskd/internal/log"
	"github.com/ManuGH/kioskd/internal/metrics"
	"github.com/ManuGH/kioskd/internal/platform/cmdrun"
	"github.com/ManuGH/kioskd/internal/procgroup"
	"github.com/ManuGH/kioskd/internal/relay"
)

var (
	ErrToolMissing = errors.New("player not installed")
	ErrSpawn       = errors.New("player failed to start")
	ErrEarlyExit   = errors.New("player exited during settle window")
)

const (
	defaultSeconds = 300
	defaultSettle  = 300 * time.Millisecond
)

// Display wakes the screen and provides the X environment.
type Display interface {
	Wake(ctx context.Context) cmdrun.Result
	Env() []string
}

// Overlay is the black overlay the stream hides while playing.
type Overlay interface {
	Hide()
	Show() error
}

// Relay is the power relay armed for the stream duration.
type Relay interface {
	ActivateFor(d time.Duration, hooks relay.Hooks)
	TurnOff()
}

// Info is a point-in-time view of the session.
type Info struct {
	Running   bool   `json:"running"`
	URL       string `json:"url"`
	Remaining int    `json:"remaining"`
	Mode      Mode   `json:"mode"`
}

// Manager owns at most one player process.
type Manager struct {
	player         string
	logPath        string
	defaultSeconds int
	settle         time.Duration
	grace          time.Duration

	display Display
	overlay Overlay
	relay   Relay
	clock   clock.Clock
	logger  zerolog.Logger

	mu     sync.Mutex
	proc   *procgroup.Proc
	url    string
	mode   Mode
	expiry time.Time
	timer  *clock.Timer
	gen    uint64
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces the clock driving the completion timer.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithSettle sets how long a fresh player must survive to count as started.
func WithSettle(d time.Duration) Option {
	return func(m *Manager) { m.settle = d }
}

// New creates a Manager.
func New(cfg config.RTSPConfig, d Display, o Overlay, r Relay, opts ...Option) *Manager {
	m := &Manager{
		player:         cfg.PlayerBinary,
		logPath:        cfg.LogPath,
		defaultSeconds: cfg.DefaultSeconds,
		settle:         defaultSettle,
		grace:          procgroup.DefaultGrace,
		display:        d,
		overlay:        o,
		relay:          r,
		clock:          clock.New(),
		logger:         log.WithComponent("rtsp"),
		mode:           Normal,
	}
	if m.defaultSeconds <= 0 {
		m.defaultSeconds = defaultSeconds
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start replaces any running session with a new one. On success the relay is
// armed for the same duration and a completion timer returns the kiosk to idle
// (stream stopped, relay off, overlay shown) and then calls afterDone.
// A player that exits within the settle window arms nothing.
func (m *Manager) Start(ctx context.Context, url string, seconds int, mode string, afterDone func()) error {
	if seconds <= 0 {
		seconds = m.defaultSeconds
	}
	md := ParseMode(mode)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()

	m.display.Wake(ctx)
	m.overlay.Hide()

	args := []string{
		"--no-terminal", "--fs", "--ontop", "--no-osc", "--vo=gpu",
		"--rtsp-transport=tcp", "--profile=low-latency", "--cache=no",
	}
	args = append(args, md.filterArgs()...)
	args = append(args, url)

	env := m.display.Env()
	logf, err := m.openLog(args, env)
	if err != nil {
		m.logger.Warn().Err(err).Str(log.FieldPath, m.logPath).Msg("RTSP: player log unavailable")
	}

	// #nosec G204 -- player binary comes from operator configuration
	cmd := exec.Command(m.player, args...)
	cmd.Env = env
	if logf != nil {
		cmd.Stdout = logf
		cmd.Stderr = logf
	}
	proc, err := procgroup.Start(cmd)
	if logf != nil {
		_ = logf.Close()
	}
	if err != nil {
		m.clearLocked()
		if errors.Is(err, exec.ErrNotFound) {
			metrics.IncStreamStart(false, "tool_missing", string(md))
			m.logger.Error().Str(log.FieldTool, m.player).Msg("RTSP: player not found (install mpv)")
			return fmt.Errorf("%w: %s", ErrToolMissing, m.player)
		}
		metrics.IncStreamStart(false, "spawn", string(md))
		m.logger.Error().Err(err).Str(log.FieldPath, m.logPath).Msg("RTSP: start failed")
		return fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	m.logger.Info().
		Str(log.FieldURL, url).
		Int(log.FieldSeconds, seconds).
		Str(log.FieldMode, string(md)).
		Int(log.FieldPID, proc.Pid()).
		Msgf("RTSP: start %s for %ds mode=%s (log %s)", url, seconds, md, m.logPath)

	select {
	case <-proc.Done():
		m.clearLocked()
		metrics.IncStreamStart(false, "early_exit", string(md))
		m.logger.Error().Int(log.FieldExitCode, proc.ExitCode()).
			Msgf("RTSP: exited immediately rc=%d (see %s)", proc.ExitCode(), m.logPath)
		return fmt.Errorf("%w: exit code %d", ErrEarlyExit, proc.ExitCode())
	case <-time.After(m.settle):
	}

	d := time.Duration(seconds) * time.Second
	m.proc = proc
	m.url = url
	m.mode = md
	m.expiry = m.clock.Now().Add(d)

	m.relay.ActivateFor(d, relay.Hooks{})

	m.gen++
	gen := m.gen
	m.timer = m.clock.AfterFunc(d, func() { m.finish(gen, afterDone) })
	metrics.IncStreamStart(true, "ok", string(md))
	return nil
}

func (m *Manager) openLog(args, env []string) (*os.File, error) {
	if m.logPath == "" {
		return nil, nil
	}
	// #nosec G304 -- log path comes from operator configuration
	f, err := os.OpenFile(m.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	header := fmt.Sprintf("\n--- %s START ---\nCMD: %s\nDISPLAY=%s XAUTHORITY=%s\n",
		time.Now().Format("2006-01-02 15:04:05"),
		strings.Join(append([]string{m.player}, args...), " "),
		envValue(env, "DISPLAY"), envValue(env, "XAUTHORITY"))
	if _, err := f.WriteString(header); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func envValue(env []string, key string) string {
	prefix := key + "="
	for i := len(env) - 1; i >= 0; i-- {
		if v, ok := strings.CutPrefix(env[i], prefix); ok {
			return v
		}
	}
	return ""
}

func (m *Manager) finish(gen uint64, afterDone func()) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.stopLocked()
	m.mu.Unlock()

	m.relay.TurnOff()
	if err := m.overlay.Show(); err != nil {
		m.logger.Warn().Err(err).Msg("RTSP: overlay show after completion failed")
	}
	m.logger.Info().Msg("RTSP: done -> idle (relay off + black)")
	if afterDone != nil {
		afterDone()
	}
}

// StopOnly ends the session without touching relay or overlay.
func (m *Manager) StopOnly() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
	m.logger.Info().Msg("RTSP: stop_only (stream ended)")
}

func (m *Manager) stopLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.gen++
	if m.proc != nil && !m.proc.Exited() {
		if err := m.proc.Terminate(m.grace); err != nil {
			m.logger.Error().Err(err).Int(log.FieldPID, m.proc.Pid()).Msg("RTSP: kill failed")
		} else {
			m.logger.Info().Msg("RTSP: stopped")
		}
	}
	m.clearLocked()
}

func (m *Manager) clearLocked() {
	m.proc = nil
	m.url = ""
	m.mode = Normal
	m.expiry = time.Time{}
}

// Running reports whether a player process is alive.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.proc != nil && !m.proc.Exited()
}

// Info returns the session snapshot. A dead or absent player reports not
// running regardless of stored fields.
func (m *Manager) Info() Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.proc == nil || m.proc.Exited() {
		return Info{Mode: Normal}
	}
	left := int(m.expiry.Sub(m.clock.Now()) / time.Second)
	return Info{
		Running:   true,
		URL:       m.url,
		Remaining: max(0, left),
		Mode:      m.mode,
	}
}
