// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package relay drives the serial power relay that energizes the display,
// including the auto-off timer and the permanent-on override.
package relay

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/ManuGH/kioskd/internal/log"
	"github.com/ManuGH/kioskd/internal/metrics"
)

var (
	cmdOn     = []byte{0xA0, 0x01, 0x01, 0xA2}
	cmdOff    = []byte{0xA0, 0x01, 0x00, 0xA1}
	cmdStatus = []byte{0xFF}
)

const (
	defaultStatusDelay = 200 * time.Millisecond
	statusReadTimeout  = time.Second
	statusBufSize      = 64
)

// Mode is the relay session mode.
type Mode int

const (
	Idle Mode = iota
	TimedOn
	PermanentOn
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case TimedOn:
		return "timed_on"
	case PermanentOn:
		return "permanent_on"
	default:
		return "unknown"
	}
}

// Hooks run around a relay session under the controller lock. Enter runs
// before the relay is switched on; Exit runs after the auto-off command.
// Hooks must not call back into the Controller. Either may be nil.
type Hooks struct {
	Enter func()
	Exit  func()
}

// Controller owns the relay session. At most one auto-off timer is pending at
// any time.
type Controller struct {
	opener      Opener
	device      string
	clock       clock.Clock
	statusDelay time.Duration
	logger      zerolog.Logger

	// portMu serializes port access from Open to Close. The device is opened
	// exclusively, so a second open while one is held fails with busy.
	portMu sync.Mutex

	mu     sync.Mutex
	mode   Mode
	expiry time.Time
	timer  *clock.Timer
	// gen invalidates timer callbacks that lost a cancel race.
	gen uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the wall clock used for timers and remaining time.
func WithClock(c clock.Clock) Option {
	return func(ctrl *Controller) { ctrl.clock = c }
}

// WithStatusDelay sets the pause between the status query and the read.
func WithStatusDelay(d time.Duration) Option {
	return func(ctrl *Controller) { ctrl.statusDelay = d }
}

// WithDevice labels log lines with the device path.
func WithDevice(device string) Option {
	return func(ctrl *Controller) { ctrl.device = device }
}

// New creates a controller in Idle mode.
func New(opener Opener, opts ...Option) *Controller {
	c := &Controller{
		opener:      opener,
		clock:       clock.New(),
		statusDelay: defaultStatusDelay,
		logger:      log.WithComponent("relay"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.device != "" {
		c.logger = c.logger.With().Str(log.FieldDevice, c.device).Logger()
	}
	return c
}

// TurnOn switches the relay on. Failures are logged and dropped.
func (c *Controller) TurnOn() {
	c.send("on", cmdOn)
}

// TurnOff switches the relay off and leaves permanent mode. A pending timer is
// left alone; use CancelTimer to drop it.
func (c *Controller) TurnOff() {
	c.send("off", cmdOff)
	c.mu.Lock()
	if c.mode == PermanentOn {
		c.mode = Idle
	}
	c.mu.Unlock()
}

func (c *Controller) send(name string, payload []byte) {
	err := c.write(payload)
	metrics.IncRelayCommand(name, err == nil)
	if err != nil {
		c.logger.Error().Err(err).Str(log.FieldCommand, name).Msg("relay command failed")
		return
	}
	c.logger.Info().Str(log.FieldCommand, name).Msgf("Relay: %s", strings.ToUpper(name))
}

func (c *Controller) write(payload []byte) error {
	c.portMu.Lock()
	defer c.portMu.Unlock()

	p, err := c.opener.Open()
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()
	if _, err := p.Write(payload); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Status queries the board and returns "ON", "OFF", "UNKNOWN (<raw>)" or
// "ERROR (<detail>)". It never trusts the in-memory mode.
func (c *Controller) Status() string {
	resp, err := c.query()
	metrics.IncRelayCommand("status", err == nil)
	if err != nil {
		c.logger.Debug().Err(err).Msg("relay status query failed")
		return fmt.Sprintf("ERROR (%v)", err)
	}
	return classify(resp)
}

func (c *Controller) query() (string, error) {
	c.portMu.Lock()
	defer c.portMu.Unlock()

	p, err := c.opener.Open()
	if err != nil {
		return "", err
	}
	defer func() { _ = p.Close() }()

	if err := p.SetReadTimeout(statusReadTimeout); err != nil {
		return "", fmt.Errorf("set read timeout: %w", err)
	}
	if err := p.ResetInputBuffer(); err != nil {
		return "", fmt.Errorf("flush input: %w", err)
	}
	if _, err := p.Write(cmdStatus); err != nil {
		return "", fmt.Errorf("write: %w", err)
	}
	time.Sleep(c.statusDelay)

	var buf bytes.Buffer
	chunk := make([]byte, statusBufSize)
	for buf.Len() < statusBufSize {
		n, err := p.Read(chunk[:statusBufSize-buf.Len()])
		buf.Write(chunk[:n])
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "", fmt.Errorf("read: %w", err)
		}
		// Zero bytes without error is a read timeout.
		if n == 0 {
			break
		}
	}
	return strings.TrimSpace(strings.ToValidUTF8(buf.String(), "")), nil
}

func classify(resp string) string {
	switch {
	case strings.Contains(resp, "ON"):
		return "ON"
	case strings.Contains(resp, "OFF"):
		return "OFF"
	default:
		return fmt.Sprintf("UNKNOWN (%s)", resp)
	}
}

// ActivateFor switches the relay on for d, replacing any pending timer. When
// the timer fires the relay is switched off and hooks.Exit runs.
func (c *Controller) ActivateFor(d time.Duration, hooks Hooks) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTimerLocked()
	if hooks.Enter != nil {
		hooks.Enter()
	}
	c.send("on", cmdOn)

	gen := c.gen
	exit := hooks.Exit
	c.mode = TimedOn
	c.expiry = c.clock.Now().Add(d)
	c.timer = c.clock.AfterFunc(d, func() { c.expire(gen, exit) })
	metrics.IncRelayTimerArmed()
	c.logger.Info().Int(log.FieldSeconds, int(d/time.Second)).Msgf("Relay: activated for %s", d)
}

// expire holds the lock through the OFF write and the exit hook so a session
// armed concurrently is never followed by a stale OFF frame.
func (c *Controller) expire(gen uint64, exit func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.timer = nil
	c.gen++
	c.mode = Idle
	c.expiry = time.Time{}

	c.send("off", cmdOff)
	if exit != nil {
		exit()
	}
}

// OnPermanent cancels any pending timer and keeps the relay on until TurnOff.
func (c *Controller) OnPermanent(enter func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTimerLocked()
	if enter != nil {
		enter()
	}
	c.send("on", cmdOn)
	c.mode = PermanentOn
	c.logger.Info().Msg("Relay: permanently on (no timer)")
}

// CancelTimer drops any pending auto-off without touching the hardware.
func (c *Controller) CancelTimer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()
	if c.mode == TimedOn {
		c.mode = Idle
	}
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
	c.expiry = time.Time{}
}

// RemainingSeconds returns 0 in permanent mode, the whole seconds left on a
// pending timer, or false when neither applies.
func (c *Controller) RemainingSeconds() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == PermanentOn {
		return 0, true
	}
	if c.timer == nil {
		return 0, false
	}
	left := int(c.expiry.Sub(c.clock.Now()) / time.Second)
	return max(0, left), true
}

// Mode returns the current session mode.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}
