// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package display wakes the X11 screen and resolves the X session environment
// shared by every child process that draws on it.
package display

import (
	"context"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/ManuGH/kioskd/internal/config"
	"github.com/ManuGH/kioskd/internal/log"
	"github.com/ManuGH/kioskd/internal/metrics"
	"github.com/ManuGH/kioskd/internal/platform/cmdrun"
)

const wakeTimeout = 5 * time.Second

// Waker is stateless; every call re-resolves the X authority file.
type Waker struct {
	display    string
	xauthority string
	xset       string
	logger     zerolog.Logger

	// candidates lists X authority files probed when none is configured.
	candidates func() []string
}

// New creates a Waker from the display configuration.
func New(cfg config.DisplayConfig) *Waker {
	return &Waker{
		display:    cfg.Display,
		xauthority: cfg.XAuthority,
		xset:       lo.Ternary(cfg.XsetBinary != "", cfg.XsetBinary, "xset"),
		logger:     log.WithComponent("display"),
		candidates: defaultCandidates,
	}
}

func defaultCandidates() []string {
	var out []string
	if su := os.Getenv("SUDO_USER"); su != "" {
		out = append(out, filepath.Join("/home", su, ".Xauthority"))
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		out = append(out, filepath.Join("/home", u.Username, ".Xauthority"))
	}
	return append(out, "/run/user/1000/gdm/Xauthority", "/run/user/1000/.Xauthority")
}

// Display returns the X display name.
func (w *Waker) Display() string {
	return w.display
}

// XAuthority returns the configured authority file, or the first existing
// candidate, or "".
func (w *Waker) XAuthority() string {
	if w.xauthority != "" {
		return w.xauthority
	}
	found, _ := lo.Find(w.candidates(), func(p string) bool {
		st, err := os.Stat(p)
		return err == nil && !st.IsDir()
	})
	return found
}

// Env returns the current process environment with DISPLAY and XAUTHORITY
// replaced by the resolved values.
func (w *Waker) Env() []string {
	xa := w.XAuthority()
	env := lo.Reject(os.Environ(), func(kv string, _ int) bool {
		return strings.HasPrefix(kv, "DISPLAY=") || (xa != "" && strings.HasPrefix(kv, "XAUTHORITY="))
	})
	env = append(env, "DISPLAY="+w.display)
	if xa != "" {
		env = append(env, "XAUTHORITY="+xa)
	}
	return env
}

// Wake forces DPMS on and resets the screensaver. Both commands always run;
// the first failure is logged and returned for inspection, never escalated.
func (w *Waker) Wake(ctx context.Context) cmdrun.Result {
	run := cmdrun.Exec{Env: w.Env(), Timeout: wakeTimeout}

	res := run.Run(ctx, w.xset, "dpms", "force", "on")
	if reset := run.Run(ctx, w.xset, "s", "reset"); res.OK() {
		res = reset
	}
	metrics.IncDisplayWake(res.Kind.String())

	switch res.Kind {
	case cmdrun.Success:
		w.logger.Info().Msg("Display: wake (xset dpms on + s reset)")
	case cmdrun.ToolMissing:
		w.logger.Warn().Str(log.FieldTool, w.xset).Msg("Display: xset missing (install x11-xserver-utils)")
	default:
		w.logger.Warn().Str(log.FieldTool, w.xset).Str("detail", res.Detail).Msg("Display: wake failed")
	}
	return res
}
