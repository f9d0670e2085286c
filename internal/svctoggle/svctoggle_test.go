// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package svctoggle

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/kioskd/internal/config"
	"github.com/ManuGH/kioskd/internal/platform/cmdrun"
)

// fakeSystemd models a unit whose state follows start/stop requests, with
// optional failures.
type fakeSystemd struct {
	mu       sync.Mutex
	active   bool
	calls    []string
	ignore   int // number of start/stop requests that have no effect
	missing  bool
}

func (f *fakeSystemd) Run(_ context.Context, name string, args ...string) cmdrun.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := strings.Join(append([]string{name}, args...), " ")
	f.calls = append(f.calls, call)

	if f.missing {
		return cmdrun.Result{Kind: cmdrun.ToolMissing, Detail: name + " not found"}
	}
	if name == "systemctl" && len(args) > 0 && args[0] == "is-active" {
		if f.active {
			return cmdrun.Result{Kind: cmdrun.Success}
		}
		return cmdrun.Result{Kind: cmdrun.IOFailure, ExitCode: 3}
	}
	if f.ignore > 0 {
		f.ignore--
		return cmdrun.Result{Kind: cmdrun.Success}
	}
	switch args[len(args)-2] {
	case "start":
		f.active = true
	case "stop":
		f.active = false
	}
	return cmdrun.Result{Kind: cmdrun.Success}
}

func (f *fakeSystemd) history() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newToggle(f *fakeSystemd, debounce time.Duration) *Toggle {
	return New(config.StreamingConfig{
		Service:      "rtsp-ingest",
		MaxRetries:   2,
		Debounce:     debounce,
		PollInterval: 5 * time.Millisecond,
		PollTimeout:  20 * time.Millisecond,
	}, f)
}

func TestSetEnabledStartsService(t *testing.T) {
	f := &fakeSystemd{}
	tg := newToggle(f, 0)

	require.NoError(t, tg.SetEnabled(context.Background(), true))
	assert.True(t, tg.Active(context.Background()))

	want := []string{
		"sudo -n systemctl start rtsp-ingest",
		"systemctl is-active --quiet rtsp-ingest",
		"systemctl is-active --quiet rtsp-ingest",
	}
	if diff := cmp.Diff(want, f.history()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestSetEnabledAlreadyActiveSucceedsFirstAttempt(t *testing.T) {
	f := &fakeSystemd{active: true}
	tg := newToggle(f, 0)

	require.NoError(t, tg.SetEnabled(context.Background(), true))

	starts := 0
	for _, c := range f.history() {
		if strings.Contains(c, " start ") {
			starts++
		}
	}
	assert.Equal(t, 1, starts)
}

func TestSetEnabledRetriesUntilConverged(t *testing.T) {
	f := &fakeSystemd{active: true, ignore: 2}
	tg := newToggle(f, 0)

	require.NoError(t, tg.SetEnabled(context.Background(), false))
	assert.False(t, f.active)

	stops := 0
	for _, c := range f.history() {
		if strings.HasPrefix(c, "sudo") {
			stops++
		}
	}
	assert.Equal(t, 3, stops)
}

func TestSetEnabledGivesUp(t *testing.T) {
	f := &fakeSystemd{ignore: 100}
	tg := newToggle(f, 0)

	err := tg.SetEnabled(context.Background(), true)
	require.ErrorIs(t, err, ErrNotConverged)

	attempts := 0
	for _, c := range f.history() {
		if strings.HasPrefix(c, "sudo") {
			attempts++
		}
	}
	assert.Equal(t, 3, attempts, "maxRetries+1 attempts")
}

func TestSetEnabledToolMissing(t *testing.T) {
	f := &fakeSystemd{missing: true}
	tg := newToggle(f, 0)

	err := tg.SetEnabled(context.Background(), true)
	require.ErrorIs(t, err, ErrNotConverged)
	assert.ErrorIs(t, err, cmdrun.ErrToolMissing)
}

func TestSetEnabledDebounces(t *testing.T) {
	f := &fakeSystemd{}
	tg := newToggle(f, time.Hour)

	require.NoError(t, tg.SetEnabled(context.Background(), true))
	calls := len(f.history())

	err := tg.SetEnabled(context.Background(), false)
	require.ErrorIs(t, err, ErrDebounced)
	assert.Len(t, f.history(), calls, "debounced request must not reach systemd")
	assert.True(t, f.active)
}
