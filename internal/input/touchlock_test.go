// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package input

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/kioskd/internal/config"
	"github.com/ManuGH/kioskd/internal/log"
)

func newTouchLock(t *testing.T) (*TouchLock, *fakeDevice, *clock.Mock) {
	t.Helper()
	dev := newFakeDevice("/dev/input/touch0")
	mock := clock.NewMock()
	tl := NewTouchLock(config.TouchConfig{
		DevicePath:          dev.path,
		UnlockTouches:       10,
		UnlockWindowSeconds: 10,
	}, WithOpener(openerFor(map[string]*fakeDevice{dev.path: dev})), WithClock(mock))
	return tl, dev, mock
}

func TestDisableGrabsAndEnableReleases(t *testing.T) {
	tl, dev, _ := newTouchLock(t)

	tl.Disable()
	disabled, locked := tl.State()
	assert.True(t, disabled)
	assert.False(t, locked)
	assert.True(t, dev.isGrabbed())

	tl.Enable()
	disabled, locked = tl.State()
	assert.False(t, disabled)
	assert.False(t, locked)
	assert.False(t, dev.isGrabbed())
}

func TestUnlockKeepsSoftLock(t *testing.T) {
	tl, dev, _ := newTouchLock(t)

	tl.Disable()
	tl.Lock()
	tl.Unlock()

	disabled, locked := tl.State()
	assert.True(t, disabled)
	assert.False(t, locked)
	assert.True(t, dev.isGrabbed(), "soft lock still suppresses OS input")
}

func TestGestureWithinWindowEnables(t *testing.T) {
	tl, _, mock := newTouchLock(t)
	var touches atomic.Int32
	tl.SetOnTouch(func() { touches.Add(1) })
	tl.Disable()

	// 10 events across 9 seconds.
	for i := 0; i < 10; i++ {
		if i > 0 {
			mock.Add(time.Second)
		}
		tl.handle(touch())
	}

	disabled, locked := tl.State()
	assert.False(t, disabled)
	assert.False(t, locked)
	assert.Equal(t, int32(10), touches.Load())
}

func TestGestureSpreadOutDoesNotEnable(t *testing.T) {
	tl, _, mock := newTouchLock(t)
	tl.Disable()

	// 5 events, a gap beyond the window, then 5 more: 21 seconds in total.
	for i := 0; i < 5; i++ {
		tl.handle(touch())
		mock.Add(time.Second)
	}
	mock.Add(11 * time.Second)
	for i := 0; i < 5; i++ {
		tl.handle(touch())
		mock.Add(time.Second)
	}

	disabled, _ := tl.State()
	assert.True(t, disabled)
	assert.Equal(t, 5, tl.counter)
}

func TestHardLockSuppressesEverything(t *testing.T) {
	tl, _, _ := newTouchLock(t)
	var touches atomic.Int32
	tl.SetOnTouch(func() { touches.Add(1) })

	tl.Disable()
	tl.Lock()
	for i := 0; i < 20; i++ {
		tl.handle(touch())
	}

	disabled, locked := tl.State()
	assert.True(t, locked)
	assert.True(t, disabled, "soft flag stays underneath the hard lock")
	assert.Equal(t, int32(0), touches.Load())
	assert.Equal(t, 0, tl.counter)
}

func TestUnlockProgressReachesEventLog(t *testing.T) {
	log.ClearRecent()
	tl, _, _ := newTouchLock(t)

	tl.Disable()
	tl.handle(touch())
	tl.handle(touch())
	tl.Lock()
	tl.handle(touch())

	lines := log.Recent(10)
	require.GreaterOrEqual(t, len(lines), 3)
	assert.True(t, strings.HasSuffix(lines[0], "touch: Touch: ignored (HARD-LOCK)"), lines[0])
	joined := strings.Join(lines, "\n")
	assert.Contains(t, joined, "touch: Touch: unlock 1/10")
	assert.Contains(t, joined, "touch: Touch: unlock 2/10")
}

func TestFreeStateCallsBackWithoutCounting(t *testing.T) {
	tl, _, _ := newTouchLock(t)
	var touches atomic.Int32
	tl.SetOnTouch(func() { touches.Add(1) })

	tl.handle(touch())
	tl.handle(Event{Type: EvSyn})

	assert.Equal(t, int32(1), touches.Load(), "sync events do not qualify")
	assert.Equal(t, 0, tl.counter)
}

func TestRunDispatchesEventsAndStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	tl, dev, _ := newTouchLock(t)
	var touches atomic.Int32
	tl.SetOnTouch(func() { touches.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- tl.Run(ctx) }()

	dev.events <- touch()
	dev.events <- Event{Type: EvKey, Code: 0x14a, Value: 1}
	require.Eventually(t, func() bool { return touches.Load() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunMissingDeviceDegrades(t *testing.T) {
	tl := NewTouchLock(config.TouchConfig{DevicePath: "/dev/input/missing", UnlockTouches: 3, UnlockWindowSeconds: 5},
		WithOpener(openerFor(nil)))

	assert.NoError(t, tl.Run(context.Background()))

	// State changes still work without a device.
	tl.Disable()
	disabled, _ := tl.State()
	assert.True(t, disabled)
}
