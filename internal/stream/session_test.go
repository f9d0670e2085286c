// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/kioskd/internal/config"
	"github.com/ManuGH/kioskd/internal/overlay"
	"github.com/ManuGH/kioskd/internal/relay"
)

// relayBoard emulates the serial relay: it latches on/off frames and answers
// the status byte with the latched state.
type relayBoard struct {
	mu sync.Mutex
	on bool
}

func (b *relayBoard) Open() (relay.Port, error) { return &relayBoardPort{board: b}, nil }

type relayBoardPort struct {
	board   *relayBoard
	pending *bytes.Reader
}

func (p *relayBoardPort) Write(frame []byte) (int, error) {
	p.board.mu.Lock()
	defer p.board.mu.Unlock()
	switch {
	case bytes.Equal(frame, []byte{0xA0, 0x01, 0x01, 0xA2}):
		p.board.on = true
	case bytes.Equal(frame, []byte{0xA0, 0x01, 0x00, 0xA1}):
		p.board.on = false
	case bytes.Equal(frame, []byte{0xFF}):
		state := "CH1: OFF\r\n"
		if p.board.on {
			state = "CH1: ON\r\n"
		}
		p.pending = bytes.NewReader([]byte(state))
	}
	return len(frame), nil
}

func (p *relayBoardPort) Read(buf []byte) (int, error) {
	if p.pending == nil || p.pending.Len() == 0 {
		return 0, nil
	}
	return p.pending.Read(buf)
}

func (p *relayBoardPort) Close() error                       { return nil }
func (p *relayBoardPort) ResetInputBuffer() error            { return nil }
func (p *relayBoardPort) SetReadTimeout(time.Duration) error { return nil }

func TestSessionRunsToIdleWithRealCollaborators(t *testing.T) {
	dir := t.TempDir()
	player := filepath.Join(dir, "mpv")
	viewer := filepath.Join(dir, "viewer")
	require.NoError(t, os.WriteFile(player, []byte("#!/bin/sh\nexec sleep 60\n"), 0o755))
	require.NoError(t, os.WriteFile(viewer, []byte("#!/bin/sh\nexec sleep 60\n"), 0o755))

	mock := clock.NewMock()
	display := &fakeDisplay{}
	ctrl := relay.New(&relayBoard{}, relay.WithClock(mock), relay.WithStatusDelay(0))
	black := overlay.New(config.OverlayConfig{
		ImagePath:    filepath.Join(dir, "black.png"),
		ViewerBinary: viewer,
	}, display)
	t.Cleanup(black.Hide)

	m := New(config.RTSPConfig{
		PlayerBinary:   player,
		LogPath:        filepath.Join(dir, "player.log"),
		DefaultSeconds: 300,
	}, display, black, ctrl, WithClock(mock), WithSettle(200*time.Millisecond))
	t.Cleanup(m.StopOnly)

	require.NoError(t, black.Show())
	require.True(t, black.Running())
	assert.Equal(t, "OFF", ctrl.Status())

	var done atomic.Int32
	require.NoError(t, m.Start(context.Background(), "rtsp://h/s", 30, "crop", func() { done.Add(1) }))

	info := m.Info()
	assert.True(t, info.Running)
	assert.Equal(t, Crop, info.Mode)
	assert.Equal(t, 30, info.Remaining)
	assert.False(t, black.Running(), "overlay is hidden while streaming")
	assert.Equal(t, "ON", ctrl.Status())
	assert.Equal(t, relay.TimedOn, ctrl.Mode())
	left, ok := ctrl.RemainingSeconds()
	require.True(t, ok)
	assert.Equal(t, 30, left)

	mock.Add(30 * time.Second)
	require.Eventually(t, func() bool { return done.Load() == 1 }, 3*time.Second, 10*time.Millisecond)

	assert.False(t, m.Info().Running)
	assert.Equal(t, "OFF", ctrl.Status())
	require.Eventually(t, func() bool { return ctrl.Mode() == relay.Idle }, time.Second, 5*time.Millisecond)
	_, ok = ctrl.RemainingSeconds()
	assert.False(t, ok)
	assert.True(t, black.Running(), "overlay is back after completion")
	assert.Equal(t, int32(1), display.wakes.Load())
}
