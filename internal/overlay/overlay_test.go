// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package overlay

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/kioskd/internal/config"
)

type staticEnv []string

func (e staticEnv) Env() []string { return e }

// writeStubViewer installs a fake viewer that records each launch and then
// runs body.
func writeStubViewer(t *testing.T, body string) (bin, launches string) {
	t.Helper()
	dir := t.TempDir()
	launches = filepath.Join(dir, "launches")
	bin = filepath.Join(dir, "mpv")
	script := "#!/bin/sh\necho \"$*\" >> " + launches + "\n" + body + "\n"
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))
	return bin, launches
}

func newManager(t *testing.T, viewer string) *Manager {
	t.Helper()
	m := New(config.OverlayConfig{
		ImagePath:    filepath.Join(t.TempDir(), "black.png"),
		ViewerBinary: viewer,
	}, staticEnv{"PATH=/usr/bin:/bin"})
	m.grace = 500 * time.Millisecond
	return m
}

func TestEnsureAssetWritesEmbeddedImage(t *testing.T) {
	m := newManager(t, "mpv")
	require.NoError(t, m.EnsureAsset())

	data, err := os.ReadFile(m.imagePath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")))
	assert.Equal(t, blackPNG, data)
}

func TestEnsureAssetKeepsExistingFile(t *testing.T) {
	m := newManager(t, "mpv")
	require.NoError(t, os.WriteFile(m.imagePath, []byte("custom"), 0o644))

	require.NoError(t, m.EnsureAsset())
	data, err := os.ReadFile(m.imagePath)
	require.NoError(t, err)
	assert.Equal(t, "custom", string(data))
}

func TestEnsureAssetReplacesEmptyFile(t *testing.T) {
	m := newManager(t, "mpv")
	require.NoError(t, os.WriteFile(m.imagePath, nil, 0o644))

	require.NoError(t, m.EnsureAsset())
	st, err := os.Stat(m.imagePath)
	require.NoError(t, err)
	assert.Equal(t, int64(len(blackPNG)), st.Size())
}

func TestShowIsIdempotent(t *testing.T) {
	bin, launches := writeStubViewer(t, "exec sleep 30")
	m := newManager(t, bin)
	defer m.Hide()

	require.NoError(t, m.Show())
	require.NoError(t, m.Show())
	assert.True(t, m.Running())

	require.Eventually(t, func() bool {
		_, err := os.Stat(launches)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	data, err := os.ReadFile(launches)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1, "only one viewer may run")
	assert.Equal(t, "--no-terminal --fs --ontop --no-osc --vo=gpu "+m.imagePath, lines[0])
}

func TestHideStopsViewer(t *testing.T) {
	bin, _ := writeStubViewer(t, "exec sleep 30")
	m := newManager(t, bin)

	require.NoError(t, m.Show())
	m.Hide()
	assert.False(t, m.Running())

	// Hide without a viewer is a no-op.
	m.Hide()
	assert.False(t, m.Running())
}

func TestShowRestartsAfterViewerExit(t *testing.T) {
	bin, _ := writeStubViewer(t, "exit 0")
	m := newManager(t, bin)

	require.NoError(t, m.Show())
	require.Eventually(t, func() bool { return !m.Running() }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, m.Show())
	m.Hide()
}

func TestShowMissingViewer(t *testing.T) {
	m := newManager(t, "kioskd-no-such-viewer")
	err := m.Show()
	require.ErrorIs(t, err, ErrToolMissing)
	assert.False(t, m.Running())
}
