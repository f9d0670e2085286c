// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package display

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/kioskd/internal/config"
	"github.com/ManuGH/kioskd/internal/platform/cmdrun"
)

// writeStubXset installs a fake xset that appends its arguments and X
// environment to a record file, then exits with code.
func writeStubXset(t *testing.T, code int) (bin, record string) {
	t.Helper()
	dir := t.TempDir()
	record = filepath.Join(dir, "calls.log")
	bin = filepath.Join(dir, "xset")
	script := fmt.Sprintf("#!/bin/sh\necho \"$* DISPLAY=$DISPLAY XAUTHORITY=$XAUTHORITY\" >> %s\nexit %d\n", record, code)
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))
	return bin, record
}

func TestWakeRunsBothCommands(t *testing.T) {
	bin, record := writeStubXset(t, 0)
	w := New(config.DisplayConfig{Display: ":7", XAuthority: "/tmp/xa", XsetBinary: bin})

	res := w.Wake(context.Background())
	require.True(t, res.OK(), res.Detail)

	data, err := os.ReadFile(record)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "dpms force on DISPLAY=:7 XAUTHORITY=/tmp/xa", lines[0])
	assert.Equal(t, "s reset DISPLAY=:7 XAUTHORITY=/tmp/xa", lines[1])
}

func TestWakeToolMissing(t *testing.T) {
	w := New(config.DisplayConfig{Display: ":0", XsetBinary: "kioskd-no-such-xset"})
	res := w.Wake(context.Background())
	assert.Equal(t, cmdrun.ToolMissing, res.Kind)
}

func TestWakeFailureStillResetsScreensaver(t *testing.T) {
	bin, record := writeStubXset(t, 1)
	w := New(config.DisplayConfig{Display: ":0", XsetBinary: bin})

	res := w.Wake(context.Background())
	assert.Equal(t, cmdrun.IOFailure, res.Kind)
	assert.Equal(t, 1, res.ExitCode)

	data, err := os.ReadFile(record)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "dpms force on "))
	assert.True(t, strings.HasPrefix(lines[1], "s reset "))
}

func TestWakeReportsFirstFailure(t *testing.T) {
	dir := t.TempDir()
	record := filepath.Join(dir, "calls.log")
	bin := filepath.Join(dir, "xset")
	// dpms succeeds, s reset fails with 3.
	script := fmt.Sprintf("#!/bin/sh\necho \"$*\" >> %s\n[ \"$1\" = dpms ] && exit 0\nexit 3\n", record)
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))
	w := New(config.DisplayConfig{Display: ":0", XsetBinary: bin})

	res := w.Wake(context.Background())
	assert.Equal(t, cmdrun.IOFailure, res.Kind)
	assert.Equal(t, 3, res.ExitCode)

	data, err := os.ReadFile(record)
	require.NoError(t, err)
	assert.Equal(t, "dpms force on\ns reset\n", string(data))
}

func TestXAuthorityCandidates(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "present")
	require.NoError(t, os.WriteFile(present, []byte("x"), 0o600))

	w := New(config.DisplayConfig{Display: ":0"})
	w.candidates = func() []string {
		return []string{filepath.Join(dir, "missing"), dir, present}
	}
	assert.Equal(t, present, w.XAuthority())

	w.candidates = func() []string { return []string{filepath.Join(dir, "missing")} }
	assert.Equal(t, "", w.XAuthority())
}

func TestEnvReplacesDisplay(t *testing.T) {
	t.Setenv("DISPLAY", ":99")
	w := New(config.DisplayConfig{Display: ":1", XAuthority: "/x/auth"})

	env := w.Env()
	assert.Contains(t, env, "DISPLAY=:1")
	assert.Contains(t, env, "XAUTHORITY=/x/auth")
	assert.NotContains(t, env, "DISPLAY=:99")
}
