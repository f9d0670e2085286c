// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ManuGH/kioskd/internal/config"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, version))
}

func TestConfigDumpRedactsPassword(t *testing.T) {
	t.Setenv("MQTT_PASSWORD", "")
	t.Setenv("RELAY_ON_TIME", "")
	path := writeConfigFile(t, "mqtt:\n  password: hunter2\nrelay:\n  onTimeSeconds: 45\n")

	out, err := run(t, "config", "dump", "--config", path)
	require.NoError(t, err)
	assert.NotContains(t, out, "hunter2")

	var cfg config.AppConfig
	require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, redacted, cfg.MQTT.Password)
	assert.Equal(t, 45, cfg.Relay.OnTimeSeconds)
}

func TestConfigDumpJSON(t *testing.T) {
	out, err := run(t, "config", "dump", "--format", "json")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(out)))
}

func TestConfigDumpUnknownFormat(t *testing.T) {
	_, err := run(t, "config", "dump", "--format", "toml")
	require.Error(t, err)
}

func TestConfigRejectsUnknownKeys(t *testing.T) {
	path := writeConfigFile(t, "nonsense: true\n")
	_, err := run(t, "config", "validate", "--config", path)
	require.Error(t, err)
}

func TestHealthcheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	out, err := run(t, "healthcheck", "--addr", strings.TrimPrefix(srv.URL, "http://"))
	require.NoError(t, err)
	assert.Contains(t, out, "successful")
}

func TestHealthcheckFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := run(t, "healthcheck", "--addr", strings.TrimPrefix(srv.URL, "http://"))
	require.Error(t, err)
}
