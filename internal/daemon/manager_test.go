// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/kioskd/internal/config"
)

func testDeps() Deps {
	return Deps{
		Logger: zerolog.New(io.Discard),
		Server: config.ServerConfig{
			ListenAddr:        "127.0.0.1:0",
			MetricsListenAddr: "127.0.0.1:0",
			ReadTimeout:       time.Second,
			WriteTimeout:      time.Second,
			IdleTimeout:       time.Second,
			ShutdownTimeout:   time.Second,
		},
		APIHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "api")
		}),
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "metrics")
		}),
	}
}

func get(t *testing.T, addr net.Addr) string {
	t.Helper()
	resp, err := http.Get("http://" + addr.String() + "/")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestDepsValidate(t *testing.T) {
	d := testDeps()
	d.APIHandler = nil
	_, err := NewManager(d)
	require.ErrorIs(t, err, ErrMissingAPIHandler)

	d = testDeps()
	d.Logger = zerolog.Nop()
	_, err = NewManager(d)
	require.ErrorIs(t, err, ErrMissingLogger)
}

func TestManagerServesAndShutsDown(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	mgr, err := NewManager(testDeps())
	require.NoError(t, err)
	m := mgr.(*manager)

	var mu sync.Mutex
	var order []string
	for _, name := range []string{"first", "second", "third"} {
		mgr.RegisterShutdownHook(name, func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mgr.Start(ctx) }()

	require.Eventually(t, func() bool {
		api, metrics := m.addrs()
		return api != nil && metrics != nil
	}, 2*time.Second, 10*time.Millisecond)
	api, metrics := m.addrs()
	assert.Equal(t, "api", get(t, api))
	assert.Equal(t, "metrics", get(t, metrics))

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []string{"third", "second", "first"}, order)
	http.DefaultClient.CloseIdleConnections()
}

func TestManagerShutdownHookErrorsJoined(t *testing.T) {
	mgr, err := NewManager(testDeps())
	require.NoError(t, err)
	boom := errors.New("boom")
	mgr.RegisterShutdownHook("bad", func(context.Context) error { return boom })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = mgr.Start(ctx)
	require.ErrorIs(t, err, boom)
}

func TestManagerBindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	d := testDeps()
	d.Server.ListenAddr = ln.Addr().String()
	mgr, err := NewManager(d)
	require.NoError(t, err)

	err = mgr.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start API server")
}

func TestShutdownBeforeStart(t *testing.T) {
	mgr, err := NewManager(testDeps())
	require.NoError(t, err)
	require.ErrorIs(t, mgr.Shutdown(context.Background()), ErrManagerNotStarted)
}
