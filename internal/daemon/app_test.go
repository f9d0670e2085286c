// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeKiosk struct {
	startErr  error
	started   atomic.Bool
	shutdowns atomic.Int32
}

func (k *fakeKiosk) Startup(context.Context) error {
	if k.startErr != nil {
		return k.startErr
	}
	k.started.Store(true)
	return nil
}

func (k *fakeKiosk) Shutdown() { k.shutdowns.Add(1) }

func TestAppRunsRunnersAndTearsDown(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	mgr, err := NewManager(testDeps())
	require.NoError(t, err)
	kiosk := &fakeKiosk{}

	var ran, failed atomic.Int32
	runners := []Runner{
		{Name: "listener", Run: func(ctx context.Context) error {
			ran.Add(1)
			<-ctx.Done()
			return nil
		}},
		{Name: "broken", Run: func(context.Context) error {
			failed.Add(1)
			return errors.New("no device")
		}},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewApp(zerolog.New(io.Discard), mgr, kiosk, runners...).Run(ctx) }()

	require.Eventually(t, func() bool { return ran.Load() == 1 && failed.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, kiosk.started.Load())
	assert.Zero(t, kiosk.shutdowns.Load(), "a failed runner must not stop the kiosk")

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), kiosk.shutdowns.Load())
}

func TestAppStartupFailure(t *testing.T) {
	mgr, err := NewManager(testDeps())
	require.NoError(t, err)
	boom := errors.New("no asset")

	err = NewApp(zerolog.New(io.Discard), mgr, &fakeKiosk{startErr: boom}).Run(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestAppRequiresManagerAndKiosk(t *testing.T) {
	require.ErrorIs(t, NewApp(zerolog.New(io.Discard), nil, &fakeKiosk{}).Run(context.Background()), ErrMissingManager)

	mgr, err := NewManager(testDeps())
	require.NoError(t, err)
	require.ErrorIs(t, NewApp(zerolog.New(io.Discard), mgr, nil).Run(context.Background()), ErrMissingOrchestrator)
}
