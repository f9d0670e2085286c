// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresetRoundTripSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kioskd.db")

	db, err := Open(path, DefaultConfig())
	require.NoError(t, err)
	store, err := NewPresetStore(ctx, db)
	require.NoError(t, err)

	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, Preset{URL: "rtsp://a/1", Mode: "crop", Seconds: 60}))
	require.NoError(t, store.Save(ctx, Preset{URL: "rtsp://b/2", Mode: "stretch", Seconds: 120}))
	require.NoError(t, db.Close())

	db, err = Open(path, DefaultConfig())
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	store, err = NewPresetStore(ctx, db)
	require.NoError(t, err)

	p, ok, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Preset{URL: "rtsp://b/2", Mode: "stretch", Seconds: 120}, p)
}

func TestVerifyIntegrityHealthy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kioskd.db")
	db, err := Open(path, DefaultConfig())
	require.NoError(t, err)
	_, err = NewPresetStore(context.Background(), db)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	issues, err := VerifyIntegrity(path)
	require.NoError(t, err)
	assert.Nil(t, issues)
}
