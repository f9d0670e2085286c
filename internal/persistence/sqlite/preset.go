// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Preset is the remembered stream target used by argument-less start commands.
type Preset struct {
	URL     string
	Mode    string
	Seconds int
}

// PresetStore persists a single Preset row.
type PresetStore struct {
	db *sql.DB
}

const presetSchema = `
CREATE TABLE IF NOT EXISTS stream_preset (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	url        TEXT    NOT NULL,
	mode       TEXT    NOT NULL,
	seconds    INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);`

// NewPresetStore creates the table if needed.
func NewPresetStore(ctx context.Context, db *sql.DB) (*PresetStore, error) {
	if _, err := db.ExecContext(ctx, presetSchema); err != nil {
		return nil, fmt.Errorf("sqlite: migrate preset: %w", err)
	}
	return &PresetStore{db: db}, nil
}

// Load returns the stored preset. ok is false when nothing was saved yet.
func (s *PresetStore) Load(ctx context.Context) (p Preset, ok bool, err error) {
	row := s.db.QueryRowContext(ctx, `SELECT url, mode, seconds FROM stream_preset WHERE id = 1`)
	if err := row.Scan(&p.URL, &p.Mode, &p.Seconds); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Preset{}, false, nil
		}
		return Preset{}, false, fmt.Errorf("sqlite: load preset: %w", err)
	}
	return p, true, nil
}

// Save replaces the stored preset.
func (s *PresetStore) Save(ctx context.Context, p Preset) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO stream_preset (id, url, mode, seconds, updated_at) VALUES (1, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET url = excluded.url, mode = excluded.mode,
	seconds = excluded.seconds, updated_at = excluded.updated_at`,
		p.URL, p.Mode, p.Seconds, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("sqlite: save preset: %w", err)
	}
	return nil
}
