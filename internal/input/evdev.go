// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package input reads Linux evdev devices: the touch lock with its unlock
// gesture and the keyboard wake listener.
package input

import (
	"errors"
	"time"
)

// Event types from linux/input-event-codes.h.
const (
	EvSyn uint16 = 0x00
	EvKey uint16 = 0x01
	EvAbs uint16 = 0x03
)

// ErrUnsupported is returned by Open on platforms without evdev.
var ErrUnsupported = errors.New("evdev not supported on this platform")

// Event is one decoded input_event.
type Event struct {
	Time  time.Time
	Type  uint16
	Code  uint16
	Value int32
}

// Device is an open input device node.
type Device interface {
	// ReadEvent blocks until the next event. It fails once the device is closed.
	ReadEvent() (Event, error)
	// Grab routes all events exclusively to this reader (EVIOCGRAB).
	Grab() error
	// Release undoes Grab.
	Release() error
	Close() error
	Path() string
	Name() string
}

// Opener opens a device node.
type Opener func(path string) (Device, error)
