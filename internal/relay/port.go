// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package relay

import (
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// Port is the byte channel to the relay board. go.bug.st/serial ports satisfy it.
type Port interface {
	io.ReadWriteCloser
	ResetInputBuffer() error
	SetReadTimeout(t time.Duration) error
}

// Opener opens a fresh Port for one command. Ports are never kept open
// between commands.
type Opener interface {
	Open() (Port, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func() (Port, error)

func (f OpenerFunc) Open() (Port, error) { return f() }

// SerialOpener opens a tty with 8N1 framing at the configured baud rate.
type SerialOpener struct {
	Device   string
	BaudRate int
}

func (o SerialOpener) Open() (Port, error) {
	p, err := serial.Open(o.Device, &serial.Mode{
		BaudRate: o.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", o.Device, err)
	}
	return p, nil
}
