// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package input

import (
	"os"
	"sync"
)

// fakeDevice feeds events from a channel and records grab calls.
type fakeDevice struct {
	path   string
	events chan Event

	mu       sync.Mutex
	grabbed  bool
	grabs    int
	releases int
	closed   bool
	done     chan struct{}
}

func newFakeDevice(path string) *fakeDevice {
	return &fakeDevice{path: path, events: make(chan Event, 64), done: make(chan struct{})}
}

func (d *fakeDevice) ReadEvent() (Event, error) {
	select {
	case ev := <-d.events:
		return ev, nil
	case <-d.done:
		return Event{}, os.ErrClosed
	}
}

func (d *fakeDevice) Grab() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.grabbed = true
	d.grabs++
	return nil
}

func (d *fakeDevice) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.grabbed = false
	d.releases++
	return nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		close(d.done)
	}
	return nil
}

func (d *fakeDevice) isGrabbed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.grabbed
}

func (d *fakeDevice) Path() string { return d.path }
func (d *fakeDevice) Name() string { return "fake" }

func openerFor(devs map[string]*fakeDevice) Opener {
	return func(path string) (Device, error) {
		if d, ok := devs[path]; ok {
			return d, nil
		}
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrNotExist}
	}
}

func touch() Event { return Event{Type: EvAbs, Code: 0x35, Value: 100} }
