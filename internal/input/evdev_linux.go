// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build linux

package input

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	eviocgrab    = 0x40044590 // _IOW('E', 0x90, int)
	nameBufLen   = 256
	eviocgname   = 0x80000000 | nameBufLen<<16 | 'E'<<8 | 0x06 // _IOC(_IOC_READ, 'E', 0x06, len)
	sizeofRawEvt = int(unsafe.Sizeof(rawEvent{}))
)

type rawEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

type evdevDevice struct {
	f    *os.File
	path string
	name string
}

// Open opens path read-only. The descriptor stays non-blocking so Close
// unblocks a pending ReadEvent.
func Open(path string) (Device, error) {
	// #nosec G304 -- device paths come from operator configuration
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	d := &evdevDevice{f: f, path: path}
	d.name = d.readName()
	return d, nil
}

func (d *evdevDevice) readName() string {
	buf := make([]byte, nameBufLen)
	var errno unix.Errno
	rc, err := d.f.SyscallConn()
	if err != nil {
		return ""
	}
	_ = rc.Control(func(fd uintptr) {
		_, _, errno = unix.Syscall(unix.SYS_IOCTL, fd, uintptr(eviocgname), uintptr(unsafe.Pointer(&buf[0])))
	})
	if errno != 0 {
		return ""
	}
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	return string(buf)
}

func (d *evdevDevice) ReadEvent() (Event, error) {
	buf := make([]byte, sizeofRawEvt)
	if _, err := readFull(d.f, buf); err != nil {
		return Event{}, err
	}
	var raw rawEvent
	if err := binary.Read(bytes.NewReader(buf), binary.NativeEndian, &raw); err != nil {
		return Event{}, fmt.Errorf("decode input_event: %w", err)
	}
	return Event{
		Time:  time.Unix(int64(raw.Time.Sec), int64(raw.Time.Usec)*int64(time.Microsecond)),
		Type:  raw.Type,
		Code:  raw.Code,
		Value: raw.Value,
	}, nil
}

func readFull(f *os.File, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := f.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func (d *evdevDevice) ioctlGrab(v int) error {
	rc, err := d.f.SyscallConn()
	if err != nil {
		return err
	}
	var ioErr error
	if err := rc.Control(func(fd uintptr) {
		ioErr = unix.IoctlSetInt(int(fd), eviocgrab, v)
	}); err != nil {
		return err
	}
	return ioErr
}

func (d *evdevDevice) Grab() error    { return d.ioctlGrab(1) }
func (d *evdevDevice) Release() error { return d.ioctlGrab(0) }
func (d *evdevDevice) Close() error   { return d.f.Close() }
func (d *evdevDevice) Path() string   { return d.path }
func (d *evdevDevice) Name() string   { return d.name }
