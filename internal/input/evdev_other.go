// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build !linux

package input

// Open always fails outside Linux.
func Open(path string) (Device, error) {
	return nil, ErrUnsupported
}
