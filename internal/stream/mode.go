// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import "strings"

// Mode selects how the portrait display is filled.
type Mode string

const (
	// Normal plays the stream as delivered.
	Normal Mode = "normal"
	// Crop scales to 1920 high and center-crops to 1080x1920.
	Crop Mode = "crop"
	// Stretch scales to 1080x1920 ignoring aspect ratio.
	Stretch Mode = "stretch"
)

// Modes lists every supported mode in display order.
var Modes = []Mode{Normal, Crop, Stretch}

// ParseMode normalizes s, falling back to Normal for unknown values.
func ParseMode(s string) Mode {
	m, ok := LookupMode(s)
	if !ok {
		return Normal
	}
	return m
}

// LookupMode reports whether s names a supported mode.
func LookupMode(s string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case Normal:
		return Normal, true
	case Crop:
		return Crop, true
	case Stretch:
		return Stretch, true
	default:
		return "", false
	}
}

// filterArgs returns the player arguments implementing the mode.
func (m Mode) filterArgs() []string {
	switch m {
	case Crop:
		return []string{"--vf=scale=-2:1920,crop=1080:1920:(iw-1080)/2:(ih-1920)/2"}
	case Stretch:
		return []string{"--vf=scale=1080:1920", "--no-keepaspect"}
	default:
		return nil
	}
}
