// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseString(t *testing.T) {
	t.Setenv("KIOSK_TEST_STRING", "from-env")
	t.Setenv("KIOSK_TEST_EMPTY", "")

	assert.Equal(t, "from-env", ParseString("KIOSK_TEST_STRING", "default"))
	assert.Equal(t, "default", ParseString("KIOSK_TEST_EMPTY", "default"))
	assert.Equal(t, "default", ParseString("KIOSK_TEST_UNSET", "default"))
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{name: "valid", value: "42", want: 42},
		{name: "padded", value: " 7 ", want: 7},
		{name: "invalid falls back", value: "lots", want: 3},
		{name: "empty falls back", value: "", want: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("KIOSK_TEST_INT", tt.value)
			assert.Equal(t, tt.want, ParseInt("KIOSK_TEST_INT", 3))
		})
	}
}

func TestParseFloat(t *testing.T) {
	t.Setenv("KIOSK_TEST_FLOAT", "0.25")
	assert.InDelta(t, 0.25, ParseFloat("KIOSK_TEST_FLOAT", 1), 1e-9)
	t.Setenv("KIOSK_TEST_FLOAT", "half")
	assert.InDelta(t, 1.0, ParseFloat("KIOSK_TEST_FLOAT", 1), 1e-9)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "go duration", value: "1m30s", want: 90 * time.Second},
		{name: "bare seconds", value: "15", want: 15 * time.Second},
		{name: "invalid falls back", value: "soon", want: time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("KIOSK_TEST_DURATION", tt.value)
			assert.Equal(t, tt.want, ParseDuration("KIOSK_TEST_DURATION", time.Second))
		})
	}
}

func TestParseBool(t *testing.T) {
	for _, v := range []string{"true", "1", "YES", "On"} {
		t.Setenv("KIOSK_TEST_BOOL", v)
		assert.True(t, ParseBool("KIOSK_TEST_BOOL", false), v)
	}
	for _, v := range []string{"false", "0", "no", "OFF"} {
		t.Setenv("KIOSK_TEST_BOOL", v)
		assert.False(t, ParseBool("KIOSK_TEST_BOOL", true), v)
	}
	t.Setenv("KIOSK_TEST_BOOL", "maybe")
	assert.True(t, ParseBool("KIOSK_TEST_BOOL", true))
}
