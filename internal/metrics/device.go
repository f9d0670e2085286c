// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RelayCommandsTotal counts relay wire commands (on, off, status).
	RelayCommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kioskd_relay_commands_total",
		Help: "Relay commands sent over the serial channel by command and result",
	}, []string{"command", "result"})

	RelayTimersArmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kioskd_relay_timers_armed_total",
		Help: "Relay auto-off timers armed (replacements included)",
	})

	TouchEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kioskd_touch_events_total",
		Help: "Qualifying touch events by outcome",
	}, []string{"outcome"})

	KeyPressTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kioskd_keyboard_wake_total",
		Help: "Key presses that triggered a screen wake",
	})

	DisplayWakeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kioskd_display_wake_total",
		Help: "Display wake attempts by result kind",
	}, []string{"kind"})
)

// IncRelayCommand records one relay command outcome.
func IncRelayCommand(command string, ok bool) {
	RelayCommandsTotal.WithLabelValues(command, result(ok)).Inc()
}

// IncRelayTimerArmed records one armed auto-off timer.
func IncRelayTimerArmed() {
	RelayTimersArmed.Inc()
}

// IncTouchEvent records a touch event outcome ("ignored_locked", "wake", "unlock").
func IncTouchEvent(outcome string) {
	TouchEventsTotal.WithLabelValues(outcome).Inc()
}

// IncKeyPress records a keyboard wake.
func IncKeyPress() {
	KeyPressTotal.Inc()
}

// IncDisplayWake records the classified result of a wake attempt.
func IncDisplayWake(kind string) {
	DisplayWakeTotal.WithLabelValues(kind).Inc()
}
