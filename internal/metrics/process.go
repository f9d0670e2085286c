// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProcTerminateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kioskd_proc_terminate_total",
		Help: "Signals sent to supervised process groups by signal and outcome",
	}, []string{"signal", "outcome"})

	ProcExitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kioskd_proc_exit_total",
		Help: "Supervised process exits observed during termination by reason",
	}, []string{"reason"})

	StreamStartTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kioskd_stream_start_total",
		Help: "Stream start attempts by result and reason",
	}, []string{"result", "reason", "mode"})

	OverlayShowTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kioskd_overlay_show_total",
		Help: "Overlay show attempts by result",
	}, []string{"result"})

	ServiceToggleTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kioskd_service_toggle_total",
		Help: "Streaming service toggle requests by desired state and result",
	}, []string{"desired", "result"})
)

// IncProcTerminate records a signal delivery outcome ("sent", "esrch", "error").
func IncProcTerminate(signal, outcome string) {
	ProcTerminateTotal.WithLabelValues(signal, outcome).Inc()
}

// IncProcExit records how a supervised process ended ("graceful", "forced", "stuck").
func IncProcExit(reason string) {
	ProcExitTotal.WithLabelValues(reason).Inc()
}

// IncStreamStart records a stream start attempt outcome.
func IncStreamStart(success bool, reason, mode string) {
	StreamStartTotal.WithLabelValues(result(success), reason, mode).Inc()
}

// IncOverlayShow records an overlay spawn attempt.
func IncOverlayShow(ok bool) {
	OverlayShowTotal.WithLabelValues(result(ok)).Inc()
}

// IncServiceToggle records a toggle outcome ("success", "failure", "debounced").
func IncServiceToggle(desired bool, outcome string) {
	d := "stop"
	if desired {
		d = "start"
	}
	ServiceToggleTotal.WithLabelValues(d, outcome).Inc()
}
