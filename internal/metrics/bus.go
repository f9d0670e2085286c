// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BusPublishTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kioskd_bus_publish_total",
		Help: "Total number of message bus publishes by kind and result",
	}, []string{"kind", "result"})

	BusCommandTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kioskd_bus_command_total",
		Help: "Total number of inbound bus commands by command name",
	}, []string{"command"})
)

// IncBusPublish records one publish attempt ("state", "discovery", "availability").
func IncBusPublish(kind string, ok bool) {
	BusPublishTotal.WithLabelValues(kind, result(ok)).Inc()
}

// IncBusCommand records one dispatched inbound command.
func IncBusCommand(command string) {
	if command == "" {
		command = "unknown"
	}
	BusCommandTotal.WithLabelValues(command).Inc()
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
