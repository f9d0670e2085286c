// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import "go.opentelemetry.io/otel/attribute"

const (
	BusCommandKey = "bus.command"
	BusTopicKey   = "bus.topic"
	DeviceIDKey   = "kiosk.device_id"
	ErrorKey      = "error"
)

// CommandAttributes describes one inbound bus command.
func CommandAttributes(deviceID, topic, command string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(DeviceIDKey, deviceID),
		attribute.String(BusTopicKey, topic),
	}
	if command != "" {
		attrs = append(attrs, attribute.String(BusCommandKey, command))
	}
	return attrs
}
