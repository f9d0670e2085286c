// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldDeviceID  = "device_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldPID       = "pid"
	FieldExitCode  = "exit_code"
	FieldCommand   = "cmd"
	FieldTool      = "tool"

	// Device fields
	FieldDevice = "device"
	FieldBaud   = "baud"

	// Session fields
	FieldURL      = "url"
	FieldMode     = "mode"
	FieldSeconds  = "seconds"
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Bus fields
	FieldTopic   = "topic"
	FieldPayload = "payload"

	// Path fields
	FieldPath = "path"
)
