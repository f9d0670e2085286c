// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bridge

import (
	"fmt"

	"github.com/ManuGH/kioskd/internal/stream"
)

const (
	manufacturer = "kioskd"
	model        = "Kiosk display"
)

// entity is one Home Assistant discovery document.
type entity struct {
	component string
	objectID  string
	payload   map[string]any
}

func (e entity) topic(prefix, deviceID string) string {
	return fmt.Sprintf("%s/%s/%s/%s/config", prefix, e.component, deviceID, e.objectID)
}

type sensorDef struct {
	key, name, tpl, unit string
}

var sensors = []sensorDef{
	{"relay_state", "Relay", "{{ value_json.relay }}", ""},
	{"overlay_black", "Overlay black", "{{ value_json.overlay_black }}", ""},
	{"rtsp_running", "RTSP running", "{{ value_json.rtsp.running }}", ""},
	{"rtsp_url", "RTSP url", "{{ value_json.rtsp.url }}", ""},
	{"rtsp_mode", "RTSP mode", "{{ value_json.rtsp.mode }}", ""},
	{"rtsp_remaining", "RTSP remaining", "{{ value_json.rtsp.remaining }}", "s"},
	{"touch_locked", "Touch locked", "{{ value_json.touch_locked }}", ""},
	{"touch_disabled", "Touch disabled", "{{ value_json.touch_disabled }}", ""},
	{"display_remaining_seconds", "Display remaining", "{{ value_json.display_remaining_seconds }}", "s"},
	{"uptime", "Uptime", "{{ value_json.system.uptime_seconds }}", "s"},
	{"cpu_temp", "CPU temp", "{{ value_json.system.cpu_temp_c }}", "°C"},
	{"load1", "Load 1m", "{{ value_json.system.load1 }}", ""},
	{"mem_used_pct", "RAM used", "{{ value_json.system.mem_used_pct }}", "%"},
	{"disk_used_pct", "Disk used", "{{ value_json.system.disk_used_pct }}", "%"},
	{"ipv4", "IPv4", "{{ value_json.system.ipv4 }}", ""},
	{"ips_csv", "IPv4 list", "{{ value_json.system.ips_csv }}", ""},
}

type switchDef struct {
	objectID, name, command, tpl string
}

var switches = []switchDef{
	{"overlay_black_sw", "Overlay black", "overlay_black", "{{ 'ON' if value_json.overlay_black else 'OFF' }}"},
	// ON means unlocked.
	{"touch_sw", "Touch", "touch", "{{ 'ON' if (not value_json.touch_locked) else 'OFF' }}"},
	{"screen_sw", "Screen", "screen", "{{ 'ON' if value_json.screen_on else 'OFF' }}"},
	{"streaming_sw", "Streaming service", "streaming", "{{ 'ON' if value_json.streaming_active else 'OFF' }}"},
}

type buttonDef struct {
	objectID, name, command string
}

var buttons = []buttonDef{
	{"rtsp_start_btn", "RTSP Start", "rtsp_start"},
	{"rtsp_start_5min_btn", "RTSP Start 5 Min", "rtsp_start_5min"},
	{"rtsp_stop_btn", "RTSP Stop", "rtsp_stop"},
	{"screen_5min_btn", "Screen 5 Min", "screen_5min"},
	{"system_reboot_btn", "System reboot", "system/reboot"},
	{"system_shutdown_btn", "System shutdown", "system/shutdown"},
}

// entities builds every discovery document for the device.
func (b *Bridge) entities() []entity {
	common := func(name, objectID string) map[string]any {
		return map[string]any{
			"name":                  name,
			"unique_id":             b.deviceID + "_" + objectID,
			"availability_topic":    b.availTopic(),
			"payload_available":     payloadOnline,
			"payload_not_available": payloadOffline,
			"device": map[string]any{
				"identifiers":  []string{b.deviceID},
				"name":         b.deviceName,
				"manufacturer": manufacturer,
				"model":        model,
				"sw_version":   b.version,
			},
		}
	}

	out := make([]entity, 0, len(sensors)+len(switches)+len(buttons)+2)
	for _, s := range sensors {
		p := common(s.name, s.key)
		p["state_topic"] = b.stateTopic()
		p["value_template"] = s.tpl
		if s.unit != "" {
			p["unit_of_measurement"] = s.unit
		}
		out = append(out, entity{component: "sensor", objectID: s.key, payload: p})
	}
	for _, s := range switches {
		p := common(s.name, s.objectID)
		p["command_topic"] = b.cmdTopic(s.command)
		p["payload_on"] = payloadOn
		p["payload_off"] = payloadOff
		p["state_topic"] = b.stateTopic()
		p["value_template"] = s.tpl
		p["state_on"] = payloadOn
		p["state_off"] = payloadOff
		out = append(out, entity{component: "switch", objectID: s.objectID, payload: p})
	}

	text := common("RTSP URL", "rtsp_url_text")
	text["command_topic"] = b.cmdTopic(cmdPresetURL)
	text["state_topic"] = b.stateTopic()
	text["value_template"] = "{{ value_json.rtsp_preset.url }}"
	text["mode"] = "text"
	out = append(out, entity{component: "text", objectID: "rtsp_url_text", payload: text})

	options := make([]string, len(stream.Modes))
	for i, m := range stream.Modes {
		options[i] = string(m)
	}
	sel := common("RTSP Mode", "rtsp_mode_sel")
	sel["command_topic"] = b.cmdTopic(cmdPresetMode)
	sel["state_topic"] = b.stateTopic()
	sel["value_template"] = "{{ value_json.rtsp_preset.mode }}"
	sel["options"] = options
	out = append(out, entity{component: "select", objectID: "rtsp_mode_sel", payload: sel})

	for _, bt := range buttons {
		p := common(bt.name, bt.objectID)
		p["command_topic"] = b.cmdTopic(bt.command)
		p["payload_press"] = payloadPress
		out = append(out, entity{component: "button", objectID: bt.objectID, payload: p})
	}
	return out
}
