// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks the loaded configuration and reports all problems at once.
func Validate(cfg AppConfig) error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if strings.TrimSpace(cfg.Relay.Device) == "" {
		add("relay device is empty")
	}
	if cfg.Relay.BaudRate <= 0 {
		add("baud rate must be positive, got %d", cfg.Relay.BaudRate)
	}
	if cfg.Relay.OnTimeSeconds <= 0 {
		add("relay on time must be positive, got %d", cfg.Relay.OnTimeSeconds)
	}
	if cfg.Touch.UnlockTouches < 1 {
		add("unlock touches must be >= 1, got %d", cfg.Touch.UnlockTouches)
	}
	if cfg.Touch.UnlockWindowSeconds <= 0 {
		add("unlock window must be positive, got %d", cfg.Touch.UnlockWindowSeconds)
	}
	if cfg.RTSP.DefaultSeconds <= 0 {
		add("rtsp default seconds must be positive, got %d", cfg.RTSP.DefaultSeconds)
	}
	if strings.TrimSpace(cfg.RTSP.PlayerBinary) == "" || strings.TrimSpace(cfg.Overlay.ViewerBinary) == "" {
		add("player and viewer binaries must be set")
	}
	if cfg.Streaming.MaxRetries < 0 {
		add("streaming retries must be >= 0, got %d", cfg.Streaming.MaxRetries)
	}
	if cfg.Streaming.PollInterval <= 0 || cfg.Streaming.PollTimeout < cfg.Streaming.PollInterval {
		add("streaming poll interval must be positive and not exceed the poll timeout")
	}
	if cfg.MQTT.PublishIntervalSeconds < 1 {
		add("mqtt publish interval must be >= 1, got %d", cfg.MQTT.PublishIntervalSeconds)
	}
	if cfg.MQTT.Port <= 0 || cfg.MQTT.Port > 65535 {
		add("mqtt port out of range: %d", cfg.MQTT.Port)
	}
	if cfg.Tracing.Enabled {
		switch cfg.Tracing.Exporter {
		case "grpc", "http":
		default:
			add("tracing exporter must be grpc or http, got %q", cfg.Tracing.Exporter)
		}
		if cfg.Tracing.SamplingRate < 0 || cfg.Tracing.SamplingRate > 1 {
			add("tracing sampling rate must be within 0..1, got %v", cfg.Tracing.SamplingRate)
		}
	}
	if strings.TrimSpace(cfg.Server.ListenAddr) == "" {
		add("listen address is empty")
	}

	return errors.Join(errs...)
}
