// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence ENV > file > defaults.
type Loader struct {
	configPath      string
	version         string
	hostname        func() (string, error)
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		hostname:        os.Hostname,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, cur string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, cur)
}

func (l *Loader) envInt(key string, cur int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, cur)
}

func (l *Loader) envBool(key string, cur bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, cur)
}

func (l *Loader) envFloat(key string, cur float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, cur)
}

func (l *Loader) envDuration(key string, cur time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, cur)
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		LogLevel: "info",
		DataDir:  "/var/lib/kioskd",
		Relay: RelayConfig{
			Device:        "/dev/ttyUSB0",
			BaudRate:      9600,
			OnTimeSeconds: 300,
		},
		Touch: TouchConfig{
			DevicePath:          "/dev/input/touchscreen",
			KeyboardGlob:        "/dev/input/by-id/*-kbd",
			UnlockTouches:       10,
			UnlockWindowSeconds: 10,
		},
		Display: DisplayConfig{
			Display:    ":0",
			XsetBinary: "xset",
		},
		Overlay: OverlayConfig{
			ImagePath:    "/tmp/relay_black.png",
			ViewerBinary: "mpv",
		},
		RTSP: RTSPConfig{
			DefaultURL:     "rtsp://192.168.10.36:8554/Eingang",
			DefaultSeconds: 300,
			LogPath:        "/tmp/mpv_rtsp.log",
			PlayerBinary:   "mpv",
		},
		Streaming: StreamingConfig{
			Service:      "rtsp-ingest",
			MaxRetries:   2,
			Debounce:     3 * time.Second,
			PollInterval: 250 * time.Millisecond,
			PollTimeout:  5 * time.Second,
		},
		MQTT: MQTTConfig{
			Enabled:                true,
			Port:                   1883,
			DiscoveryPrefix:        "homeassistant",
			PublishIntervalSeconds: 5,
			RetainDiscovery:        true,
		},
		Tracing: TracingConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
		Server: ServerConfig{
			ListenAddr:      ":8000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimitPerMin: 600,
		},
	}
}

// Load builds the configuration: defaults, then the optional YAML file, then
// environment overrides. The result is validated before it is returned.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()
	cfg.Version = l.version

	if l.configPath != "" {
		if err := l.mergeFile(&cfg); err != nil {
			return AppConfig{}, err
		}
	}
	l.mergeEnv(&cfg)

	host, err := l.hostname()
	if err != nil || host == "" {
		host = "kiosk"
	}
	cfg.Hostname = host
	cfg.DeviceID = Slug(host)

	if err := Validate(cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func (l *Loader) mergeFile(cfg *AppConfig) error {
	// #nosec G304 -- path comes from the operator's --config flag
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", l.configPath, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", l.configPath, err)
	}
	return nil
}

func (l *Loader) mergeEnv(cfg *AppConfig) {
	cfg.LogLevel = l.envString("LOG_LEVEL", cfg.LogLevel)
	cfg.DataDir = l.envString("KIOSK_DATA", cfg.DataDir)

	cfg.Relay.Device = l.envString("DEVICE_RELAY", cfg.Relay.Device)
	cfg.Relay.BaudRate = l.envInt("BAUDRATE", cfg.Relay.BaudRate)
	cfg.Relay.OnTimeSeconds = l.envInt("RELAY_ON_TIME", cfg.Relay.OnTimeSeconds)

	cfg.Touch.DevicePath = l.envString("TOUCH_DEVICE_PATH", cfg.Touch.DevicePath)
	cfg.Touch.KeyboardGlob = l.envString("KEYBOARD_GLOB", cfg.Touch.KeyboardGlob)
	cfg.Touch.UnlockTouches = l.envInt("UNLOCK_TOUCHES", cfg.Touch.UnlockTouches)
	cfg.Touch.UnlockWindowSeconds = l.envInt("UNLOCK_WINDOW", cfg.Touch.UnlockWindowSeconds)

	cfg.Display.Display = l.envString("DISPLAY", cfg.Display.Display)
	cfg.Display.XAuthority = l.envString("XAUTHORITY", cfg.Display.XAuthority)
	cfg.Display.XsetBinary = l.envString("XSET_BINARY", cfg.Display.XsetBinary)

	cfg.Overlay.ImagePath = l.envString("BLACK_PNG_PATH", cfg.Overlay.ImagePath)
	cfg.Overlay.ViewerBinary = l.envString("VIEWER_BINARY", cfg.Overlay.ViewerBinary)

	cfg.RTSP.DefaultURL = l.envString("RTSP_DEFAULT_URL", cfg.RTSP.DefaultURL)
	cfg.RTSP.DefaultSeconds = l.envInt("RTSP_DEFAULT_SECONDS", cfg.RTSP.DefaultSeconds)
	cfg.RTSP.LogPath = l.envString("RTSP_LOG_PATH", cfg.RTSP.LogPath)
	cfg.RTSP.PlayerBinary = l.envString("PLAYER_BINARY", cfg.RTSP.PlayerBinary)

	cfg.Streaming.Service = l.envString("STREAMING_SERVICE", cfg.Streaming.Service)
	cfg.Streaming.MaxRetries = l.envInt("STREAMING_RETRIES", cfg.Streaming.MaxRetries)
	cfg.Streaming.Debounce = l.envDuration("STREAMING_DEBOUNCE", cfg.Streaming.Debounce)

	cfg.MQTT.Enabled = l.envBool("MQTT_ENABLED", cfg.MQTT.Enabled)
	cfg.MQTT.Host = l.envString("MQTT_HOST", cfg.MQTT.Host)
	cfg.MQTT.Port = l.envInt("MQTT_PORT", cfg.MQTT.Port)
	cfg.MQTT.User = l.envString("MQTT_USER", cfg.MQTT.User)
	cfg.MQTT.Password = l.envString("MQTT_PASSWORD", cfg.MQTT.Password)
	cfg.MQTT.DiscoveryPrefix = l.envString("MQTT_DISCOVERY_PREFIX", cfg.MQTT.DiscoveryPrefix)
	cfg.MQTT.PublishIntervalSeconds = l.envInt("MQTT_PUBLISH_INTERVAL", cfg.MQTT.PublishIntervalSeconds)
	cfg.MQTT.RetainDiscovery = l.envBool("MQTT_RETAIN_DISCOVERY", cfg.MQTT.RetainDiscovery)
	cfg.MQTT.RetainState = l.envBool("MQTT_RETAIN_STATE", cfg.MQTT.RetainState)

	cfg.Server.ListenAddr = l.envString("KIOSK_LISTEN", cfg.Server.ListenAddr)
	cfg.Server.MetricsListenAddr = l.envString("KIOSK_METRICS_LISTEN", cfg.Server.MetricsListenAddr)

	cfg.Tracing.Enabled = l.envBool("KIOSK_TRACING_ENABLED", cfg.Tracing.Enabled)
	cfg.Tracing.Exporter = l.envString("KIOSK_TRACING_EXPORTER", cfg.Tracing.Exporter)
	cfg.Tracing.Endpoint = l.envString("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Tracing.Endpoint)
	cfg.Tracing.SamplingRate = l.envFloat("KIOSK_TRACING_SAMPLE_RATE", cfg.Tracing.SamplingRate)

	cfg.AllowPowerActions = l.envBool("ALLOW_POWER_ACTIONS", cfg.AllowPowerActions)
}

// Slug lowercases s and replaces anything outside [a-z0-9_-] with single dashes.
func Slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('-')
		}
	}
	out := b.String()
	for strings.Contains(out, "--") {
		out = strings.ReplaceAll(out, "--", "-")
	}
	out = strings.Trim(out, "-")
	if out == "" {
		return "device"
	}
	return out
}
