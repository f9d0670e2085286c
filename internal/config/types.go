// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// AppConfig is the immutable runtime configuration, read once at startup.
type AppConfig struct {
	Version  string `yaml:"-"`
	Hostname string `yaml:"-"`
	DeviceID string `yaml:"-"`

	LogLevel string `yaml:"logLevel"`
	DataDir  string `yaml:"dataDir"`

	Relay     RelayConfig     `yaml:"relay"`
	Touch     TouchConfig     `yaml:"touch"`
	Display   DisplayConfig   `yaml:"display"`
	Overlay   OverlayConfig   `yaml:"overlay"`
	RTSP      RTSPConfig      `yaml:"rtsp"`
	Streaming StreamingConfig `yaml:"streaming"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Server    ServerConfig    `yaml:"server"`
	Tracing   TracingConfig   `yaml:"tracing"`

	AllowPowerActions bool `yaml:"allowPowerActions"`
}

// RelayConfig describes the serial relay board.
type RelayConfig struct {
	Device   string `yaml:"device"`
	BaudRate int    `yaml:"baudRate"`
	// OnTimeSeconds is how long a touch or key press keeps the screen powered.
	OnTimeSeconds int `yaml:"onTimeSeconds"`
}

// OnTime returns the configured activation duration.
func (r RelayConfig) OnTime() time.Duration {
	return time.Duration(r.OnTimeSeconds) * time.Second
}

type TouchConfig struct {
	DevicePath          string `yaml:"devicePath"`
	KeyboardGlob        string `yaml:"keyboardGlob"`
	UnlockTouches       int    `yaml:"unlockTouches"`
	UnlockWindowSeconds int    `yaml:"unlockWindowSeconds"`
}

// UnlockWindow returns the sliding window for the unlock gesture.
func (t TouchConfig) UnlockWindow() time.Duration {
	return time.Duration(t.UnlockWindowSeconds) * time.Second
}

type DisplayConfig struct {
	Display    string `yaml:"display"`
	XAuthority string `yaml:"xauthority"`
	XsetBinary string `yaml:"xsetBinary"`
}

type OverlayConfig struct {
	ImagePath    string `yaml:"imagePath"`
	ViewerBinary string `yaml:"viewerBinary"`
}

type RTSPConfig struct {
	DefaultURL     string `yaml:"defaultURL"`
	DefaultSeconds int    `yaml:"defaultSeconds"`
	LogPath        string `yaml:"logPath"`
	PlayerBinary   string `yaml:"playerBinary"`
}

// StreamingConfig describes the OS service feeding the secondary ingest pipeline.
type StreamingConfig struct {
	Service      string        `yaml:"service"`
	MaxRetries   int           `yaml:"maxRetries"`
	Debounce     time.Duration `yaml:"debounce"`
	PollInterval time.Duration `yaml:"pollInterval"`
	PollTimeout  time.Duration `yaml:"pollTimeout"`
}

type MQTTConfig struct {
	Enabled                bool   `yaml:"enabled"`
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	User                   string `yaml:"user"`
	Password               string `yaml:"password"`
	DiscoveryPrefix        string `yaml:"discoveryPrefix"`
	PublishIntervalSeconds int    `yaml:"publishIntervalSeconds"`
	RetainDiscovery        bool   `yaml:"retainDiscovery"`
	RetainState            bool   `yaml:"retainState"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	ListenAddr        string        `yaml:"listenAddr"`
	MetricsListenAddr string        `yaml:"metricsListenAddr"`
	ReadTimeout       time.Duration `yaml:"readTimeout"`
	WriteTimeout      time.Duration `yaml:"writeTimeout"`
	IdleTimeout       time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdownTimeout"`
	RateLimitPerMin   int           `yaml:"rateLimitPerMin"`
}

// TracingConfig selects the OTLP trace exporter. Disabled installs a no-op
// provider.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // grpc or http
	Endpoint string `yaml:"endpoint"`
	// SamplingRate is the fraction of traces kept, 0.0 to 1.0.
	SamplingRate float64 `yaml:"samplingRate"`
}

// BaseTopic is the bus prefix all state and command topics hang off.
func (c AppConfig) BaseTopic() string {
	return "kiosk/" + c.DeviceID
}
