// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package bridge mirrors kiosk state onto an MQTT broker with Home Assistant
// discovery and turns messages on <base>/cmd/# into orchestrator actions.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/kioskd/internal/config"
	"github.com/ManuGH/kioskd/internal/log"
	"github.com/ManuGH/kioskd/internal/metrics"
	"github.com/ManuGH/kioskd/internal/svctoggle"
	"github.com/ManuGH/kioskd/internal/telemetry"
)

const (
	qos               = 1
	keepAlive         = 30 * time.Second
	reconnectBackoff  = 5 * time.Second
	disconnectQuiesce = 250
)

var errNotConnected = errors.New("bus not connected")

// Bridge is the bus state bridge.
type Bridge struct {
	cfg        config.MQTTConfig
	base       string
	deviceID   string
	deviceName string
	version    string
	ctrl       Controller
	clock      clock.Clock
	logger     zerolog.Logger

	mu     sync.Mutex
	client Client
	ctx    context.Context

	// pubMu serializes state publishes so snapshots arrive in order.
	pubMu sync.Mutex
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithClock replaces the clock driving the periodic publish.
func WithClock(c clock.Clock) Option {
	return func(b *Bridge) { b.clock = c }
}

// New creates a bridge for the device described by cfg.
func New(cfg config.AppConfig, ctrl Controller, opts ...Option) *Bridge {
	b := &Bridge{
		cfg:        cfg.MQTT,
		base:       cfg.BaseTopic(),
		deviceID:   cfg.DeviceID,
		deviceName: cfg.Hostname,
		version:    cfg.Version,
		ctrl:       ctrl,
		clock:      clock.New(),
		logger:     log.WithComponent("bridge"),
		ctx:        context.Background(),
	}
	if b.deviceName == "" {
		b.deviceName = cfg.DeviceID
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bridge) availTopic() string { return b.base + "/availability" }
func (b *Bridge) stateTopic() string { return b.base + "/state" }
func (b *Bridge) cmdPrefix() string  { return b.base + "/cmd/" }

func (b *Bridge) cmdTopic(cmd string) string { return b.cmdPrefix() + cmd }

// Enabled reports whether Run will connect.
func (b *Bridge) Enabled() bool {
	return b.cfg.Enabled && strings.TrimSpace(b.cfg.Host) != ""
}

// Run connects to the broker and publishes state every interval until ctx is
// done. A disabled bridge returns nil immediately.
func (b *Bridge) Run(ctx context.Context) error {
	if !b.Enabled() {
		b.logger.Info().Bool("enabled", b.cfg.Enabled).Msg("MQTT: disabled or no host, bridge not started")
		return nil
	}

	b.mu.Lock()
	b.ctx = ctx
	b.mu.Unlock()

	broker := fmt.Sprintf("tcp://%s:%d", b.cfg.Host, b.cfg.Port)
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(b.deviceID + "-kiosk").
		SetKeepAlive(keepAlive).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(reconnectBackoff).
		SetOrderMatters(false).
		SetWill(b.availTopic(), payloadOffline, qos, true).
		SetOnConnectHandler(func(c mqtt.Client) {
			if token := c.Subscribe(b.cmdPrefix()+"#", qos, b.onMessage); token.Wait() && token.Error() != nil {
				b.logger.Error().Err(token.Error()).Msg("MQTT: subscribe failed")
			}
			b.onConnect()
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			b.logger.Warn().Err(err).Msg("MQTT: disconnected")
		})
	if b.cfg.User != "" {
		opts.SetUsername(b.cfg.User).SetPassword(b.cfg.Password)
	}

	client := mqtt.NewClient(opts)
	b.attach(pahoClient{c: client})
	client.Connect()
	b.logger.Info().Str("broker", broker).Str(log.FieldTopic, b.base).Msg("MQTT: start")

	b.loop(ctx)

	if err := b.publish(b.availTopic(), []byte(payloadOffline), true, "availability"); err != nil {
		b.logger.Debug().Err(err).Msg("MQTT: offline not published")
	}
	client.Disconnect(disconnectQuiesce)
	b.logger.Info().Msg("MQTT: stopped")
	return nil
}

func (b *Bridge) loop(ctx context.Context) {
	interval := time.Duration(max(1, b.cfg.PublishIntervalSeconds)) * time.Second
	ticker := b.clock.Ticker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.PublishNow()
		}
	}
}

func (b *Bridge) attach(c Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.client = c
}

func (b *Bridge) current() Client {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.client
}

func (b *Bridge) runCtx() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctx
}

// onConnect announces availability, discovery and the current state.
func (b *Bridge) onConnect() {
	b.logger.Info().Msg("MQTT: connected")
	if err := b.publish(b.availTopic(), []byte(payloadOnline), true, "availability"); err != nil {
		b.logger.Warn().Err(err).Msg("MQTT: online not published")
	}
	b.publishDiscovery()
	b.PublishNow()
}

func (b *Bridge) onMessage(_ mqtt.Client, msg mqtt.Message) {
	b.HandleMessage(msg.Topic(), msg.Payload())
}

// HandleMessage dispatches a command message and republishes state. Topics
// outside <base>/cmd/ are ignored.
func (b *Bridge) HandleMessage(topic string, payload []byte) {
	cmd, ok := strings.CutPrefix(topic, b.cmdPrefix())
	if !ok {
		return
	}
	p := strings.TrimSpace(strings.ToValidUTF8(string(payload), ""))
	logger := b.logger.With().Str(log.FieldCommand, cmd).Str(log.FieldPayload, p).Logger()
	logger.Info().Msgf("MQTT CMD: %s payload=%s", cmd, p)

	ctx, span := telemetry.Tracer("kioskd/bridge").Start(b.runCtx(), "bus.command",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(telemetry.CommandAttributes(b.deviceID, topic, cmd)...),
	)
	defer span.End()

	err := b.dispatch(ctx, cmd, p)
	switch {
	case errors.Is(err, errUnknownCommand):
		metrics.IncBusCommand("unknown")
		span.SetStatus(codes.Error, "unknown command")
		logger.Warn().Msg("MQTT: unknown command")
	case errors.Is(err, svctoggle.ErrDebounced):
		metrics.IncBusCommand(cmd)
		logger.Info().Msg("MQTT: cmd debounced")
	case err != nil:
		metrics.IncBusCommand(cmd)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn().Err(err).Msg("MQTT: cmd error")
	default:
		metrics.IncBusCommand(cmd)
	}
	b.PublishNow()
}

// PublishNow publishes the current snapshot if connected.
func (b *Bridge) PublishNow() {
	c := b.current()
	if c == nil || !c.IsConnected() {
		return
	}
	b.pubMu.Lock()
	defer b.pubMu.Unlock()

	snap := b.ctrl.Status(b.runCtx())
	data, err := json.Marshal(snap)
	if err != nil {
		b.logger.Error().Err(err).Msg("MQTT: state not encoded")
		return
	}
	if err := b.publish(b.stateTopic(), data, b.cfg.RetainState, "state"); err != nil {
		b.logger.Warn().Err(err).Msg("MQTT: state not published")
	}
}

func (b *Bridge) publishDiscovery() {
	failed := 0
	for _, e := range b.entities() {
		data, err := json.Marshal(e.payload)
		if err == nil {
			err = b.publish(e.topic(b.cfg.DiscoveryPrefix, b.deviceID), data, b.cfg.RetainDiscovery, "discovery")
		}
		if err != nil {
			failed++
			b.logger.Warn().Err(err).Str("entity", e.objectID).Msg("MQTT: discovery not published")
		}
	}
	if failed == 0 {
		b.logger.Debug().Msg("MQTT: discovery published")
	}
}

func (b *Bridge) publish(topic string, payload []byte, retained bool, kind string) error {
	c := b.current()
	if c == nil || !c.IsConnected() {
		return errNotConnected
	}
	err := c.Publish(topic, qos, retained, payload)
	metrics.IncBusPublish(kind, err == nil)
	return err
}
