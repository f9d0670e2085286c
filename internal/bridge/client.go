// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bridge

import (
	"errors"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const publishTimeout = 5 * time.Second

var errPublishTimeout = errors.New("publish timed out")

// Client is the part of the broker connection the bridge publishes through.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	IsConnected() bool
}

// pahoClient adapts a paho client to Client.
type pahoClient struct {
	c mqtt.Client
}

func (p pahoClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := p.c.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return errPublishTimeout
	}
	return token.Error()
}

func (p pahoClient) IsConnected() bool {
	return p.c.IsConnectionOpen()
}
