package mqtt

import (
	"fmt"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const (
	DefaultTopic          = "iot/sensors/room1"
	DefaultConnectTimeout = 10 * time.Second
	DefaultQueueSize      = 256

	disconnectQuiesceMs = 250
)

// Config holds broker connection settings shared by Subscriber and Publisher.
type Config struct {
	Broker         string
	Topic          string
	ClientID       string
	Username       string
	Password       string
	QoS            byte
	ConnectTimeout time.Duration
	QueueSize      int
}

func (c Config) withDefaults() Config {
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	return c
}

// uniqueClientID appends a short random suffix so several processes
// sharing one configured ID do not kick each other off the broker.
func uniqueClientID(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = "sensorwatch"
	}
	return fmt.Sprintf("%s-%s", base, uuid.NewString()[:8])
}

func clientOptions(cfg Config, clientID string) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetOrderMatters(false)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password) //nolint:gosec // G101: config field
	}
	return opts
}
