package mqtt

import (
	"context"
	"fmt"
	"log/slog"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	v1 "github.com/sensorwatch-lab/sensorwatch/internal/api/v1"
	"github.com/sensorwatch-lab/sensorwatch/internal/ingestion"
)

// Publisher encodes payloads and publishes them to the configured topic.
type Publisher struct {
	cfg    Config
	codec  ingestion.Codec
	client pahomqtt.Client
}

func NewPublisher(cfg Config, codec ingestion.Codec) *Publisher {
	cfg = cfg.withDefaults()
	if codec == nil {
		codec = ingestion.JSONCodec{}
	}
	return &Publisher{
		cfg:    cfg,
		codec:  codec,
		client: pahomqtt.NewClient(clientOptions(cfg, uniqueClientID(cfg.ClientID+"-pub"))),
	}
}

// Connect blocks until the broker accepts the connection or ctx is done.
func (p *Publisher) Connect(ctx context.Context) error {
	if err := wait(ctx, p.client.Connect()); err != nil {
		return fmt.Errorf("connect to %s: %w", p.cfg.Broker, err)
	}
	slog.Info("[MQTT] Publisher connected", "broker", p.cfg.Broker, "topic", p.cfg.Topic)
	return nil
}

// Publish encodes payload and waits for the broker to acknowledge it.
func (p *Publisher) Publish(ctx context.Context, payload v1.Payload) error {
	data, err := p.codec.Encode(payload)
	if err != nil {
		return err
	}
	if err := wait(ctx, p.client.Publish(p.cfg.Topic, p.cfg.QoS, false, data)); err != nil {
		return fmt.Errorf("publish to %s: %w", p.cfg.Topic, err)
	}
	return nil
}

func (p *Publisher) Close() {
	if p.client.IsConnected() {
		p.client.Disconnect(disconnectQuiesceMs)
	}
}

func wait(ctx context.Context, token pahomqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
