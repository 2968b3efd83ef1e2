package mqtt

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	v1 "github.com/sensorwatch-lab/sensorwatch/internal/api/v1"
	"github.com/sensorwatch-lab/sensorwatch/internal/ingestion"
	"github.com/sensorwatch-lab/sensorwatch/internal/metrics"
)

// Message outcomes, used as metric labels.
const (
	OutcomeAccepted    = "accepted"
	OutcomeRejected    = "rejected"
	OutcomeDecodeError = "decode_error"
	OutcomeStoreError  = "store_error"
	OutcomeDropped     = "dropped"
)

// Ingester accepts decoded payloads. Satisfied by *ingestion.Gate.
type Ingester interface {
	Ingest(ctx context.Context, payload v1.Payload) (*v1.Reading, error)
}

// Subscriber consumes sensor payloads from a broker topic and hands them
// to an Ingester. Failed messages are logged and dropped.
type Subscriber struct {
	cfg      Config
	codec    ingestion.Codec
	ingester Ingester
	metrics  *metrics.Metrics

	queue chan []byte

	mu     sync.RWMutex
	client pahomqtt.Client

	subscribeOnce sync.Once
	subscribed    chan struct{}
}

// NewSubscriber creates a subscriber. m may be nil.
func NewSubscriber(cfg Config, codec ingestion.Codec, ingester Ingester, m *metrics.Metrics) *Subscriber {
	cfg = cfg.withDefaults()
	if codec == nil {
		codec = ingestion.JSONCodec{}
	}
	return &Subscriber{
		cfg:        cfg,
		codec:      codec,
		ingester:   ingester,
		metrics:    m,
		queue:      make(chan []byte, cfg.QueueSize),
		subscribed: make(chan struct{}),
	}
}

// Start connects to the broker and processes messages until ctx is cancelled.
// A broker that is down at startup is retried in the background.
func (s *Subscriber) Start(ctx context.Context) error {
	opts := clientOptions(s.cfg, uniqueClientID(s.cfg.ClientID)).
		SetOnConnectHandler(s.onConnect).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			slog.Warn("[MQTT] Connection lost; reconnecting", "error", err)
		})

	client := pahomqtt.NewClient(opts)
	s.mu.Lock()
	s.client = client
	s.mu.Unlock()

	slog.Info("[MQTT] Starting subscriber",
		"broker", s.cfg.Broker,
		"topic", s.cfg.Topic,
		"encoding", s.codec.Name(),
	)

	token := client.Connect()
	switch {
	case !token.WaitTimeout(s.cfg.ConnectTimeout):
		slog.Warn("[MQTT] Connection timed out; will retry in background", "broker", s.cfg.Broker)
	case token.Error() != nil:
		slog.Warn("[MQTT] Connection failed; will retry in background", "error", token.Error())
	}

	for {
		select {
		case data := <-s.queue:
			s.handle(ctx, data)
		case <-ctx.Done():
			slog.Info("[MQTT] Stopping subscriber (context cancelled)")
			client.Disconnect(disconnectQuiesceMs)
			return nil
		}
	}
}

// Connected reports whether the client currently holds a broker connection.
func (s *Subscriber) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client != nil && s.client.IsConnected()
}

// onConnect runs on every (re)connect; subscriptions do not survive a
// clean session so they are re-established here.
func (s *Subscriber) onConnect(c pahomqtt.Client) {
	token := c.Subscribe(s.cfg.Topic, s.cfg.QoS, s.onMessage)
	if !token.WaitTimeout(s.cfg.ConnectTimeout) {
		slog.Error("[MQTT] Subscribe timed out", "topic", s.cfg.Topic)
		return
	}
	if err := token.Error(); err != nil {
		slog.Error("[MQTT] Subscribe failed", "topic", s.cfg.Topic, "error", err)
		return
	}
	slog.Info("[MQTT] Subscribed", "topic", s.cfg.Topic, "qos", s.cfg.QoS)
	s.subscribeOnce.Do(func() { close(s.subscribed) })
}

// onMessage never blocks the network loop: a full queue drops the message.
func (s *Subscriber) onMessage(_ pahomqtt.Client, msg pahomqtt.Message) {
	data := append([]byte(nil), msg.Payload()...)
	select {
	case s.queue <- data:
	default:
		s.metrics.MQTTMessage(OutcomeDropped)
		slog.Warn("[MQTT] Queue full; message dropped", "topic", msg.Topic())
	}
}

func (s *Subscriber) handle(ctx context.Context, data []byte) {
	payload, err := s.codec.Decode(data)
	if err != nil {
		s.metrics.MQTTMessage(OutcomeDecodeError)
		slog.Warn("[MQTT] Dropping undecodable message", "error", err)
		return
	}

	reading, err := s.ingester.Ingest(ctx, payload)
	switch {
	case errors.Is(err, ingestion.ErrValidation):
		s.metrics.MQTTMessage(OutcomeRejected)
		slog.Warn("[MQTT] Dropping invalid message", "error", err)
	case err != nil:
		s.metrics.MQTTMessage(OutcomeStoreError)
		slog.Error("[MQTT] Failed to store message", "error", err)
	default:
		s.metrics.MQTTMessage(OutcomeAccepted)
		slog.Debug("[MQTT] Received & stored", "sequence_id", reading.SequenceID)
	}
}
