package emitter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/teslashibe/go-facenode/pkg/facedetect"
	"github.com/teslashibe/go-facenode/pkg/protocol"
)

// Sentinel errors for common conditions.
var (
	// ErrNotConnected is returned when publishing before Connect.
	ErrNotConnected = errors.New("emitter: mqtt not connected")

	// ErrPublishTimeout is returned when the broker does not acknowledge in time.
	ErrPublishTimeout = errors.New("emitter: publish timeout")
)

// MQTTEmitter publishes face events on <prefix>/face/bbox and <prefix>/noface.
type MQTTEmitter struct {
	cfg    Config
	topics *protocol.Topics
	logger *slog.Logger

	mu        sync.RWMutex
	client    mqtt.Client
	connected bool
	published map[string]uint64
	errors    uint64
}

// New creates an MQTT emitter. Call Connect before publishing.
func New(cfg Config, logger *slog.Logger) (*MQTTEmitter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MQTTEmitter{
		cfg:       cfg,
		topics:    protocol.NewTopics(cfg.Prefix),
		logger:    logger.With("component", "mqtt"),
		published: make(map[string]uint64),
	}, nil
}

// NewWithClient creates an emitter over an existing client, which is assumed
// connected.
func NewWithClient(cfg Config, client mqtt.Client, logger *slog.Logger) (*MQTTEmitter, error) {
	e, err := New(cfg, logger)
	if err != nil {
		return nil, err
	}
	e.client = client
	e.connected = client.IsConnected()
	return e, nil
}

// Connect establishes the broker connection. The client reconnects on its own
// after a lost connection.
func (e *MQTTEmitter) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", e.cfg.Broker))
	opts.SetClientID(e.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(mqtt.Client) {
		e.setConnected(true)
		e.logger.Info("mqtt connection established", "broker", e.cfg.Broker, "client_id", e.cfg.ClientID)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		e.setConnected(false)
		e.logger.Warn("mqtt connection lost, will auto-reconnect", "error", err, "broker", e.cfg.Broker)
	}

	client := mqtt.NewClient(opts)
	e.mu.Lock()
	e.client = client
	e.mu.Unlock()

	e.logger.Info("connecting to mqtt broker", "broker", e.cfg.Broker)

	token := client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(e.cfg.ConnectTimeout):
		return fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}

	e.setConnected(true)
	return nil
}

// Publish implements facedetect.Publisher.
func (e *MQTTEmitter) Publish(ev facedetect.Event) error {
	e.mu.RLock()
	client, connected := e.client, e.connected
	e.mu.RUnlock()

	if client == nil || !connected {
		e.countError()
		return ErrNotConnected
	}

	msg, err := protocol.NewEventMessage(ev)
	if err != nil {
		e.countError()
		return fmt.Errorf("build message: %w", err)
	}
	payload, err := msg.Bytes()
	if err != nil {
		e.countError()
		return fmt.Errorf("encode message: %w", err)
	}

	topic := e.topics.For(msg.Type)
	token := client.Publish(topic, e.cfg.QoS, false, payload)
	if !token.WaitTimeout(e.cfg.PublishTimeout) {
		e.countError()
		return ErrPublishTimeout
	}
	if err := token.Error(); err != nil {
		e.countError()
		return fmt.Errorf("publish failed: %w", err)
	}

	e.mu.Lock()
	e.published[topic]++
	e.mu.Unlock()

	e.logger.Debug("event published", "topic", topic, "size", len(payload))
	return nil
}

// Disconnect closes the broker connection.
func (e *MQTTEmitter) Disconnect() {
	e.mu.Lock()
	client := e.client
	e.connected = false
	e.mu.Unlock()

	if client != nil && client.IsConnected() {
		client.Disconnect(250)
		e.logger.Info("mqtt disconnected")
	}
}

// Stats returns emitter statistics.
func (e *MQTTEmitter) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	published := make(map[string]uint64, len(e.published))
	for k, v := range e.published {
		published[k] = v
	}
	return Stats{
		Connected: e.connected,
		Published: published,
		Errors:    e.errors,
	}
}

// Stats contains emitter statistics.
type Stats struct {
	Connected bool              `json:"connected"`
	Published map[string]uint64 `json:"published"`
	Errors    uint64            `json:"errors"`
}

func (e *MQTTEmitter) setConnected(v bool) {
	e.mu.Lock()
	e.connected = v
	e.mu.Unlock()
}

func (e *MQTTEmitter) countError() {
	e.mu.Lock()
	e.errors++
	e.mu.Unlock()
}
