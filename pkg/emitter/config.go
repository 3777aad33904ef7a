// Package emitter publishes face events to an MQTT broker.
package emitter

import (
	"fmt"
	"time"
)

// Config holds MQTT emitter configuration.
type Config struct {
	// Broker is the broker address, host:port.
	Broker string `yaml:"broker" json:"broker"`

	// ClientID identifies this node to the broker.
	ClientID string `yaml:"client_id" json:"client_id"`

	// Prefix is prepended to the face/bbox and noface topics.
	Prefix string `yaml:"prefix" json:"prefix"`

	// QoS is the MQTT quality of service for both topics (0-2).
	QoS byte `yaml:"qos" json:"qos"`

	// ConnectTimeout bounds the initial connection.
	ConnectTimeout time.Duration `yaml:"connect_timeout" json:"connect_timeout"`

	// PublishTimeout bounds each publish acknowledgment.
	PublishTimeout time.Duration `yaml:"publish_timeout" json:"publish_timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Broker:         "localhost:1883",
		ClientID:       "facenode",
		Prefix:         "facenode",
		QoS:            0,
		ConnectTimeout: 5 * time.Second,
		PublishTimeout: 2 * time.Second,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("broker is required")
	}
	if c.ClientID == "" {
		return fmt.Errorf("client_id is required")
	}
	if c.QoS > 2 {
		return fmt.Errorf("qos must be 0, 1 or 2, got %d", c.QoS)
	}
	if c.ConnectTimeout <= 0 || c.PublishTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}
