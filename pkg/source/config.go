// Package source receives camera frames from an upstream websocket and feeds
// them to the face pipeline one at a time.
package source

import (
	"fmt"
	"time"
)

// InboundDepth is how many received frames may wait for the pipeline.
// When full, the oldest pending frame is dropped.
const InboundDepth = 2

// Config holds frame source configuration.
type Config struct {
	// URL is the upstream websocket, e.g. "ws://camera.local:8081/ws/frames".
	URL string `yaml:"url" json:"url"`

	// Depth is the pending frame queue size.
	Depth int `yaml:"depth" json:"depth"`

	// HandshakeTimeout bounds each dial.
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" json:"handshake_timeout"`

	// ReconnectInterval is the wait between connection attempts.
	ReconnectInterval time.Duration `yaml:"reconnect_interval" json:"reconnect_interval"`

	// MaxReconnectAttempts limits consecutive failed dials (0 = unlimited).
	MaxReconnectAttempts int `yaml:"max_reconnect_attempts" json:"max_reconnect_attempts"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:                  "ws://localhost:8081/ws/frames",
		Depth:                InboundDepth,
		HandshakeTimeout:     10 * time.Second,
		ReconnectInterval:    2 * time.Second,
		MaxReconnectAttempts: 0,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("url is required")
	}
	if c.Depth <= 0 {
		return fmt.Errorf("depth must be positive, got %d", c.Depth)
	}
	if c.HandshakeTimeout <= 0 {
		return fmt.Errorf("handshake_timeout must be positive")
	}
	if c.ReconnectInterval <= 0 {
		return fmt.Errorf("reconnect_interval must be positive")
	}
	if c.MaxReconnectAttempts < 0 {
		return fmt.Errorf("max_reconnect_attempts cannot be negative")
	}
	return nil
}
