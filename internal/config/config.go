// Package config loads go-facenode configuration from a YAML file, an
// optional .env file and FACENODE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-facenode/pkg/detection"
	"github.com/teslashibe/go-facenode/pkg/emitter"
	"github.com/teslashibe/go-facenode/pkg/source"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FACENODE_"

// Config is the node configuration.
type Config struct {
	// Listen is the HTTP/websocket address, e.g. ":8080".
	Listen string `yaml:"listen"`

	Log      LogConfig        `yaml:"log"`
	Detector detection.Config `yaml:"detector"`
	MQTT     MQTTConfig       `yaml:"mqtt"`
	Source   SourceConfig     `yaml:"source"`
}

// LogConfig configures internal/log.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// MQTTConfig enables the MQTT emitter.
type MQTTConfig struct {
	Enabled        bool `yaml:"enabled"`
	emitter.Config `yaml:",inline"`
}

// SourceConfig enables the upstream websocket frame source.
type SourceConfig struct {
	Enabled       bool `yaml:"enabled"`
	source.Config `yaml:",inline"`
}

// DefaultConfig returns a Config with sensible defaults. MQTT and the frame
// source are off; frames arrive over HTTP only.
func DefaultConfig() Config {
	return Config{
		Listen:   ":8080",
		Log:      LogConfig{Level: "info"},
		Detector: detection.DefaultConfig(),
		MQTT:     MQTTConfig{Config: emitter.DefaultConfig()},
		Source:   SourceConfig{Config: source.DefaultConfig()},
	}
}

// Validate checks the configuration. The detector model file is checked by
// the detector itself.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	if c.MQTT.Enabled {
		if err := c.MQTT.Validate(); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if c.Source.Enabled {
		if err := c.Source.Validate(); err != nil {
			return fmt.Errorf("source: %w", err)
		}
	}
	return nil
}

// Load builds a Config from defaults, then ./.env if present, then the YAML
// file at path (skipped when path is empty), then environment overrides.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	envString("LISTEN", &cfg.Listen)
	envString("LOG_LEVEL", &cfg.Log.Level)
	envString("LOG_FILE", &cfg.Log.File)
	envString("MODEL_PATH", &cfg.Detector.ModelPath)

	if v := os.Getenv(EnvPrefix + "MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
		cfg.MQTT.Enabled = true
	}
	envString("MQTT_CLIENT_ID", &cfg.MQTT.ClientID)
	envString("MQTT_PREFIX", &cfg.MQTT.Prefix)

	if v := os.Getenv(EnvPrefix + "SOURCE_URL"); v != "" {
		cfg.Source.URL = v
		cfg.Source.Enabled = true
	}

	if err := envBool("MQTT_ENABLED", &cfg.MQTT.Enabled); err != nil {
		return err
	}
	if err := envBool("SOURCE_ENABLED", &cfg.Source.Enabled); err != nil {
		return err
	}
	return envDuration("SOURCE_RECONNECT_INTERVAL", &cfg.Source.ReconnectInterval)
}

// envString sets *dst from FACENODE_<name> when set.
func envString(name string, dst *string) {
	if v := os.Getenv(EnvPrefix + name); v != "" {
		*dst = v
	}
}

func envBool(name string, dst *bool) error {
	v := os.Getenv(EnvPrefix + name)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	*dst = b
	return nil
}

func envDuration(name string, dst *time.Duration) error {
	v := os.Getenv(EnvPrefix + name)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	*dst = d
	return nil
}
