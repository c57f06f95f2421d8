package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

//go:generate sh -c "cd .. && go run ./tools/schema-generator/"

// DefaultBaseURL is the backend API root used when nothing is configured.
const DefaultBaseURL = "http://localhost:8002/api/v1"

// MockServerConfig configures the bundled mock backend.
type MockServerConfig struct {
	Addr         string `yaml:"addr,omitempty" toml:"addr,omitempty" jsonschema:"description=Listen address for the mock backend (default :8002)"`
	EmitInterval string `yaml:"emit_interval,omitempty" toml:"emit_interval,omitempty" jsonschema:"description=How often the mock backend invents a new ticket (Go duration; empty disables)"`
	Seed         *bool  `yaml:"seed,omitempty" toml:"seed,omitempty" jsonschema:"description=Whether to load demo tickets at startup (default: true)"`
}

// ReconnectConfig tunes the push connection's retry schedule.
type ReconnectConfig struct {
	InitialDelay string  `yaml:"initial_delay,omitempty" toml:"initial_delay,omitempty" jsonschema:"description=Wait before the first reconnect (Go duration; default 2s)"`
	Multiplier   float64 `yaml:"multiplier,omitempty" toml:"multiplier,omitempty" jsonschema:"description=Growth factor between attempts (default 1.5),minimum=1"`
	MaxAttempts  int     `yaml:"max_attempts,omitempty" toml:"max_attempts,omitempty" jsonschema:"description=Reconnect attempts before falling back to polling only (default 5),minimum=1"`
}

// Config is the hermes configuration file.
type Config struct {
	Version    string            `yaml:"version,omitempty" toml:"version,omitempty" jsonschema:"description=Configuration version (e.g. '1.0')"`
	BaseURL    string            `yaml:"base_url,omitempty" toml:"base_url,omitempty" jsonschema:"description=Backend API root (default http://localhost:8002/api/v1)"`
	StreamURL  string            `yaml:"stream_url,omitempty" toml:"stream_url,omitempty" jsonschema:"description=Push endpoint; defaults to base_url + /stream. ws:// and wss:// select WebSocket"`
	OperatorID string            `yaml:"operator_id,omitempty" toml:"operator_id,omitempty" jsonschema:"description=UUID recorded as approver on decisions; generated per process when empty"`
	Reconnect  *ReconnectConfig  `yaml:"reconnect,omitempty" toml:"reconnect,omitempty" jsonschema:"description=Push connection retry schedule"`
	MockServer *MockServerConfig `yaml:"mock_server,omitempty" toml:"mock_server,omitempty" jsonschema:"description=Settings for 'hermes mock-server'"`

	// Extensions captures all other top-level keys (logging, tui, ...).
	Extensions map[string]interface{} `yaml:",inline" toml:"-" jsonschema:"-"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.SetDefaults()
	return c
}

// SetDefaults sets default values for configuration
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = "1.0"
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Reconnect == nil {
		c.Reconnect = &ReconnectConfig{}
	}
	if c.Reconnect.InitialDelay == "" {
		c.Reconnect.InitialDelay = "2s"
	}
	if c.Reconnect.Multiplier == 0 {
		c.Reconnect.Multiplier = 1.5
	}
	if c.Reconnect.MaxAttempts == 0 {
		c.Reconnect.MaxAttempts = 5
	}
	if c.MockServer == nil {
		c.MockServer = &MockServerConfig{}
	}
	if c.MockServer.Addr == "" {
		c.MockServer.Addr = ":8002"
	}
	if c.MockServer.Seed == nil {
		seed := true
		c.MockServer.Seed = &seed
	}
}

// StreamEndpoint returns the push endpoint.
func (c *Config) StreamEndpoint() string {
	if c.StreamURL != "" {
		return c.StreamURL
	}
	return c.BaseURL + "/stream"
}

// Delay parses the initial reconnect delay.
func (r *ReconnectConfig) Delay() (time.Duration, error) {
	d, err := time.ParseDuration(r.InitialDelay)
	if err != nil {
		return 0, fmt.Errorf("initial_delay: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("initial_delay must be positive, got %s", r.InitialDelay)
	}
	return d, nil
}

// EmitEvery returns the mock backend's ticket generation period, zero when disabled.
func (m *MockServerConfig) EmitEvery() (time.Duration, error) {
	if m == nil || m.EmitInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(m.EmitInterval)
	if err != nil {
		return 0, fmt.Errorf("emit_interval: %w", err)
	}
	return d, nil
}

// UnmarshalExtension decodes a specific extension's configuration from the
// loaded file into the provided target struct. The target must be a pointer.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		// A missing section leaves the target zero-valued.
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}
