// ABOUTME: Configuration loading and parsing for framegate.
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete framegate configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Defaults DefaultsConfig `yaml:"defaults"`
	Relay    RelayConfig    `yaml:"relay"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds the listen addresses. The HTTP address serves the caller
// API; the WS address serves panel WebSocket connections.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
	WSAddr   string `yaml:"ws_addr"`
}

// DefaultsConfig holds the operator-set values substituted for omitted fields
// of a create-project request.
type DefaultsConfig struct {
	SavePath string `yaml:"save_path"`
	Preset   string `yaml:"preset"`
	Sequence string `yaml:"sequence"`
}

// RelayConfig holds relay timing configuration.
type RelayConfig struct {
	ReplyTimeout      time.Duration `yaml:"-"`
	ReconnectInterval time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	ReplyTimeoutRaw      string `yaml:"reply_timeout"`
	ReconnectIntervalRaw string `yaml:"reconnect_interval"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	// DefaultHTTPAddr is where the caller-facing API listens.
	DefaultHTTPAddr = "localhost:3000"
	// DefaultWSAddr is where panels connect.
	DefaultWSAddr = "localhost:3001"
	// DefaultPreset is the sequence preset used when the caller names none.
	DefaultPreset = "1080p25"
	// DefaultSequence is the sequence name used when the caller names none.
	DefaultSequence = "Main Sequence"
	// DefaultReplyTimeout bounds the wait for a correlated panel reply.
	DefaultReplyTimeout = 30 * time.Second
	// DefaultReconnectInterval is the panel-side redial interval.
	DefaultReconnectInterval = 5 * time.Second
)

// Default returns a fully populated configuration. The server runs without a
// config file at all, matching the zero-setup workflow the panel expects.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr: DefaultHTTPAddr,
			WSAddr:   DefaultWSAddr,
		},
		Defaults: DefaultsConfig{
			SavePath: defaultSavePath(),
			Preset:   DefaultPreset,
			Sequence: DefaultSequence,
		},
		Relay: RelayConfig{
			ReplyTimeout:      DefaultReplyTimeout,
			ReconnectInterval: DefaultReconnectInterval,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// defaultSavePath returns the inbox directory new projects land in when the
// caller supplies no save path.
func defaultSavePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "framegate-inbox")
	}
	return filepath.Join(homeDir, "Documents", "FrameGate Inbox")
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded and
// omitted fields fall back to the built-in defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads the config at path, or returns the built-in defaults
// when no file exists there.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables expand to an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and
// valid. Returns an error describing the first validation failure.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.Server.WSAddr == "" {
		return fmt.Errorf("server.ws_addr is required")
	}
	if c.Server.HTTPAddr == c.Server.WSAddr {
		return fmt.Errorf("server.http_addr and server.ws_addr must differ")
	}
	if c.Relay.ReplyTimeout <= 0 {
		return fmt.Errorf("relay.reply_timeout must be positive")
	}
	if c.Relay.ReconnectInterval <= 0 {
		return fmt.Errorf("relay.reconnect_interval must be positive")
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values.
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Relay.ReplyTimeoutRaw != "" {
		cfg.Relay.ReplyTimeout, err = time.ParseDuration(cfg.Relay.ReplyTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing reply_timeout %q: %w", cfg.Relay.ReplyTimeoutRaw, err)
		}
	}

	if cfg.Relay.ReconnectIntervalRaw != "" {
		cfg.Relay.ReconnectInterval, err = time.ParseDuration(cfg.Relay.ReconnectIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing reconnect_interval %q: %w", cfg.Relay.ReconnectIntervalRaw, err)
		}
	}

	return nil
}
