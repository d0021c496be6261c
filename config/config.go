package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xiaonanln/streamgraph/util/logger"
)

const (
	DefaultHTTPAddr     = ":8080"
	DefaultGRPCAddr     = ":8081"
	DefaultTickInterval = time.Second
	MinTickInterval     = 500 * time.Millisecond
	MaxTickInterval     = 1250 * time.Millisecond
	DefaultMsPerSlot    = 1000
	DefaultLogLevel     = "INFO"
)

// ServerConfig holds listener addresses of the streamgraph process
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"` // Web UI, SSE, WebSocket and /metrics
	GRPCAddr string `yaml:"grpc_addr"` // Control plane used by streamgraphctl
}

// ExplorerConfig holds settings of the stream dataflow and its rendering
type ExplorerConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
	MaxHistory   int           `yaml:"max_history"` // 0 keeps every entry
	MsPerSlot    int64         `yaml:"ms_per_slot"`
	Graph        string        `yaml:"graph"` // Optional: YAML file replacing the default graph layout
}

// Config is the root configuration structure
type Config struct {
	Version    int            `yaml:"version"`
	LogLevel   string         `yaml:"log_level"`
	Server     ServerConfig   `yaml:"server"`
	Explorer   ExplorerConfig `yaml:"explorer"`
	EventRules []EventRule    `yaml:"event_access_rules"` // Optional: per-transport event rules
}

// Default returns a configuration with every field set to its default
func Default() *Config {
	cfg := &Config{Version: 1}
	cfg.ApplyDefaults()
	return cfg
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// ApplyDefaults fills unset fields with their defaults
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = DefaultHTTPAddr
	}
	if c.Server.GRPCAddr == "" {
		c.Server.GRPCAddr = DefaultGRPCAddr
	}
	if c.Explorer.TickInterval == 0 {
		c.Explorer.TickInterval = DefaultTickInterval
	}
	if c.Explorer.MsPerSlot == 0 {
		c.Explorer.MsPerSlot = DefaultMsPerSlot
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Version != 1 {
		return fmt.Errorf("unsupported config version: %d (expected 1)", c.Version)
	}

	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server http_addr is required")
	}

	ti := c.Explorer.TickInterval
	if ti < MinTickInterval || ti > MaxTickInterval {
		return fmt.Errorf("explorer tick_interval %v out of range [%v, %v]", ti, MinTickInterval, MaxTickInterval)
	}

	if c.Explorer.MaxHistory < 0 {
		return fmt.Errorf("explorer max_history must not be negative, got %d", c.Explorer.MaxHistory)
	}

	if c.Explorer.MsPerSlot <= 0 {
		return fmt.Errorf("explorer ms_per_slot must be positive, got %d", c.Explorer.MsPerSlot)
	}

	if _, err := c.NewEventValidator(); err != nil {
		return err
	}

	return nil
}

// NewEventValidator creates an EventValidator from the config's event rules.
// Returns nil if no event rules are configured.
// Returns an error if any rule has an invalid pattern or access level.
func (c *Config) NewEventValidator() (*EventValidator, error) {
	if len(c.EventRules) == 0 {
		return nil, nil
	}
	return NewEventValidator(c.EventRules)
}
