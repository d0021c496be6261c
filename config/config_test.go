package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return configPath
}

func TestLoadConfig(t *testing.T) {
	configPath := writeConfig(t, `
version: 1
log_level: debug

server:
  http_addr: "127.0.0.1:9080"
  grpc_addr: "127.0.0.1:9081"

explorer:
  tick_interval: 750ms
  max_history: 500
  ms_per_slot: 250
  graph: "graph.yml"

event_access_rules:
  - transport: grpc
    event: /connect|disconnect/
    access: REJECT
  - transport: /.*/
    event: /.*/
    access: ALLOW
`)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Version != 1 {
		t.Errorf("expected version 1, got %d", cfg.Version)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.LogLevel)
	}
	if cfg.Server.HTTPAddr != "127.0.0.1:9080" {
		t.Errorf("expected http addr 127.0.0.1:9080, got %s", cfg.Server.HTTPAddr)
	}
	if cfg.Server.GRPCAddr != "127.0.0.1:9081" {
		t.Errorf("expected grpc addr 127.0.0.1:9081, got %s", cfg.Server.GRPCAddr)
	}
	if cfg.Explorer.TickInterval != 750*time.Millisecond {
		t.Errorf("expected tick interval 750ms, got %v", cfg.Explorer.TickInterval)
	}
	if cfg.Explorer.MaxHistory != 500 {
		t.Errorf("expected max history 500, got %d", cfg.Explorer.MaxHistory)
	}
	if cfg.Explorer.MsPerSlot != 250 {
		t.Errorf("expected ms per slot 250, got %d", cfg.Explorer.MsPerSlot)
	}
	if cfg.Explorer.Graph != "graph.yml" {
		t.Errorf("expected graph graph.yml, got %s", cfg.Explorer.Graph)
	}
	if len(cfg.EventRules) != 2 {
		t.Errorf("expected 2 event rules, got %d", len(cfg.EventRules))
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "version: 1\n"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.HTTPAddr != DefaultHTTPAddr {
		t.Errorf("expected default http addr, got %s", cfg.Server.HTTPAddr)
	}
	if cfg.Server.GRPCAddr != DefaultGRPCAddr {
		t.Errorf("expected default grpc addr, got %s", cfg.Server.GRPCAddr)
	}
	if cfg.Explorer.TickInterval != DefaultTickInterval {
		t.Errorf("expected default tick interval, got %v", cfg.Explorer.TickInterval)
	}
	if cfg.Explorer.MaxHistory != 0 {
		t.Errorf("expected unbounded history, got %d", cfg.Explorer.MaxHistory)
	}
	if cfg.Explorer.MsPerSlot != DefaultMsPerSlot {
		t.Errorf("expected default ms per slot, got %d", cfg.Explorer.MsPerSlot)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("expected default log level, got %s", cfg.LogLevel)
	}

	validator, err := cfg.NewEventValidator()
	if err != nil {
		t.Fatalf("NewEventValidator failed: %v", err)
	}
	if validator != nil {
		t.Error("expected nil validator without rules")
	}
}

func TestLoadConfigFileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config.yml")
	if err == nil {
		t.Fatal("expected error for non-existent file")
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "wrong version",
			mutate:  func(c *Config) { c.Version = 2 },
			wantErr: "unsupported config version",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.LogLevel = "LOUD" },
			wantErr: "LOUD",
		},
		{
			name:    "tick interval too short",
			mutate:  func(c *Config) { c.Explorer.TickInterval = 100 * time.Millisecond },
			wantErr: "tick_interval",
		},
		{
			name:    "tick interval too long",
			mutate:  func(c *Config) { c.Explorer.TickInterval = 2 * time.Second },
			wantErr: "tick_interval",
		},
		{
			name:   "tick interval at bounds",
			mutate: func(c *Config) { c.Explorer.TickInterval = MaxTickInterval },
		},
		{
			name:    "negative history",
			mutate:  func(c *Config) { c.Explorer.MaxHistory = -1 },
			wantErr: "max_history",
		},
		{
			name:    "non-positive slot",
			mutate:  func(c *Config) { c.Explorer.MsPerSlot = -5 },
			wantErr: "ms_per_slot",
		},
		{
			name:    "missing http addr",
			mutate:  func(c *Config) { c.Server.HTTPAddr = "" },
			wantErr: "http_addr",
		},
		{
			name: "bad rule",
			mutate: func(c *Config) {
				c.EventRules = []EventRule{{Transport: "http", Event: "connect", Access: "MAYBE"}}
			},
			wantErr: "invalid access level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
