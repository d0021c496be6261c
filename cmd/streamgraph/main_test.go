package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xiaonanln/streamgraph/config"
)

func TestLoadEnvFile(t *testing.T) {
	envfile := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(envfile, []byte("STREAMGRAPH_TEST_VALUE=from-env-file\n"), 0600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	t.Setenv(envFileVar, envfile)
	t.Setenv("STREAMGRAPH_TEST_VALUE", "")
	os.Unsetenv("STREAMGRAPH_TEST_VALUE")

	if err := loadEnv(); err != nil {
		t.Fatalf("loadEnv failed: %v", err)
	}
	if got := os.Getenv("STREAMGRAPH_TEST_VALUE"); got != "from-env-file" {
		t.Errorf("STREAMGRAPH_TEST_VALUE = %q, want from-env-file", got)
	}
}

func TestLoadEnvMissingFile(t *testing.T) {
	t.Setenv(envFileVar, filepath.Join(t.TempDir(), "missing.env"))
	if err := loadEnv(); err == nil {
		t.Fatal("expected error for a missing env file")
	}
}

func TestNewExplorer(t *testing.T) {
	cfg := config.Default()
	cfg.EventRules = []config.EventRule{{Transport: "/.*/", Event: "/.*/", Access: config.AccessAllow}}
	ex, err := newExplorer(cfg)
	if err != nil {
		t.Fatalf("newExplorer failed: %v", err)
	}
	defer ex.Stop()
	if ex.State().Graph == nil {
		t.Error("explorer should use the default graph")
	}

	cfg.Explorer.Graph = filepath.Join(t.TempDir(), "missing.yml")
	if _, err := newExplorer(cfg); err == nil {
		t.Error("expected error for a missing graph file")
	}
}
