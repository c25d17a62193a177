// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.ListenAddr != ":8040" {
		t.Errorf("Server.ListenAddr = %q, want :8040", cfg.Server.ListenAddr)
	}
	if cfg.Store.KVPath != "./data/castad" {
		t.Errorf("Store.KVPath = %q, want ./data/castad", cfg.Store.KVPath)
	}
	if cfg.Heartbeat.Interval != 8*time.Second {
		t.Errorf("Heartbeat.Interval = %v, want 8s", cfg.Heartbeat.Interval)
	}
	if cfg.Heartbeat.PongTimeout != 5*time.Second {
		t.Errorf("Heartbeat.PongTimeout = %v, want 5s", cfg.Heartbeat.PongTimeout)
	}
	if cfg.Viewer.ReadTimeout != 20*time.Second {
		t.Errorf("Viewer.ReadTimeout = %v, want 20s", cfg.Viewer.ReadTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoadAppliesEnvOverride(t *testing.T) {
	t.Setenv("CASTA_LISTEN_ADDR", ":9999")
	t.Setenv("CASTA_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.ListenAddr != ":9999" {
		t.Errorf("Server.ListenAddr = %q, want :9999", cfg.Server.ListenAddr)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadAppliesYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := "server:\n  listen_addr: \":7070\"\nstore:\n  kv_path: \"/tmp/castad-test\"\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.ListenAddr != ":7070" {
		t.Errorf("Server.ListenAddr = %q, want :7070", cfg.Server.ListenAddr)
	}
	if cfg.Store.KVPath != "/tmp/castad-test" {
		t.Errorf("Store.KVPath = %q, want /tmp/castad-test", cfg.Store.KVPath)
	}
}

func TestValidateRejectsEmptyListenAddr(t *testing.T) {
	cfg := defaultConfig()
	cfg.Server.ListenAddr = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty listen addr")
	}
}

func TestValidateRejectsNonPositiveDurations(t *testing.T) {
	cfg := defaultConfig()
	cfg.Heartbeat.Interval = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero heartbeat interval")
	}

	cfg = defaultConfig()
	cfg.Viewer.ReadTimeout = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative viewer read timeout")
	}
}
