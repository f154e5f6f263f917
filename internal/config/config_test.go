package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with empty path failed: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:7466" {
		t.Errorf("Unexpected default addr: %s", cfg.Server.Addr)
	}
	if cfg.Dispatch.Transport != "log" {
		t.Errorf("Unexpected default transport: %s", cfg.Dispatch.Transport)
	}
	if cfg.Dispatch.Interval.Std() != 2*time.Second {
		t.Errorf("Unexpected default interval: %s", cfg.Dispatch.Interval.Std())
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  addr: ":9000"
database:
  path: /tmp/ctl.db
dispatch:
  transport: webhook
  webhook_url: http://localhost:8080/hook
  interval: 5s
log_level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("addr not overridden: %s", cfg.Server.Addr)
	}
	if cfg.Database.Path != "/tmp/ctl.db" {
		t.Errorf("db path not overridden: %s", cfg.Database.Path)
	}
	if cfg.Dispatch.Transport != "webhook" || cfg.Dispatch.WebhookURL != "http://localhost:8080/hook" {
		t.Errorf("dispatch not overridden: %+v", cfg.Dispatch)
	}
	if cfg.Dispatch.Interval.Std() != 5*time.Second {
		t.Errorf("interval not overridden: %s", cfg.Dispatch.Interval.Std())
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level not overridden: %s", cfg.LogLevel)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log_level: warn\n"), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("log level not overridden: %s", cfg.LogLevel)
	}
	if cfg.Server.Addr != "127.0.0.1:7466" {
		t.Errorf("default addr lost: %s", cfg.Server.Addr)
	}
}

func TestValidateRejectsBadTransport(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dispatch.Transport = "carrier-pigeon"
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for unknown transport")
	}

	cfg = DefaultConfig()
	cfg.Dispatch.Transport = "webhook"
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for webhook without URL")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
