package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ListenPort != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.ListenPort)
	}
	if cfg.LaunchWindow() != 5*time.Minute {
		t.Errorf("expected default launch window 5m, got %s", cfg.LaunchWindow())
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
listen_port: 9000
consumers:
  canvas-prod: s3cret
lms_origin: https://canvas.example.edu
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ListenPort != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.ListenPort)
	}
	if cfg.Consumers["canvas-prod"] != "s3cret" {
		t.Errorf("consumer registry not loaded: %+v", cfg.Consumers)
	}
	// Unset keys keep their defaults.
	if cfg.SessionTTLSecs != 7200 {
		t.Errorf("expected default session TTL, got %d", cfg.SessionTTLSecs)
	}
	if cfg.SupportContact == "" {
		t.Error("expected default support contact")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "listen_port: [not a port")
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidateRejectsEmptyRegistry(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Error("empty consumer registry must not validate")
	}
	cfg.Consumers = map[string]string{"key": "secret"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestValidateRejectsBlankSecrets(t *testing.T) {
	cfg := Default()
	cfg.Consumers = map[string]string{"key": ""}
	if err := cfg.Validate(); err == nil {
		t.Error("blank secret must not validate")
	}
}
