// Package config loads policywizard service configuration from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all service configuration.
type Config struct {
	// ListenPort is the HTTP listen port.
	ListenPort int `yaml:"listen_port"`

	// DatabasePath is the sqlite database file.
	DatabasePath string `yaml:"database_path"`

	// AuditLogPath is the JSONL audit log file. Empty disables auditing.
	AuditLogPath string `yaml:"audit_log_path"`

	// Consumers maps LTI consumer keys to shared secrets.
	Consumers map[string]string `yaml:"consumers"`

	// LaunchWindowSecs bounds how old a launch timestamp may be.
	LaunchWindowSecs int `yaml:"launch_window_secs"`

	// SessionTTLSecs bounds how long an established session stays valid.
	SessionTTLSecs int `yaml:"session_ttl_secs"`

	// LMSOrigin is the platform origin allowed to frame the tool.
	LMSOrigin string `yaml:"lms_origin"`

	// SupportContact is shown to users on server-error pages.
	SupportContact string `yaml:"support_contact"`
}

// LaunchWindow returns the launch freshness window as a duration.
func (c *Config) LaunchWindow() time.Duration {
	return time.Duration(c.LaunchWindowSecs) * time.Second
}

// SessionTTL returns the session lifetime as a duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSecs) * time.Second
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ListenPort:       8080,
		DatabasePath:     defaultDatabasePath(),
		Consumers:        map[string]string{},
		LaunchWindowSecs: 300,
		SessionTTLSecs:   7200,
		LMSOrigin:        "",
		SupportContact:   "the tool administrator",
	}
}

func defaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "policywizard.db")
	}
	return filepath.Join(home, ".policywizard", "policywizard.db")
}

// Load reads configuration from a YAML file.
// Empty path falls back to ~/.policywizard/config.yaml.
// Missing file returns defaults. Invalid YAML returns an error.
func Load(path string) (*Config, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Default(), nil
		}
		path = filepath.Join(home, ".policywizard", "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// Start with defaults, YAML overwrites only specified fields
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration can actually serve launches.
func (c *Config) Validate() error {
	if c.ListenPort <= 0 || c.ListenPort > 65535 {
		return fmt.Errorf("listen_port %d out of range", c.ListenPort)
	}
	if len(c.Consumers) == 0 {
		return fmt.Errorf("no consumers configured: every launch would be rejected")
	}
	for key, secret := range c.Consumers {
		if key == "" || secret == "" {
			return fmt.Errorf("consumer entries must have non-empty key and secret")
		}
	}
	if c.LaunchWindowSecs <= 0 {
		return fmt.Errorf("launch_window_secs must be positive")
	}
	if c.SessionTTLSecs <= 0 {
		return fmt.Errorf("session_ttl_secs must be positive")
	}
	return nil
}
