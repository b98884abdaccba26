package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		API: APIConfig{
			Token:   "valid-token",
			URL:     "https://api.spamwat.ch",
			Timeout: 30 * time.Second,
		},
		Check: CheckConfig{Concurrency: 10},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "Valid config",
			modify: func(*Config) {},
		},
		{
			name:    "Missing token",
			modify:  func(c *Config) { c.API.Token = "" },
			wantErr: "api.token must be set",
		},
		{
			name:    "Placeholder token",
			modify:  func(c *Config) { c.API.Token = "your-api-token-here" },
			wantErr: "api.token must be set",
		},
		{
			name:    "Invalid URL scheme",
			modify:  func(c *Config) { c.API.URL = "ftp://api.spamwat.ch" },
			wantErr: "invalid api.url",
		},
		{
			name:    "URL without host",
			modify:  func(c *Config) { c.API.URL = "https://" },
			wantErr: "invalid api.url",
		},
		{
			name:    "Zero timeout",
			modify:  func(c *Config) { c.API.Timeout = 0 },
			wantErr: "api.timeout must be positive",
		},
		{
			name:    "Zero concurrency",
			modify:  func(c *Config) { c.Check.Concurrency = 0 },
			wantErr: "check.concurrency must be positive",
		},
		{
			name:    "Invalid logging level",
			modify:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "invalid logging level",
		},
		{
			name:    "Invalid logging format",
			modify:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "invalid logging format",
		},
		{
			name:    "Invalid default filter",
			modify:  func(c *Config) { c.Filter.Default = `Reason ==` },
			wantErr: "invalid filter.default",
		},
		{
			name: "Invalid preset",
			modify: func(c *Config) {
				c.Filter.Presets = map[string]string{"broken": `contains(`}
			},
			wantErr: "invalid filter preset 'broken'",
		},
		{
			name: "Valid presets",
			modify: func(c *Config) {
				c.Filter.Default = `Date > monthsAgo(1)`
				c.Filter.Presets = map[string]string{"spam": `contains(Reason, "spam")`}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)

			err := validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("validate() unexpected error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("validate() error = %v, want message containing %q", err, tt.wantErr)
			}
		})
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
api:
  token: file-token
  url: https://spamwatch.example.com
  timeout: 5s
check:
  concurrency: 4
filter:
  default: 'Date > monthsAgo(12)'
  presets:
    spam: 'contains(Reason, "spam")'
logging:
  level: debug
  format: json
  file: /tmp/spamwatch.log
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.Token != "file-token" {
		t.Errorf("token = %q, want file-token", cfg.API.Token)
	}
	if cfg.API.URL != "https://spamwatch.example.com" {
		t.Errorf("url = %q", cfg.API.URL)
	}
	if cfg.API.Timeout != 5*time.Second {
		t.Errorf("timeout = %s, want 5s", cfg.API.Timeout)
	}
	if cfg.Check.Concurrency != 4 {
		t.Errorf("concurrency = %d, want 4", cfg.Check.Concurrency)
	}
	if cfg.Filter.Presets["spam"] != `contains(Reason, "spam")` {
		t.Errorf("presets = %v", cfg.Filter.Presets)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	// defaults survive partial sections
	if cfg.Logging.MaxBackups != 3 {
		t.Errorf("max_backups = %d, want default 3", cfg.Logging.MaxBackups)
	}
}

func TestLoadEnvironmentAndOverrides(t *testing.T) {
	path := writeConfig(t, `
api:
  token: file-token
`)

	t.Setenv("SPAMWATCH_API_TOKEN", "env-token")
	t.Setenv("SPAMWATCH_CHECK_CONCURRENCY", "7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.Token != "env-token" {
		t.Errorf("token = %q, want env-token", cfg.API.Token)
	}
	if cfg.Check.Concurrency != 7 {
		t.Errorf("concurrency = %d, want 7", cfg.Check.Concurrency)
	}
	if cfg.API.URL != "https://api.spamwat.ch" {
		t.Errorf("url = %q, want default", cfg.API.URL)
	}

	cfg, err = LoadWithOverrides(path, Overrides{Token: "flag-token", URL: "http://localhost:8080"})
	if err != nil {
		t.Fatalf("LoadWithOverrides() error = %v", err)
	}
	if cfg.API.Token != "flag-token" {
		t.Errorf("token = %q, want flag-token", cfg.API.Token)
	}
	if cfg.API.URL != "http://localhost:8080" {
		t.Errorf("url = %q, want flag override", cfg.API.URL)
	}
}

func TestLoadWithoutConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SPAMWATCH_API_TOKEN", "env-token")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.Token != "env-token" {
		t.Errorf("token = %q, want env-token", cfg.API.Token)
	}
	if cfg.API.Timeout != 30*time.Second {
		t.Errorf("timeout = %s, want default 30s", cfg.API.Timeout)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("SPAMWATCH_API_TOKEN", "")
	path := writeConfig(t, "logging:\n  level: info\n")

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "api.token must be set") {
		t.Errorf("Load() error = %v, want missing token error", err)
	}
}
