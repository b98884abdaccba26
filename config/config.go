package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/s0up4200/spamwatch/filter"
	"github.com/s0up4200/spamwatch/spamwatch"
)

// EnvPrefix is the prefix of environment overrides, e.g. SPAMWATCH_API_TOKEN
const EnvPrefix = "SPAMWATCH"

// Overrides are values from command line flags. Empty fields are ignored.
type Overrides struct {
	Token string
	URL   string
}

// Load loads the configuration from file and environment
func Load(configPath string) (*Config, error) {
	return LoadWithOverrides(configPath, Overrides{})
}

// LoadWithOverrides loads the configuration and applies flag overrides last.
// A missing config file is fine when no explicit path is given.
func LoadWithOverrides(configPath string, overrides Overrides) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// keys without a default are invisible to AutomaticEnv during Unmarshal
	if err := v.BindEnv("api.token"); err != nil {
		return nil, fmt.Errorf("error binding environment: %w", err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Check current directory first
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".spamwatch"))
		}

		v.AddConfigPath("/etc/spamwatch/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	if overrides.Token != "" {
		v.Set("api.token", overrides.Token)
	}
	if overrides.URL != "" {
		v.Set("api.url", overrides.URL)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// API defaults
	v.SetDefault("api.url", spamwatch.DefaultBaseURL)
	v.SetDefault("api.timeout", "30s")

	v.SetDefault("check.concurrency", spamwatch.DefaultConcurrency)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
	v.SetDefault("logging.max_size", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if cfg.API.Token == "" || cfg.API.Token == "your-api-token-here" {
		return fmt.Errorf("api.token must be set (config file, %s_API_TOKEN or --token)", EnvPrefix)
	}

	u, err := url.Parse(cfg.API.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api.url: %q", cfg.API.URL)
	}

	if cfg.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %s", cfg.API.Timeout)
	}

	if cfg.Check.Concurrency <= 0 {
		return fmt.Errorf("check.concurrency must be positive, got %d", cfg.Check.Concurrency)
	}

	// Validate logging level
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	// Filters must compile
	if cfg.Filter.Default != "" {
		if _, err := filter.CompileFilter(cfg.Filter.Default); err != nil {
			return fmt.Errorf("invalid filter.default: %w", err)
		}
	}
	for name, expression := range cfg.Filter.Presets {
		if _, err := filter.CompileFilter(expression); err != nil {
			return fmt.Errorf("invalid filter preset '%s': %w", name, err)
		}
	}

	return nil
}
