// Package config loads the bridge's TOML configuration file via
// github.com/spf13/viper, layering defaults, the file itself, and
// PUTIOARR_-prefixed environment variables on top of each other.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/putioarr/bridge/internal/domain"
)

// envPrefix is prepended to every environment variable lookup; nested keys
// are joined with a double underscore, e.g. PUTIOARR_PUTIO__API_KEY maps to
// putio.api_key.
const envPrefix = "PUTIOARR"

func setDefaults(v *viper.Viper) {
	v.SetDefault("bind_address", "0.0.0.0")
	v.SetDefault("port", 9091)
	v.SetDefault("download_directory", "/downloads")
	v.SetDefault("download_workers", 4)
	v.SetDefault("orchestration_workers", 2)
	v.SetDefault("polling_interval", 10)
	v.SetDefault("uid", 0)
	v.SetDefault("username", "putioarr")
	v.SetDefault("password", "putioarr")
	v.SetDefault("loglevel", "info")
	v.SetDefault("skip_directories", []string{"sample", "subs"})
}

// New loads configuration from path, writing a starter template first if
// no file exists there yet.
func New(path string) (*domain.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := writeStarterTemplate(path); err != nil {
			return nil, fmt.Errorf("writing starter config template: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat config path: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("toml")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var cfg domain.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *domain.Config) error {
	if cfg.Putio.APIKey == "" {
		return errors.New("putio.api_key is required")
	}
	if cfg.DownloadDirectory == "" {
		return errors.New("download_directory is required")
	}
	if cfg.DownloadWorkers <= 0 {
		return errors.New("download_workers must be positive")
	}
	if cfg.OrchestrationWorkers <= 0 {
		return errors.New("orchestration_workers must be positive")
	}
	if cfg.PollingInterval <= 0 {
		return errors.New("polling_interval must be positive")
	}
	return nil
}

func writeStarterTemplate(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	return os.WriteFile(path, starterTemplate, 0o644)
}
