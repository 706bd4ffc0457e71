// Package config loads service configuration from an optional YAML file
// with environment variable overrides. Environment always wins so deploys
// can keep secrets out of the file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ProviderCredentials are the OAuth client credentials for one provider app.
type ProviderCredentials struct {
	ClientID       string `yaml:"client_id"`
	ClientSecret   string `yaml:"client_secret"`
	DeveloperToken string `yaml:"developer_token"`
}

// Config is the full service configuration.
type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port string `yaml:"port"`
	} `yaml:"server"`

	Storage struct {
		// Driver selects the token store: "sqlite" or "memory".
		Driver string `yaml:"driver"`
		// Path is the sqlite database file.
		Path string `yaml:"path"`
		// SnapshotPath persists the memory store across restarts.
		// Empty disables persistence.
		SnapshotPath string `yaml:"snapshot_path"`
	} `yaml:"storage"`

	Providers struct {
		Google ProviderCredentials `yaml:"google"`
		Meta   ProviderCredentials `yaml:"meta"`
	} `yaml:"providers"`
}

// Load reads the YAML file when it exists, applies env overrides and
// defaults. A missing file is not an error; env-only deploys are fine.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	override(&cfg.Server.Host, "HOST")
	override(&cfg.Server.Port, "PORT")
	override(&cfg.Storage.Driver, "ADBOARD_STORAGE_DRIVER")
	override(&cfg.Storage.Path, "ADBOARD_DB")
	override(&cfg.Storage.SnapshotPath, "ADBOARD_TOKEN_SNAPSHOT")
	override(&cfg.Providers.Google.ClientID, "GOOGLE_CLIENT_ID")
	override(&cfg.Providers.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	override(&cfg.Providers.Google.DeveloperToken, "GOOGLE_DEVELOPER_TOKEN")
	override(&cfg.Providers.Meta.ClientID, "META_CLIENT_ID")
	override(&cfg.Providers.Meta.ClientSecret, "META_CLIENT_SECRET")
}

func override(dst *string, envKey string) {
	if v := os.Getenv(envKey); v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "adboard.db"
	}
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}
