// Package config loads and validates the application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/alibenameur/dupfinder/internal/exclude"
)

// Config represents the application configuration.
type Config struct {
	Exclude ExcludeConfig `yaml:"exclude"`
	Hash    HashConfig    `yaml:"hash"`
	Trash   TrashConfig   `yaml:"trash"`
	Server  ServerConfig  `yaml:"server"`
	Report  ReportConfig  `yaml:"report"`
	Verbose bool          `yaml:"verbose"`
}

// ExcludeConfig extends the built-in exclusion rules.
type ExcludeConfig struct {
	ExtraNames      []string `yaml:"extra_names"`
	ExtraPrefixes   []string `yaml:"extra_prefixes"`
	ExtraExtensions []string `yaml:"extra_extensions"`
	// IncludeHidden scans dot-prefixed entries instead of skipping them.
	IncludeHidden bool `yaml:"include_hidden"`
}

// HashConfig tunes the fingerprint engine.
type HashConfig struct {
	Workers     int `yaml:"workers"`       // 0 = sized to the machine
	ChunkSizeKB int `yaml:"chunk_size_kb"` // 0 = default (32 KiB)
}

// TrashConfig controls reversible deletion.
type TrashConfig struct {
	// AllowPermanent lets deletion degrade to permanent removal when no
	// trash facility exists. On by default; every permanent deletion is
	// flagged in the output.
	AllowPermanent *bool `yaml:"allow_permanent"`
}

// ServerConfig configures the report's file/delete server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// ReportConfig sets report defaults.
type ReportConfig struct {
	// SortBySize orders duplicate groups largest first. Off = keep
	// fingerprint discovery order.
	SortBySize *bool `yaml:"sort_by_size"`
}

// GetDefault returns the default configuration.
func GetDefault() *Config {
	yes := true
	return &Config{
		Hash:   HashConfig{Workers: 0, ChunkSizeKB: 32},
		Trash:  TrashConfig{AllowPermanent: &yes},
		Server: ServerConfig{Addr: "localhost:1080"},
		Report: ReportConfig{SortBySize: &yes},
	}
}

// Load reads configuration from a file; a missing file yields the
// defaults.
func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return GetDefault(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := GetDefault()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// Save writes the configuration to a file.
func Save(config *Config, configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for nonsense values.
func (c *Config) Validate() error {
	if c.Hash.Workers < 0 {
		return fmt.Errorf("hash workers must be >= 0")
	}
	if c.Hash.ChunkSizeKB < 0 {
		return fmt.Errorf("hash chunk size must be >= 0")
	}
	if c.Server.Addr != "" && !strings.Contains(c.Server.Addr, ":") {
		return fmt.Errorf("server addr must be host:port, got %q", c.Server.Addr)
	}
	for _, ext := range c.Exclude.ExtraExtensions {
		if ext == "" {
			return fmt.Errorf("empty exclude extension")
		}
	}
	return nil
}

// Rules builds the effective exclusion rule set: the defaults extended
// with the configured additions.
func (c *Config) Rules() exclude.Rules {
	rules := exclude.DefaultRules()
	opts := []exclude.Option{
		exclude.WithHiddenNames(!c.Exclude.IncludeHidden),
	}
	if len(c.Exclude.ExtraNames) > 0 {
		opts = append(opts, exclude.WithNames(c.Exclude.ExtraNames...))
	}
	if len(c.Exclude.ExtraPrefixes) > 0 {
		opts = append(opts, exclude.WithPrefixes(c.Exclude.ExtraPrefixes...))
	}
	if len(c.Exclude.ExtraExtensions) > 0 {
		opts = append(opts, exclude.WithExtensions(c.Exclude.ExtraExtensions...))
	}
	return rules.Extend(opts...)
}

// AllowPermanent resolves the trash fallback setting.
func (c *Config) AllowPermanent() bool {
	if c.Trash.AllowPermanent == nil {
		return true
	}
	return *c.Trash.AllowPermanent
}

// SortBySize resolves the report ordering setting.
func (c *Config) SortBySize() bool {
	if c.Report.SortBySize == nil {
		return true
	}
	return *c.Report.SortBySize
}

// ChunkSize returns the hash read buffer size in bytes.
func (c *Config) ChunkSize() int {
	return c.Hash.ChunkSizeKB * 1024
}

// GetConfigPath returns the default config path.
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "dupfinder", "config.yaml"), nil
}
