// Package config loads syncraft deployment configuration from YAML,
// used by the bundled commands.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration with YAML parsing of values like "500ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Redis holds shared-store connection settings.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Mongo holds persistent-store connection settings.
type Mongo struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// Config is the full deployment configuration.
type Config struct {
	Redis         Redis    `yaml:"redis"`
	Mongo         Mongo    `yaml:"mongo"`
	Group         string   `yaml:"group"`
	FlushInterval Duration `yaml:"flush_interval"`
	LeaseTTL      Duration `yaml:"lease_ttl"`
	RenewInterval Duration `yaml:"renew_interval"`
}

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate applies defaults and rejects inconsistent settings.
func (c *Config) Validate() error {
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Group == "" {
		c.Group = "default"
	}
	if c.FlushInterval <= 0 {
		return fmt.Errorf("flush_interval must be positive, got %s", c.FlushInterval.Std())
	}
	if c.LeaseTTL < 0 || c.RenewInterval < 0 {
		return fmt.Errorf("lease_ttl and renew_interval must not be negative")
	}
	if c.LeaseTTL > 0 && c.RenewInterval > 0 && c.RenewInterval >= c.LeaseTTL {
		return fmt.Errorf("renew_interval %s must be shorter than lease_ttl %s",
			c.RenewInterval.Std(), c.LeaseTTL.Std())
	}
	return nil
}
