package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Generator GeneratorConfig `yaml:"generator"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// GeneratorConfig holds the session defaults applied when a request omits
// them.
type GeneratorConfig struct {
	Ruleset            string `yaml:"ruleset"`
	RecentSessions     int    `yaml:"recent_sessions"`
	DefaultDurationMin int    `yaml:"default_duration_min"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix VOLLEYPLAN_ and underscore-separated paths:
//
//	VOLLEYPLAN_SERVER_HOST, VOLLEYPLAN_SERVER_PORT,
//	VOLLEYPLAN_DB_HOST, VOLLEYPLAN_DB_PORT, VOLLEYPLAN_DB_NAME,
//	VOLLEYPLAN_DB_USER, VOLLEYPLAN_DB_PASSWORD, VOLLEYPLAN_DB_SSLMODE,
//	VOLLEYPLAN_AUTH_API_KEY,
//	VOLLEYPLAN_TAILSCALE_ENABLED, VOLLEYPLAN_TAILSCALE_HOSTNAME,
//	VOLLEYPLAN_GENERATOR_RULESET, VOLLEYPLAN_GENERATOR_RECENT_SESSIONS
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VOLLEYPLAN_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("VOLLEYPLAN_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("VOLLEYPLAN_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("VOLLEYPLAN_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("VOLLEYPLAN_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("VOLLEYPLAN_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("VOLLEYPLAN_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("VOLLEYPLAN_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("VOLLEYPLAN_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("VOLLEYPLAN_TAILSCALE_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = enabled
		}
	}
	if v := os.Getenv("VOLLEYPLAN_TAILSCALE_HOSTNAME"); v != "" {
		cfg.Tailscale.Hostname = v
	}
	if v := os.Getenv("VOLLEYPLAN_GENERATOR_RULESET"); v != "" {
		cfg.Generator.Ruleset = strings.ToLower(v)
	}
	if v := os.Getenv("VOLLEYPLAN_GENERATOR_RECENT_SESSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Generator.RecentSessions = n
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Tailscale.Hostname == "" {
		c.Tailscale.Hostname = "volleyplan"
	}
	if c.Tailscale.StateDir == "" {
		c.Tailscale.StateDir = "tsnet-state"
	}
	if c.Generator.Ruleset == "" {
		c.Generator.Ruleset = "periodized"
	}
	if c.Generator.RecentSessions == 0 {
		c.Generator.RecentSessions = 3
	}
	if c.Generator.DefaultDurationMin == 0 {
		c.Generator.DefaultDurationMin = 90
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Generator.RecentSessions < 0 || c.Generator.RecentSessions > 3 {
		return fmt.Errorf("generator.recent_sessions must be between 0 and 3, got %d", c.Generator.RecentSessions)
	}
	if c.Generator.DefaultDurationMin < 0 {
		return fmt.Errorf("generator.default_duration_min must be positive, got %d", c.Generator.DefaultDurationMin)
	}
	return nil
}
