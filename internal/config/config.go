package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Transport  TransportConfig  `yaml:"transport"`
	DB         DBConfig         `yaml:"db"`
	Registry   RegistryConfig   `yaml:"registry"`
	Log        LogConfig        `yaml:"log"`
	CaseNumber CaseNumberConfig `yaml:"case_number"`
	Outbox     OutboxConfig     `yaml:"outbox"`
	NATS       NATSConfig       `yaml:"nats"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// TransportConfig selects how MCP clients reach the server: "http" serves
// /mcp and /rpc, "stdio" speaks MCP over stdin/stdout.
type TransportConfig struct {
	Mode string `yaml:"mode"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

// RegistryConfig selects the Case Registry backend: "sqlite" or "memory".
type RegistryConfig struct {
	Backend string `yaml:"backend"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type CaseNumberConfig struct {
	Prefix string `yaml:"prefix"`
}

type OutboxConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// NATSConfig enables publishing finalized cases when URL is set.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Transport: TransportConfig{
			Mode: "http",
		},
		DB: DBConfig{
			Path: "firstcall.db",
		},
		Registry: RegistryConfig{
			Backend: "sqlite",
		},
		Log: LogConfig{
			Level: "info",
		},
		CaseNumber: CaseNumberConfig{
			Prefix: "FH",
		},
		Outbox: OutboxConfig{
			Interval: 5 * time.Second,
		},
		NATS: NATSConfig{
			Subject: "firstcall.case.finalized",
		},
	}

	if path := os.Getenv("FIRSTCALL_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("FIRSTCALL_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("FIRSTCALL_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid FIRSTCALL_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if mode := os.Getenv("FIRSTCALL_TRANSPORT"); mode != "" {
		cfg.Transport.Mode = mode
	}
	if dbPath := os.Getenv("FIRSTCALL_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if backend := os.Getenv("FIRSTCALL_REGISTRY"); backend != "" {
		cfg.Registry.Backend = backend
	}
	if level := os.Getenv("FIRSTCALL_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if prefix := os.Getenv("FIRSTCALL_CASE_PREFIX"); prefix != "" {
		cfg.CaseNumber.Prefix = prefix
	}
	if intervalStr := os.Getenv("FIRSTCALL_OUTBOX_INTERVAL"); intervalStr != "" {
		interval, err := time.ParseDuration(intervalStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid FIRSTCALL_OUTBOX_INTERVAL: %w", err)
		}
		cfg.Outbox.Interval = interval
	}
	if url := os.Getenv("FIRSTCALL_NATS_URL"); url != "" {
		cfg.NATS.URL = url
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Transport.Mode {
	case "http", "stdio":
	default:
		return fmt.Errorf("invalid transport mode %q", c.Transport.Mode)
	}
	switch c.Registry.Backend {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("invalid registry backend %q", c.Registry.Backend)
	}
	if c.Outbox.Interval <= 0 {
		return fmt.Errorf("outbox interval must be positive, got %s", c.Outbox.Interval)
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
