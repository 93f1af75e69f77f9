// Package config loads gateway settings from an optional YAML file and the
// environment.
package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the gateway settings. Every key can come from the YAML file
// or from a SWITCHER_ environment variable; a flat PORT variable is honored
// too so container platforms can inject one.
type Config struct {
	Port              string        `mapstructure:"port"`
	BindAddr          string        `mapstructure:"bind_addr"`
	ScanWindow        time.Duration `mapstructure:"scan_window"`
	DiscoveryPorts    []int         `mapstructure:"discovery_ports"`
	ControlTimeout    time.Duration `mapstructure:"control_timeout"`
	DefaultBreezeHost string        `mapstructure:"default_breeze_host"`
	RemoteDBPath      string        `mapstructure:"remote_db_path"`
	MQTTBrokerURL     string        `mapstructure:"mqtt_broker_url"`
	LogLevel          string        `mapstructure:"log_level"`
	LogFormat         string        `mapstructure:"log_format"`
}

// Load reads the config file at path when one is given, then applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("port", "8080")
	v.SetDefault("bind_addr", "0.0.0.0")
	v.SetDefault("scan_window", "10s")
	v.SetDefault("discovery_ports", []int{20002, 20003})
	v.SetDefault("control_timeout", "30s")
	v.SetDefault("default_breeze_host", "switcher-breeze")
	v.SetDefault("remote_db_path", "breeze_remotes.json")
	v.SetDefault("mqtt_broker_url", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	v.SetEnvPrefix("SWITCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if p := os.Getenv("PORT"); p != "" {
		cfg.Port = p
	}

	if cfg.ScanWindow <= 0 {
		return nil, fmt.Errorf("scan_window must be positive, got %s", cfg.ScanWindow)
	}
	if cfg.ControlTimeout <= 0 {
		return nil, fmt.Errorf("control_timeout must be positive, got %s", cfg.ControlTimeout)
	}
	if len(cfg.DiscoveryPorts) == 0 {
		return nil, fmt.Errorf("discovery_ports must not be empty")
	}
	return &cfg, nil
}

// ListenAddr is the HTTP bind address.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.BindAddr, c.Port)
}

// SlogLevel maps the configured level onto slog.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
