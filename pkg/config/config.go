// Package config provides YAML-based configuration loading for the cipher
// servers and clients.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultMaxWorkers is the admission bound used when none is configured.
const DefaultMaxWorkers = 5

// Config is the root application configuration.
type Config struct {
	// Log holds logging configuration
	Log LogConfig `mapstructure:"log"`

	Transport TransportConfig `mapstructure:"transport"`
	Server    ServerConfig    `mapstructure:"server"`
	Client    ClientConfig    `mapstructure:"client"`
	Protocol  ProtocolConfig  `mapstructure:"protocol"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: list of outputs: stdout, stderr, or file paths
	Outputs []string `mapstructure:"outputs"`

	// Rotation controls file rotation when writing to files
	Rotation RotationConfig `mapstructure:"rotation"`
	// Development toggles development-friendly logging options
	Development bool `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool   `mapstructure:"enable"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Default returns a Config populated with sensible defaults.
// Logs go to stderr so a client's stdout carries only its result.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:   "info",
			Format:  "console",
			Outputs: []string{"stderr"},
			Rotation: RotationConfig{
				Enable:     false,
				Filename:   "logs/otp.log",
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
		Transport: TransportConfig{Kind: "tcp"},
		Server:    ServerConfig{MaxWorkers: DefaultMaxWorkers},
		Client:    ClientConfig{Host: "localhost", DialTimeout: 5 * time.Second},
		Protocol:  ProtocolConfig{BodyFormat: "cbor"},
	}
}

// Load reads configuration from the provided path (if non-empty),
// otherwise it searches common locations and supports environment overrides.
// Environment variables use the prefix OTP and `.`/`-` are replaced with `_`.
// Example: OTP_SERVER_MAX_WORKERS=2
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("OTP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// seed defaults for viper so env-only configs work
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
	v.SetDefault("transport.kind", cfg.Transport.Kind)
	v.SetDefault("server.listen_host", cfg.Server.ListenHost)
	v.SetDefault("server.max_workers", cfg.Server.MaxWorkers)
	v.SetDefault("server.io_timeout", cfg.Server.IOTimeout)
	v.SetDefault("client.host", cfg.Client.Host)
	v.SetDefault("client.dial_timeout", cfg.Client.DialTimeout)
	v.SetDefault("protocol.body_format", cfg.Protocol.BodyFormat)

	// Choose config file
	if path == "" {
		if envPath := os.Getenv("OTP_CONFIG"); envPath != "" {
			path = envPath
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("otp")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".otp"))
		}
	}

	// Read config file if present; if not found, continue with defaults/env
	if err := v.ReadInConfig(); err != nil {
		var viperConfigFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &viperConfigFileNotFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	lvl := strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch lvl {
	case "debug", "info", "warn", "warning", "error":
		// ok
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}

	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stderr"}
	}

	c.Transport.Kind = strings.ToLower(strings.TrimSpace(c.Transport.Kind))
	switch c.Transport.Kind {
	case "":
		c.Transport.Kind = "tcp"
	case "tcp", "quic", "mem":
	default:
		return fmt.Errorf("invalid transport.kind: %q", c.Transport.Kind)
	}

	if c.Server.MaxWorkers < 1 {
		return fmt.Errorf("invalid server.max_workers: %d", c.Server.MaxWorkers)
	}
	if c.Server.IOTimeout < 0 {
		return fmt.Errorf("invalid server.io_timeout: %s", c.Server.IOTimeout)
	}
	if strings.TrimSpace(c.Client.Host) == "" {
		c.Client.Host = "localhost"
	}
	if c.Client.DialTimeout <= 0 {
		c.Client.DialTimeout = 5 * time.Second
	}

	c.Protocol.BodyFormat = strings.ToLower(strings.TrimSpace(c.Protocol.BodyFormat))
	switch c.Protocol.BodyFormat {
	case "":
		c.Protocol.BodyFormat = "cbor"
	case "cbor", "json":
	default:
		return fmt.Errorf("invalid protocol.body_format: %q", c.Protocol.BodyFormat)
	}
	return nil
}

// MustLoad is a convenience that panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}
