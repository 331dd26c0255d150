// Package config loads the fasthooks configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aretw0/fasthooks/pkg/rules"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file looked up when none is given.
const DefaultPath = ".fasthooks.yaml"

// Environment overrides.
const (
	EnvLogLevel  = "FASTHOOKS_LOG_LEVEL"
	EnvSessionID = "FASTHOOKS_SESSION_ID"
)

// Config is the full configuration file.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Observers ObserversConfig `mapstructure:"observers"`
	Rules     []rules.Rule    `mapstructure:"rules"`
	Server    ServerConfig    `mapstructure:"server"`
}

type AppConfig struct {
	Name      string `mapstructure:"name"`
	LogLevel  string `mapstructure:"log_level"`
	SessionID string `mapstructure:"session_id"`
}

// ObserversConfig enables the built-in observers. Empty paths and URLs
// leave the corresponding observer off. Redact patterns are applied to the
// events handed to the persisting observers (jsonl, sqlite, redis).
type ObserversConfig struct {
	Console bool         `mapstructure:"console"`
	JSONL   JSONLConfig  `mapstructure:"jsonl"`
	SQLite  SQLiteConfig `mapstructure:"sqlite"`
	Metrics bool         `mapstructure:"metrics"`
	Redis   RedisConfig  `mapstructure:"redis"`
	Log     bool         `mapstructure:"log"`
	Redact  []string     `mapstructure:"redact"`
}

type JSONLConfig struct {
	Path  string `mapstructure:"path"`
	Fsync bool   `mapstructure:"fsync"`
}

type SQLiteConfig struct {
	Path      string `mapstructure:"path"`
	BatchSize int    `mapstructure:"batch_size"`
}

type RedisConfig struct {
	URL     string        `mapstructure:"url"`
	Key     string        `mapstructure:"key"`
	MaxLen  int64         `mapstructure:"max_len"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:     "fasthooks",
			LogLevel: "warn",
		},
		Server: ServerConfig{Addr: "127.0.0.1:8787"},
	}
}

// Load reads path (DefaultPath when empty) and applies environment
// overrides. A missing default file yields Default(); a missing explicit file
// is an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist) && !explicit:
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := Parse(data, cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// Parse decodes YAML data on top of cfg.
func Parse(data []byte, cfg *Config) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid yaml: %w", err)
	}
	if raw == nil {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.App.LogLevel = v
	}
	if v := os.Getenv(EnvSessionID); v != "" {
		cfg.App.SessionID = v
	}
}
