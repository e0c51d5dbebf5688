// Package config provides Viper-based configuration loading for the Hinterland server.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cory-johannsen/hinterland/internal/game/dice"
)

// ServerConfig holds top-level server settings.
type ServerConfig struct {
	// Mode is the operation mode: "standalone" serves Telnet, "console" reads stdin.
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// TelnetConfig holds Telnet acceptor settings.
type TelnetConfig struct {
	// Host is the bind address for the Telnet listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the Telnet listener. 0 picks a free port.
	Port int `mapstructure:"port"`
	// ReadTimeout is the per-read timeout for Telnet connections.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the per-write timeout for Telnet connections.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// MaxSessions caps concurrent sessions. 0 means unlimited.
	MaxSessions int `mapstructure:"max_sessions"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (t TelnetConfig) Addr() string {
	return fmt.Sprintf("%s:%d", t.Host, t.Port)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// NarratorConfig selects and tunes the free-text generation backend.
type NarratorConfig struct {
	// Provider is one of "anthropic", "kobold", or "static".
	Provider string `mapstructure:"provider"`
	// Model is the model name passed to the provider (anthropic only).
	Model string `mapstructure:"model"`
	// APIKey authenticates against the provider (anthropic only).
	APIKey string `mapstructure:"api_key"`
	// BaseURL is the koboldcpp root URL (kobold only).
	BaseURL string `mapstructure:"base_url"`
	// MaxTokens caps the length of each generated response.
	MaxTokens int `mapstructure:"max_tokens"`
	// Timeout bounds a single narrator request. 0 blocks until the provider answers.
	Timeout time.Duration `mapstructure:"timeout"`
}

// CacheConfig holds settings for the Redis-backed narrator response cache.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Addr    string        `mapstructure:"addr"`
	DB      int           `mapstructure:"db"`
	TTL     time.Duration `mapstructure:"ttl"`
	Prefix  string        `mapstructure:"prefix"`
}

// WorldConfig controls where the world graph lives and how a fresh one is seeded.
type WorldConfig struct {
	// Store is "file" (YAML snapshot at SnapshotPath) or "postgres".
	Store string `mapstructure:"store"`
	// SnapshotPath is the YAML snapshot file used by the file store.
	SnapshotPath string `mapstructure:"snapshot_path"`
	// Name keys the world row in the postgres store.
	Name string `mapstructure:"name"`
	// Races seed faction generation when no stored world exists.
	Races []string `mapstructure:"races"`
	// StatesPerRace is a dice expression rolled once per race.
	StatesPerRace string `mapstructure:"states_per_race"`
	// Settlements is a dice expression rolled once per territory. Empty disables settlements.
	Settlements string `mapstructure:"settlements"`
	// Seed makes generation reproducible when non-zero.
	Seed uint64 `mapstructure:"seed"`
}

// MetricsConfig holds the Prometheus exporter settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Telnet   TelnetConfig   `mapstructure:"telnet"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Narrator NarratorConfig `mapstructure:"narrator"`
	Cache    CacheConfig    `mapstructure:"cache"`
	World    WorldConfig    `mapstructure:"world"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	validators := []func() error{
		func() error { return validateServer(c.Server) },
		func() error { return validateTelnet(c.Telnet) },
		func() error { return validateLogging(c.Logging) },
		func() error { return validateNarrator(c.Narrator) },
		func() error { return validateCache(c.Cache) },
		func() error { return validateWorld(c.World) },
		func() error { return validateMetrics(c.Metrics) },
	}
	if c.World.Store == "postgres" {
		validators = append(validators, func() error { return validateDatabase(c.Database) })
	}
	for _, v := range validators {
		if err := v(); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	validModes := map[string]bool{"standalone": true, "console": true}
	if !validModes[s.Mode] {
		return fmt.Errorf("server.mode must be one of [standalone, console], got %q", s.Mode)
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 || d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must be between 0 and database.max_conns")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateTelnet(t TelnetConfig) error {
	var errs []string
	if t.Port < 0 || t.Port > 65535 {
		errs = append(errs, fmt.Sprintf("telnet.port must be 0-65535, got %d", t.Port))
	}
	if t.ReadTimeout < 0 {
		errs = append(errs, "telnet.read_timeout must not be negative")
	}
	if t.WriteTimeout < 0 {
		errs = append(errs, "telnet.write_timeout must not be negative")
	}
	if t.MaxSessions < 0 {
		errs = append(errs, fmt.Sprintf("telnet.max_sessions must be >= 0, got %d", t.MaxSessions))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateNarrator(n NarratorConfig) error {
	var errs []string
	switch n.Provider {
	case "anthropic":
		if n.APIKey == "" {
			errs = append(errs, "narrator.api_key must not be empty for the anthropic provider")
		}
		if n.Model == "" {
			errs = append(errs, "narrator.model must not be empty for the anthropic provider")
		}
	case "kobold":
		if n.BaseURL == "" {
			errs = append(errs, "narrator.base_url must not be empty for the kobold provider")
		}
	case "static":
	default:
		errs = append(errs, fmt.Sprintf("narrator.provider must be one of [anthropic, kobold, static], got %q", n.Provider))
	}
	if n.MaxTokens < 1 {
		errs = append(errs, fmt.Sprintf("narrator.max_tokens must be >= 1, got %d", n.MaxTokens))
	}
	if n.Timeout < 0 {
		errs = append(errs, "narrator.timeout must not be negative")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateCache(c CacheConfig) error {
	if !c.Enabled {
		return nil
	}
	var errs []string
	if c.Addr == "" {
		errs = append(errs, "cache.addr must not be empty when the cache is enabled")
	}
	if c.TTL < 0 {
		errs = append(errs, "cache.ttl must not be negative")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateWorld(w WorldConfig) error {
	var errs []string
	switch w.Store {
	case "file":
		if w.SnapshotPath == "" {
			errs = append(errs, "world.snapshot_path must not be empty for the file store")
		}
	case "postgres":
		if w.Name == "" {
			errs = append(errs, "world.name must not be empty for the postgres store")
		}
	default:
		errs = append(errs, fmt.Sprintf("world.store must be one of [file, postgres], got %q", w.Store))
	}
	if len(w.Races) == 0 {
		errs = append(errs, "world.races must list at least one race")
	}
	if w.StatesPerRace == "" {
		errs = append(errs, "world.states_per_race must not be empty")
	} else if _, err := dice.Parse(w.StatesPerRace); err != nil {
		errs = append(errs, fmt.Sprintf("world.states_per_race: %v", err))
	}
	if w.Settlements != "" {
		if _, err := dice.Parse(w.Settlements); err != nil {
			errs = append(errs, fmt.Sprintf("world.settlements: %v", err))
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateMetrics(m MetricsConfig) error {
	if m.Enabled && m.Addr == "" {
		return errors.New("metrics.addr must not be empty when metrics are enabled")
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with HINTERLAND_ prefix
	v.SetEnvPrefix("HINTERLAND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns a Viper instance holding only the default settings.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.mode", "standalone")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "hinterland")
	v.SetDefault("database.password", "hinterland")
	v.SetDefault("database.name", "hinterland")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("telnet.host", "0.0.0.0")
	v.SetDefault("telnet.port", 4000)
	v.SetDefault("telnet.read_timeout", "30m")
	v.SetDefault("telnet.write_timeout", "30s")
	v.SetDefault("telnet.max_sessions", 64)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("narrator.provider", "static")
	v.SetDefault("narrator.model", "claude-3-5-haiku-latest")
	v.SetDefault("narrator.base_url", "http://127.0.0.1:5001")
	v.SetDefault("narrator.max_tokens", 512)
	v.SetDefault("narrator.timeout", "60s")

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.addr", "127.0.0.1:6379")
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.prefix", "hinterland:narrator:")

	v.SetDefault("world.store", "file")
	v.SetDefault("world.snapshot_path", "data/world.yaml")
	v.SetDefault("world.name", "default")
	v.SetDefault("world.races", []string{"human", "elf", "dwarf"})
	v.SetDefault("world.states_per_race", "1d3+2")
	v.SetDefault("world.settlements", "1d3+1")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", "127.0.0.1:9100")
}
