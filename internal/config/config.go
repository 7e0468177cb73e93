package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// configPtr holds the current config for thread-safe access.
var configPtr atomic.Pointer[Config]

// loadedConfigFile stores the path of the config file used by the last successful Load.
var loadedConfigFile atomic.Value

// Get returns the current Config. It is safe for concurrent use.
// If no config has been loaded yet, it returns the default config.
func Get() *Config {
	if c := configPtr.Load(); c != nil {
		return c
	}
	d := DefaultConfig()
	configPtr.Store(d)
	return d
}

// set stores a new Config atomically.
func set(cfg *Config) {
	configPtr.Store(cfg)
}

// Config is the top-level configuration for Traduko.
type Config struct {
	Server    ServerConfig              `mapstructure:"server"    toml:"server"`
	Providers map[string]ProviderConfig `mapstructure:"providers" toml:"providers"`
	Dispatch  DispatchConfig            `mapstructure:"dispatch"  toml:"dispatch"`
	Cache     CacheConfig               `mapstructure:"cache"     toml:"cache"`
	Telemetry TelemetryConfig           `mapstructure:"telemetry" toml:"telemetry"`
}

// ServerConfig holds the diagnostics server and logging settings.
type ServerConfig struct {
	DiagPort  int    `mapstructure:"diag_port" toml:"diag_port"`
	LogLevel  string `mapstructure:"log_level" toml:"log_level"`
	DataDir   string `mapstructure:"data_dir"  toml:"data_dir"`
	DiagBind  string `mapstructure:"diag_bind" toml:"diag_bind"`
}

// ProviderConfig describes a single translation back-end.
type ProviderConfig struct {
	Kind      string `mapstructure:"kind"      toml:"kind"`
	APIBase   string `mapstructure:"api_base"  toml:"api_base"`
	KeyRef    string `mapstructure:"key_ref"   toml:"key_ref"`
	TokenRef  string `mapstructure:"token_ref" toml:"token_ref"` // OAuth/session token reference
	Model     string `mapstructure:"model"     toml:"model"`
	Capacity  string `mapstructure:"capacity"  toml:"capacity"` // optional override: paid|oauth|local
	Instances int    `mapstructure:"instances" toml:"instances"`
	Enabled   bool   `mapstructure:"enabled"   toml:"enabled"`
	Timeout   int    `mapstructure:"timeout"   toml:"timeout"` // seconds
}

// TimeoutDuration returns the provider timeout as a time.Duration, with the
// global floor applied by the dispatcher.
func (p ProviderConfig) TimeoutDuration() time.Duration {
	if p.Timeout <= 0 {
		return time.Duration(DefaultRequestTimeout) * time.Second
	}
	return time.Duration(p.Timeout) * time.Second
}

// DispatchConfig controls retry, cooldown, and job-deadline behaviour.
type DispatchConfig struct {
	RateLimitCooldownSec    int  `mapstructure:"rate_limit_cooldown_seconds"    toml:"rate_limit_cooldown_seconds"`
	TransientCooldownMaxSec int  `mapstructure:"transient_cooldown_max_seconds" toml:"transient_cooldown_max_seconds"`
	RequestTimeoutSec       int  `mapstructure:"request_timeout_seconds"        toml:"request_timeout_seconds"`
	PoolTimeoutSec          int  `mapstructure:"pool_timeout_seconds"           toml:"pool_timeout_seconds"`
	MaxTextBytes            int  `mapstructure:"max_text_bytes"                 toml:"max_text_bytes"`
	SecondSweep             bool `mapstructure:"second_sweep"                   toml:"second_sweep"`
}

// CacheConfig controls the in-memory translation cache layered above the
// dispatcher.
type CacheConfig struct {
	Enabled    bool `mapstructure:"enabled"     toml:"enabled"`
	MaxEntries int  `mapstructure:"max_entries" toml:"max_entries"`
}

// TelemetryConfig controls event emission.
type TelemetryConfig struct {
	// Events enables the JSON-lines event stream on stderr.
	Events bool `mapstructure:"events" toml:"events"`
	// History enables persisting events to the SQLite history store.
	History bool `mapstructure:"history" toml:"history"`
}

// Load reads configuration from disk with the following precedence:
//  1. Environment variables (TRADUKO_ prefix, _ as separator)
//  2. The file at explicitPath if non-empty
//  3. ~/.traduko/traduko.toml
//  4. ./traduko.toml
//  5. Built-in defaults
//
// The loaded config is validated and stored in the global atomic pointer.
func Load(explicitPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")

	// Set all defaults from the default config so viper knows every key.
	setViperDefaults(v)

	// Environment variable overlay: TRADUKO_DISPATCH_SECOND_SWEEP etc.
	v.SetEnvPrefix("TRADUKO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Determine which file(s) to read.
	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".traduko"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("traduko")
	}

	if err := v.ReadInConfig(); err != nil {
		// If no config file exists we still proceed with defaults + env.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Store the resolved config file path.
	if cf := v.ConfigFileUsed(); cf != "" {
		loadedConfigFile.Store(cf)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	)); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Expand ~ in data_dir.
	cfg.Server.DataDir = expandHome(cfg.Server.DataDir)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	set(cfg)
	return cfg, nil
}

// InitConfig writes the default configuration file to ~/.traduko/traduko.toml.
// If the file already exists it is not overwritten.
func InitConfig() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("determining home directory: %w", err)
	}

	dir := filepath.Join(homeDir, ".traduko")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	path := filepath.Join(dir, DefaultConfigFilename)
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Config already exists: %s\n", path)
		return nil
	}

	cfg := DefaultConfig()
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling default config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Config written to %s\n", path)
	return nil
}

// ConfigFilePath returns the path of the config file that was loaded, or
// empty if no file was found.
func ConfigFilePath() string {
	if v, ok := loadedConfigFile.Load().(string); ok {
		return v
	}
	return ""
}

// setViperDefaults registers every known key with viper so that env var binding
// works for all fields even when no config file is present.
func setViperDefaults(v *viper.Viper) {
	d := DefaultConfig()

	// Server
	v.SetDefault("server.diag_port", d.Server.DiagPort)
	v.SetDefault("server.diag_bind", d.Server.DiagBind)
	v.SetDefault("server.log_level", d.Server.LogLevel)
	v.SetDefault("server.data_dir", d.Server.DataDir)

	// Dispatch
	v.SetDefault("dispatch.rate_limit_cooldown_seconds", d.Dispatch.RateLimitCooldownSec)
	v.SetDefault("dispatch.transient_cooldown_max_seconds", d.Dispatch.TransientCooldownMaxSec)
	v.SetDefault("dispatch.request_timeout_seconds", d.Dispatch.RequestTimeoutSec)
	v.SetDefault("dispatch.pool_timeout_seconds", d.Dispatch.PoolTimeoutSec)
	v.SetDefault("dispatch.max_text_bytes", d.Dispatch.MaxTextBytes)
	v.SetDefault("dispatch.second_sweep", d.Dispatch.SecondSweep)

	// Cache
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.max_entries", d.Cache.MaxEntries)

	// Telemetry
	v.SetDefault("telemetry.events", d.Telemetry.Events)
	v.SetDefault("telemetry.history", d.Telemetry.History)
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
