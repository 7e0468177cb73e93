package config

// DefaultDiagBind is the default diagnostics bind address (localhost only).
const DefaultDiagBind = "127.0.0.1"

// DefaultDiagPort is the default port for the diagnostics server.
const DefaultDiagPort = 7679

// DefaultLogLevel is the default log level.
const DefaultLogLevel = "info"

// DefaultDataDir is the default data directory (before tilde expansion).
const DefaultDataDir = "~/.traduko"

// DefaultConfigFilename is the name of the config file.
const DefaultConfigFilename = "traduko.toml"

// DefaultRateLimitCooldown is the flat cooldown after a rate-limit response,
// in seconds.
const DefaultRateLimitCooldown = 30

// DefaultTransientCooldownMax caps the exponential cooldown for transient
// failures, in seconds.
const DefaultTransientCooldownMax = 600

// DefaultRequestTimeout is the per-attempt timeout floor in seconds.
// Shorter values cause systemic timeouts on long paragraphs.
const DefaultRequestTimeout = 180

// DefaultPoolTimeout is the whole-job deadline in seconds when the caller
// sets none.
const DefaultPoolTimeout = 900

// DefaultMaxTextBytes caps the source segment size.
const DefaultMaxTextBytes = 32 << 10

// DefaultCacheMaxEntries is the in-memory translation cache size.
const DefaultCacheMaxEntries = 4096

// ValidLogLevels lists the allowed log level values.
var ValidLogLevels = []string{"trace", "debug", "info", "warn", "error", "fatal"}

// ValidCapacities lists the allowed capacity override values.
var ValidCapacities = []string{"", "paid", "oauth", "local"}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			DiagBind: DefaultDiagBind,
			DiagPort: DefaultDiagPort,
			LogLevel: DefaultLogLevel,
			DataDir:  DefaultDataDir,
		},
		Providers: map[string]ProviderConfig{
			"deepseek": {
				Kind:    "openai-compat",
				APIBase: "https://api.deepseek.com/v1",
				KeyRef:  "keyring://traduko/deepseek",
				Model:   "deepseek-chat",
				Enabled: true,
				Timeout: DefaultRequestTimeout,
			},
			"anthropic": {
				Kind:    "anthropic",
				APIBase: "https://api.anthropic.com/v1",
				KeyRef:  "keyring://traduko/anthropic",
				Model:   "claude-sonnet-4",
				Enabled: true,
				Timeout: DefaultRequestTimeout,
			},
			"ollama": {
				Kind:    "ollama",
				APIBase: "http://localhost:11434",
				Model:   "llama3:8b",
				Enabled: false,
				Timeout: DefaultRequestTimeout,
			},
		},
		Dispatch: DispatchConfig{
			RateLimitCooldownSec:    DefaultRateLimitCooldown,
			TransientCooldownMaxSec: DefaultTransientCooldownMax,
			RequestTimeoutSec:       DefaultRequestTimeout,
			PoolTimeoutSec:          DefaultPoolTimeout,
			MaxTextBytes:            DefaultMaxTextBytes,
			SecondSweep:             false,
		},
		Cache: CacheConfig{
			Enabled:    true,
			MaxEntries: DefaultCacheMaxEntries,
		},
		Telemetry: TelemetryConfig{
			Events:  true,
			History: true,
		},
	}
}
