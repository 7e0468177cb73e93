package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := validate(cfg); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if cfg.Server.DiagPort != DefaultDiagPort {
		t.Errorf("diag port = %d", cfg.Server.DiagPort)
	}
	if len(cfg.Providers) == 0 {
		t.Error("default config should ship example providers")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			"port out of range",
			func(c *Config) { c.Server.DiagPort = 99999 },
			"diag_port",
		},
		{
			"unknown log level",
			func(c *Config) { c.Server.LogLevel = "loud" },
			"log_level",
		},
		{
			"empty data dir",
			func(c *Config) { c.Server.DataDir = "" },
			"data_dir",
		},
		{
			"unknown capacity",
			func(c *Config) {
				p := c.Providers["deepseek"]
				p.Capacity = "premium"
				c.Providers["deepseek"] = p
			},
			"capacity",
		},
		{
			"negative cooldown",
			func(c *Config) { c.Dispatch.RateLimitCooldownSec = -1 },
			"rate_limit_cooldown_seconds",
		},
		{
			"both credential refs",
			func(c *Config) {
				p := c.Providers["deepseek"]
				p.TokenRef = "env:T"
				c.Providers["deepseek"] = p
			},
			"mutually exclusive",
		},
		{
			"negative cache size",
			func(c *Config) { c.Cache.MaxEntries = -5 },
			"max_entries",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q should mention %q", err, tc.want)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "traduko.toml")
	content := `
[server]
diag_port = 9999
log_level = "debug"
data_dir = "` + dir + `"

[dispatch]
rate_limit_cooldown_seconds = 45
second_sweep = true

[providers.ollama]
kind = "ollama"
api_base = "http://localhost:11434"
model = "mistral:7b"
enabled = true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.DiagPort != 9999 {
		t.Errorf("diag_port = %d", cfg.Server.DiagPort)
	}
	if cfg.Server.LogLevel != "debug" {
		t.Errorf("log_level = %q", cfg.Server.LogLevel)
	}
	if cfg.Dispatch.RateLimitCooldownSec != 45 {
		t.Errorf("rate_limit_cooldown_seconds = %d", cfg.Dispatch.RateLimitCooldownSec)
	}
	if !cfg.Dispatch.SecondSweep {
		t.Error("second_sweep should be true")
	}

	// Unset keys keep defaults.
	if cfg.Dispatch.PoolTimeoutSec != DefaultPoolTimeout {
		t.Errorf("pool_timeout_seconds = %d, want default %d", cfg.Dispatch.PoolTimeoutSec, DefaultPoolTimeout)
	}

	ollama, ok := cfg.Providers["ollama"]
	if !ok {
		t.Fatal("ollama provider missing")
	}
	if ollama.Model != "mistral:7b" {
		t.Errorf("model = %q", ollama.Model)
	}

	// Global pointer updated.
	if Get().Server.DiagPort != 9999 {
		t.Error("Load should store the config globally")
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "traduko.toml")
	os.WriteFile(path, []byte("[server]\ndiag_port = -4\n"), 0o600)

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation failure")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("TRADUKO_SERVER_LOG_LEVEL", "warn")

	dir := t.TempDir()
	path := filepath.Join(dir, "traduko.toml")
	os.WriteFile(path, []byte(""), 0o600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.LogLevel != "warn" {
		t.Errorf("env override ignored: log_level = %q", cfg.Server.LogLevel)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	if got := expandHome("~/.traduko"); got != filepath.Join(home, ".traduko") {
		t.Errorf("expandHome = %q", got)
	}
	if got := expandHome("/abs/path"); got != "/abs/path" {
		t.Errorf("absolute path should pass through, got %q", got)
	}
}

func TestTimeoutDuration(t *testing.T) {
	p := ProviderConfig{Timeout: 240}
	if p.TimeoutDuration().Seconds() != 240 {
		t.Errorf("TimeoutDuration = %v", p.TimeoutDuration())
	}
	if (ProviderConfig{}).TimeoutDuration().Seconds() != DefaultRequestTimeout {
		t.Error("zero timeout should fall back to the default")
	}
}
