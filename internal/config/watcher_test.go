package config

import (
	"testing"
)

func TestWatchRejectsEmptyPath(t *testing.T) {
	if _, err := Watch(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestRestartOnlySections(t *testing.T) {
	base := func() *Config { return DefaultConfig() }

	if got := restartOnly(base(), base()); len(got) != 0 {
		t.Errorf("identical configs flagged sections: %v", got)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"provider model", func(c *Config) {
			p := c.Providers["ollama"]
			p.Model = "mistral:7b"
			c.Providers["ollama"] = p
		}, "providers"},
		{"cooldown", func(c *Config) { c.Dispatch.RateLimitCooldownSec = 90 }, "dispatch"},
		{"diag port", func(c *Config) { c.Server.DiagPort = 9999 }, "server.diag"},
		{"cache size", func(c *Config) { c.Cache.MaxEntries = 99 }, "cache"},
		{"history", func(c *Config) { c.Telemetry.History = !c.Telemetry.History }, "telemetry"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			old, changed := base(), base()
			tc.mutate(changed)

			got := restartOnly(old, changed)
			if len(got) != 1 || got[0] != tc.want {
				t.Errorf("restartOnly = %v, want [%s]", got, tc.want)
			}
		})
	}

	// Log level is live, never a restart section.
	live := base()
	live.Server.LogLevel = "debug"
	if got := restartOnly(base(), live); len(got) != 0 {
		t.Errorf("log level change flagged as restart-only: %v", got)
	}
}
