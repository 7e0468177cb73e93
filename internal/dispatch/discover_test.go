package dispatch

import (
	"errors"
	"testing"
	"time"

	"github.com/allaspectsdev/traduko/internal/config"
	"github.com/allaspectsdev/traduko/internal/provider"
)

func TestSpecsFromConfig(t *testing.T) {
	cfg := &config.Config{
		Providers: map[string]config.ProviderConfig{
			"deepseek": {
				Kind:    "openai-compat",
				APIBase: "https://api.deepseek.com/v1",
				KeyRef:  "env:DEEPSEEK_KEY",
				Model:   "deepseek-chat",
				Enabled: true,
				Timeout: 200,
			},
			"claude": {
				Kind:     "anthropic",
				TokenRef: "env:CLAUDE_TOKEN",
				Model:    "claude-sonnet-4",
				Enabled:  true,
			},
			"ollama": {
				Kind:    "ollama",
				APIBase: "http://localhost:11434",
				Model:   "llama3:8b",
				Enabled: true,
			},
			"disabled": {
				Kind:    "ollama",
				Enabled: false,
			},
		},
	}

	resolver := ResolverFunc(func(ref string) (string, error) {
		switch ref {
		case "env:DEEPSEEK_KEY":
			return "sk-deep", nil
		case "env:CLAUDE_TOKEN":
			return "tok-claude", nil
		}
		return "", errors.New("unknown ref")
	})

	specs := SpecsFromConfig(cfg, resolver)
	if len(specs) != 3 {
		t.Fatalf("specs = %d, want 3 (disabled provider dropped)", len(specs))
	}

	// Sorted by name: claude, deepseek, ollama.
	if specs[0].Name != "claude" || specs[1].Name != "deepseek" || specs[2].Name != "ollama" {
		t.Fatalf("unexpected order: %s %s %s", specs[0].Name, specs[1].Name, specs[2].Name)
	}

	claude := specs[0]
	if claude.CredType != CredOAuthToken || claude.Credential != "tok-claude" {
		t.Errorf("claude credential not resolved: %+v", claude)
	}
	if claude.resolveCapacity() != CapacityOAuth {
		t.Error("token ref should discover as oauth")
	}

	deepseek := specs[1]
	if deepseek.CredType != CredAPIKey || deepseek.Credential != "sk-deep" {
		t.Errorf("deepseek credential not resolved: %+v", deepseek)
	}
	if deepseek.resolveCapacity() != CapacityPaidAPI {
		t.Error("key ref should discover as paid")
	}
	if deepseek.Timeout != 200*time.Second {
		t.Errorf("timeout = %v, want 200s", deepseek.Timeout)
	}

	ollama := specs[2]
	if ollama.CredType != CredNone || ollama.resolveCapacity() != CapacityLocal {
		t.Errorf("ollama should discover as local: %+v", ollama)
	}
}

func TestSpecsFromConfigUnresolvableCredential(t *testing.T) {
	cfg := &config.Config{
		Providers: map[string]config.ProviderConfig{
			"deepseek": {
				Kind:    "openai-compat",
				KeyRef:  "keyring://traduko/deepseek",
				Model:   "deepseek-chat",
				Enabled: true,
			},
		},
	}

	resolver := ResolverFunc(func(string) (string, error) {
		return "", errors.New("keychain locked")
	})

	specs := SpecsFromConfig(cfg, resolver)
	if len(specs) != 1 {
		t.Fatalf("specs = %d, want 1", len(specs))
	}
	// Empty credential: the pool builder skips it later, the discovery
	// layer just records the fact.
	if specs[0].Credential != "" || specs[0].CredType != CredAPIKey {
		t.Errorf("unexpected spec: %+v", specs[0])
	}
}

func TestSpecsFromConfigCapacityOverride(t *testing.T) {
	cfg := &config.Config{
		Providers: map[string]config.ProviderConfig{
			"gateway": {
				Kind:     "openai-compat",
				KeyRef:   "env:K",
				Model:    "m",
				Capacity: "local",
				Enabled:  true,
			},
		},
	}
	resolver := ResolverFunc(func(string) (string, error) { return "sk", nil })

	specs := SpecsFromConfig(cfg, resolver)
	if len(specs) != 1 {
		t.Fatalf("specs = %d, want 1", len(specs))
	}
	if specs[0].resolveCapacity() != CapacityLocal {
		t.Error("explicit capacity override should win over credential rule")
	}
}

func TestSpecsFromConfigRequestTimeout(t *testing.T) {
	cfg := &config.Config{
		Dispatch: config.DispatchConfig{RequestTimeoutSec: 300},
		Providers: map[string]config.ProviderConfig{
			"deepseek": {
				Kind:    "openai-compat",
				KeyRef:  "env:K",
				Model:   "deepseek-chat",
				Enabled: true,
			},
			"slow": {
				Kind:    "openai-compat",
				KeyRef:  "env:K",
				Model:   "m",
				Enabled: true,
				Timeout: 600,
			},
		},
	}
	resolver := ResolverFunc(func(string) (string, error) { return "sk", nil })

	specs := SpecsFromConfig(cfg, resolver)
	if len(specs) != 2 {
		t.Fatalf("specs = %d, want 2", len(specs))
	}

	// Sorted: deepseek, slow. The dispatch-wide timeout covers providers
	// without one of their own; an explicit provider timeout wins.
	if specs[0].Timeout != 300*time.Second {
		t.Errorf("deepseek timeout = %v, want dispatch-wide 5m", specs[0].Timeout)
	}
	if specs[1].Timeout != 600*time.Second {
		t.Errorf("slow timeout = %v, want provider's own 10m", specs[1].Timeout)
	}
}

func TestParseCapacity(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want CapacityClass
		ok   bool
	}{
		{"paid", CapacityPaidAPI, true},
		{"oauth", CapacityOAuth, true},
		{"local", CapacityLocal, true},
		{"premium", CapacityLocal, false},
	} {
		got, err := ParseCapacity(tc.in)
		if (err == nil) != tc.ok {
			t.Errorf("%q: error = %v, ok = %v", tc.in, err, tc.ok)
		}
		if err == nil && got != tc.want {
			t.Errorf("%q: got %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestPolicyFromConfig(t *testing.T) {
	policy := PolicyFromConfig(config.DispatchConfig{
		RateLimitCooldownSec:    45,
		TransientCooldownMaxSec: 300,
	})
	if policy.RateLimit != 45*time.Second {
		t.Errorf("RateLimit = %v", policy.RateLimit)
	}
	if policy.TransientMax != 300*time.Second {
		t.Errorf("TransientMax = %v", policy.TransientMax)
	}
	if policy.TransientBase != 60*time.Second {
		t.Errorf("TransientBase should keep its default, got %v", policy.TransientBase)
	}

	// Zeroes keep defaults.
	def := PolicyFromConfig(config.DispatchConfig{})
	if def != DefaultCooldownPolicy() {
		t.Errorf("empty config should give default policy, got %+v", def)
	}
}

func TestSettingsFromConfig(t *testing.T) {
	s := SettingsFromConfig(config.DispatchConfig{
		MaxTextBytes:   1024,
		PoolTimeoutSec: 60,
		SecondSweep:    true,
	})
	if s.MaxTextBytes != 1024 || s.PoolTimeout != time.Minute || !s.SecondSweep {
		t.Errorf("unexpected settings: %+v", s)
	}
}

func TestIsLocalKind(t *testing.T) {
	if !isLocalKind(provider.KindOllama) || !isLocalKind(provider.KindLlamaCpp) {
		t.Error("ollama and llamacpp are local kinds")
	}
	if isLocalKind(provider.KindOpenAICompat) || isLocalKind(provider.KindAnthropic) {
		t.Error("remote kinds misclassified as local")
	}
}
