package dispatch

import (
	"fmt"
	"sort"
	"time"

	"github.com/allaspectsdev/traduko/internal/config"
	"github.com/allaspectsdev/traduko/internal/provider"
	"github.com/allaspectsdev/traduko/internal/vault"
)

// ParseCapacity maps a config capacity string to its class.
func ParseCapacity(s string) (CapacityClass, error) {
	switch s {
	case "paid":
		return CapacityPaidAPI, nil
	case "oauth":
		return CapacityOAuth, nil
	case "local":
		return CapacityLocal, nil
	default:
		return CapacityLocal, fmt.Errorf("unknown capacity class %q (want paid, oauth, or local)", s)
	}
}

// CredentialResolver resolves a key reference to a secret. *vault.Vault
// satisfies it; tests substitute a func.
type CredentialResolver interface {
	ResolveKeyRef(ref string) (string, error)
}

// ResolverFunc adapts a plain function to CredentialResolver.
type ResolverFunc func(ref string) (string, error)

func (f ResolverFunc) ResolveKeyRef(ref string) (string, error) { return f(ref) }

// SpecsFromConfig turns the configured provider map into ordered pool
// specs, resolving credentials through the vault. Providers are ordered by
// name so pool layout is stable across runs. A provider whose credential
// cannot be resolved still produces a spec with an empty credential; the
// pool builder decides whether that is fatal for the provider.
func SpecsFromConfig(cfg *config.Config, resolver CredentialResolver) []ProviderSpec {
	if resolver == nil {
		resolver = vault.New()
	}

	names := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	var specs []ProviderSpec
	for _, name := range names {
		pc := cfg.Providers[name]
		if !pc.Enabled {
			continue
		}

		// A provider's own timeout wins; otherwise the dispatch-wide
		// request timeout applies, then the built-in default.
		timeout := pc.TimeoutDuration()
		if pc.Timeout <= 0 && cfg.Dispatch.RequestTimeoutSec > 0 {
			timeout = time.Duration(cfg.Dispatch.RequestTimeoutSec) * time.Second
		}

		spec := ProviderSpec{
			Name:      name,
			Kind:      provider.Kind(pc.Kind),
			BaseURL:   pc.APIBase,
			Model:     pc.Model,
			Instances: pc.Instances,
			Timeout:   timeout,
		}

		switch {
		case pc.KeyRef != "":
			spec.CredType = CredAPIKey
			if secret, err := resolver.ResolveKeyRef(pc.KeyRef); err == nil {
				spec.Credential = secret
			}
		case pc.TokenRef != "":
			spec.CredType = CredOAuthToken
			if secret, err := resolver.ResolveKeyRef(pc.TokenRef); err == nil {
				spec.Credential = secret
			}
		default:
			spec.CredType = CredNone
		}

		if pc.Capacity != "" {
			if class, err := ParseCapacity(pc.Capacity); err == nil {
				spec.Capacity = &class
			}
		}

		specs = append(specs, spec)
	}
	return specs
}

// PolicyFromConfig maps dispatch config to a cooldown policy, falling back
// to defaults for any unset duration.
func PolicyFromConfig(dc config.DispatchConfig) CooldownPolicy {
	policy := DefaultCooldownPolicy()
	if dc.RateLimitCooldownSec > 0 {
		policy.RateLimit = time.Duration(dc.RateLimitCooldownSec) * time.Second
	}
	if dc.TransientCooldownMaxSec > 0 {
		policy.TransientMax = time.Duration(dc.TransientCooldownMaxSec) * time.Second
	}
	return policy
}

// SettingsFromConfig maps dispatch config to coordinator settings.
func SettingsFromConfig(dc config.DispatchConfig) Settings {
	s := Settings{SecondSweep: dc.SecondSweep}
	if dc.MaxTextBytes > 0 {
		s.MaxTextBytes = dc.MaxTextBytes
	}
	if dc.PoolTimeoutSec > 0 {
		s.PoolTimeout = time.Duration(dc.PoolTimeoutSec) * time.Second
	}
	return s
}
