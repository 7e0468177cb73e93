package dispatch

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/allaspectsdev/traduko/internal/provider"
	"github.com/allaspectsdev/traduko/internal/telemetry"
)

// CredentialType says how a provider authenticates, which in turn decides
// its capacity class when none is configured explicitly.
type CredentialType int

const (
	// CredNone means no credential: local endpoints.
	CredNone CredentialType = iota
	// CredAPIKey is an explicit paid API key.
	CredAPIKey
	// CredOAuthToken is a refreshable session token.
	CredOAuthToken
)

// ProviderSpec describes one configured provider the builder turns into
// pool instances.
type ProviderSpec struct {
	Name       string
	Kind       provider.Kind
	BaseURL    string
	Model      string
	Credential string
	CredType   CredentialType
	// Capacity overrides the credential-derived class when non-nil.
	Capacity *CapacityClass
	// Instances overrides the class default instance count when > 0.
	Instances int
	Timeout   time.Duration
}

// resolveCapacity applies the discovery rule: explicit API credential means
// paid, a session token means oauth, everything else (local endpoints,
// credential-free kinds) is local.
func (s ProviderSpec) resolveCapacity() CapacityClass {
	if s.Capacity != nil {
		return *s.Capacity
	}
	switch {
	case s.CredType == CredAPIKey && s.Credential != "":
		return CapacityPaidAPI
	case s.CredType == CredOAuthToken && s.Credential != "":
		return CapacityOAuth
	default:
		return CapacityLocal
	}
}

// isLocalKind reports whether the provider family runs on this host and
// needs no credential.
func isLocalKind(k provider.Kind) bool {
	return k == provider.KindOllama || k == provider.KindLlamaCpp
}

// Pool is the ordered, static collection of instances. Ordering is fixed at
// build time: descending capacity class, then discovery order. The cursor
// is the selector's only mutable pool-level state; races on it across
// concurrent jobs are benign because the scheduling goal is aggregate
// balance.
type Pool struct {
	instances []*Instance
	cursor    atomic.Uint64
	policy    CooldownPolicy
}

// NewPool wraps pre-built instances. Used by tests; production pools come
// from Build.
func NewPool(instances []*Instance, policy CooldownPolicy) *Pool {
	return &Pool{instances: instances, policy: policy}
}

// Len returns the number of instances.
func (p *Pool) Len() int { return len(p.instances) }

// Instances returns the pool's instances in order. The slice is shared;
// callers must not mutate it.
func (p *Pool) Instances() []*Instance { return p.instances }

// Snapshot captures every instance's state in pool order.
func (p *Pool) Snapshot(now time.Time) []InstanceSnapshot {
	out := make([]InstanceSnapshot, 0, len(p.instances))
	for _, inst := range p.instances {
		out = append(out, inst.Snapshot(now))
	}
	return out
}

// Build discovers capacity classes, mints instances, and assembles the
// pool. A single misconfigured provider is skipped with a telemetry event;
// only an entirely empty pool is fatal.
func Build(specs []ProviderSpec, policy CooldownPolicy, sink telemetry.Sink) (*Pool, error) {
	if sink == nil {
		sink = telemetry.Nop{}
	}

	type entry struct {
		inst  *Instance
		order int
	}
	var entries []entry

	for order, spec := range specs {
		if !spec.Kind.Valid() {
			sink.Emit(telemetry.Event{
				Kind: telemetry.ProviderSkipped, TS: time.Now(),
				Details: map[string]any{"provider": spec.Name, "reason": "unknown kind " + string(spec.Kind)},
			})
			continue
		}
		if spec.Credential == "" && !isLocalKind(spec.Kind) {
			sink.Emit(telemetry.Event{
				Kind: telemetry.ProviderSkipped, TS: time.Now(),
				Details: map[string]any{"provider": spec.Name, "reason": "no credential"},
			})
			continue
		}

		capacity := spec.resolveCapacity()
		count := spec.Instances
		if count <= 0 {
			count = capacity.Instances()
		}

		for n := 1; n <= count; n++ {
			id := fmt.Sprintf("%s-%d", strings.ToLower(spec.Name), n)
			cfg := InstanceConfig{
				ID:       id,
				Provider: spec.Name,
				Kind:     spec.Kind,
				Capacity: capacity,
				Endpoint: spec.BaseURL,
				Model:    spec.Model,
				Timeout:  spec.Timeout,
			}
			adapter, err := provider.New(spec.Kind, provider.Config{
				BaseURL: spec.BaseURL,
				APIKey:  spec.Credential,
				Model:   spec.Model,
				Timeout: spec.Timeout,
			})
			if err != nil {
				sink.Emit(telemetry.Event{
					Kind: telemetry.ProviderSkipped, TS: time.Now(),
					Details: map[string]any{"provider": spec.Name, "reason": err.Error()},
				})
				break
			}
			entries = append(entries, entry{inst: newInstance(cfg, adapter, policy), order: order})
		}
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("dispatch: no usable provider instances configured")
	}

	// Descending capacity class, then discovery order within a class.
	sort.SliceStable(entries, func(a, b int) bool {
		ca, cb := entries[a].inst.cfg.Capacity, entries[b].inst.cfg.Capacity
		if ca != cb {
			return ca < cb // PaidAPI < OAuth < Local in enum order = descending capacity
		}
		return entries[a].order < entries[b].order
	})

	instances := make([]*Instance, len(entries))
	ids := make([]string, len(entries))
	for i, e := range entries {
		instances[i] = e.inst
		ids[i] = e.inst.ID()
	}

	sink.Emit(telemetry.Event{
		Kind: telemetry.PoolReady, TS: time.Now(),
		Details: map[string]any{"instances": ids},
	})

	return &Pool{instances: instances, policy: policy}, nil
}
