package dispatch

import (
	"sync"
	"time"

	"github.com/allaspectsdev/traduko/internal/provider"
)

// CapacityClass buckets instances by cost/throughput characteristics. The
// class decides both the instance count minted per provider and the implied
// scheduling weight: a paid API gets three pool entries, a local model one,
// and plain round-robin over the flat pool yields the weighted traffic split.
type CapacityClass int

const (
	// CapacityPaidAPI is a metered commercial endpoint.
	CapacityPaidAPI CapacityClass = iota
	// CapacityOAuth is a session-token endpoint with softer limits.
	CapacityOAuth
	// CapacityLocal is an on-host model.
	CapacityLocal
)

// String returns the class name used in config files and telemetry.
func (c CapacityClass) String() string {
	switch c {
	case CapacityPaidAPI:
		return "paid"
	case CapacityOAuth:
		return "oauth"
	case CapacityLocal:
		return "local"
	default:
		return "unknown"
	}
}

// Instances returns the default number of pool entries minted per provider
// of this class.
func (c CapacityClass) Instances() int {
	switch c {
	case CapacityPaidAPI:
		return 3
	case CapacityOAuth:
		return 2
	default:
		return 1
	}
}

// Weight returns the nominal scheduling weight of the class. It is
// informational: the actual weighting is encoded by Instances() repetition
// in the pool.
func (c CapacityClass) Weight() int {
	switch c {
	case CapacityPaidAPI:
		return 10
	case CapacityOAuth:
		return 5
	default:
		return 1
	}
}

// CooldownPolicy holds the tunable cooldown durations applied on failure.
type CooldownPolicy struct {
	// RateLimit is the flat cooldown after a rate-limit response. Provider
	// rate windows are short; one flat step past the window usually clears it.
	RateLimit time.Duration
	// TransientBase seeds the capped exponential back-off for network,
	// server-error, and timeout failures.
	TransientBase time.Duration
	// TransientMax caps the exponential back-off.
	TransientMax time.Duration
}

// DefaultCooldownPolicy returns the standard cooldown durations.
func DefaultCooldownPolicy() CooldownPolicy {
	return CooldownPolicy{
		RateLimit:     30 * time.Second,
		TransientBase: 60 * time.Second,
		TransientMax:  600 * time.Second,
	}
}

// InstanceConfig is the immutable description of one pool participant.
type InstanceConfig struct {
	ID       string
	Provider string // provider name from configuration, e.g. "deepseek"
	Kind     provider.Kind
	Capacity CapacityClass
	Endpoint string
	Model    string
	Timeout  time.Duration
}

// Instance binds one adapter to its mutable health state. The pool owns
// every Instance for the process lifetime; state writes happen only from
// the goroutine that concluded an attempt, under the instance mutex.
type Instance struct {
	cfg     InstanceConfig
	adapter provider.Adapter
	policy  CooldownPolicy

	mu                  sync.Mutex
	availableFrom       time.Time
	permanentlyDown     bool
	consecutiveFailures int
	totalAttempts       int64
	totalSuccesses      int64
	tokensIn            int64
	tokensOut           int64
	costUSD             float64
	cooledAnnounced     bool
}

// newInstance creates an Instance with healthy initial state.
func newInstance(cfg InstanceConfig, adapter provider.Adapter, policy CooldownPolicy) *Instance {
	return &Instance{cfg: cfg, adapter: adapter, policy: policy}
}

// ID returns the pool-unique instance identifier.
func (i *Instance) ID() string { return i.cfg.ID }

// Config returns the immutable instance description.
func (i *Instance) Config() InstanceConfig { return i.cfg }

// IsEligible reports whether the instance may be attempted at now.
func (i *Instance) IsEligible(now time.Time) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return !i.permanentlyDown && !i.availableFrom.After(now)
}

// MarkSuccess records a successful attempt: the failure streak resets and
// any pending cooldown is lifted.
func (i *Instance) MarkSuccess(cost provider.CostInfo) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.totalAttempts++
	i.totalSuccesses++
	i.consecutiveFailures = 0
	i.availableFrom = time.Time{}
	i.cooledAnnounced = false
	i.tokensIn += int64(cost.TokensIn)
	i.tokensOut += int64(cost.TokensOut)
	i.costUSD += cost.USD
}

// MarkFailure records a failed attempt and applies the kind-appropriate
// cooldown. It returns the cooldown applied (0 for blameless kinds, a
// negative value never) and whether the instance is now permanently down.
func (i *Instance) MarkFailure(kind provider.ErrKind, now time.Time) (time.Duration, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.totalAttempts++
	i.consecutiveFailures++

	var cooldown time.Duration
	switch kind {
	case provider.ErrRateLimited:
		cooldown = i.policy.RateLimit
	case provider.ErrNetwork, provider.ErrTransient, provider.ErrTimeout:
		cooldown = transientCooldown(i.policy, i.consecutiveFailures)
	case provider.ErrAuthFailed:
		i.permanentlyDown = true
		i.cooledAnnounced = true
		return 0, true
	default:
		// BadRequest / EmptyResult: the input or the model is at fault,
		// not the instance. No cooldown.
		return 0, false
	}

	until := now.Add(cooldown)
	if until.After(i.availableFrom) {
		i.availableFrom = until
	}
	i.cooledAnnounced = true
	return cooldown, false
}

// transientCooldown computes base × 2^(failures−1) capped at max.
func transientCooldown(p CooldownPolicy, failures int) time.Duration {
	d := p.TransientBase
	for n := 1; n < failures; n++ {
		d *= 2
		if d >= p.TransientMax {
			return p.TransientMax
		}
	}
	if d > p.TransientMax {
		return p.TransientMax
	}
	return d
}

// observeRestored reports true exactly once when the instance has come back
// out of a previously announced cooldown. The dispatcher uses it to emit
// the instance_restored event.
func (i *Instance) observeRestored(now time.Time) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.cooledAnnounced && !i.permanentlyDown && !i.availableFrom.After(now) {
		i.cooledAnnounced = false
		return true
	}
	return false
}

// InstanceSnapshot is a point-in-time read-only view of one instance,
// serialisable for diagnostics.
type InstanceSnapshot struct {
	ID                  string    `json:"id"`
	Provider            string    `json:"provider"`
	Kind                string    `json:"kind"`
	Capacity            string    `json:"capacity"`
	Model               string    `json:"model"`
	InCooldown          bool      `json:"in_cooldown"`
	PermanentlyDown     bool      `json:"permanently_down"`
	AvailableFrom       time.Time `json:"available_from,omitzero"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	TotalAttempts       int64     `json:"total_attempts"`
	TotalSuccesses      int64     `json:"total_successes"`
	TokensIn            int64     `json:"tokens_in"`
	TokensOut           int64     `json:"tokens_out"`
	CostUSD             float64   `json:"cost_usd"`
}

// Snapshot captures the instance's current state.
func (i *Instance) Snapshot(now time.Time) InstanceSnapshot {
	i.mu.Lock()
	defer i.mu.Unlock()
	return InstanceSnapshot{
		ID:                  i.cfg.ID,
		Provider:            i.cfg.Provider,
		Kind:                string(i.cfg.Kind),
		Capacity:            i.cfg.Capacity.String(),
		Model:               i.cfg.Model,
		InCooldown:          i.permanentlyDown || i.availableFrom.After(now),
		PermanentlyDown:     i.permanentlyDown,
		AvailableFrom:       i.availableFrom,
		ConsecutiveFailures: i.consecutiveFailures,
		TotalAttempts:       i.totalAttempts,
		TotalSuccesses:      i.totalSuccesses,
		TokensIn:            i.tokensIn,
		TokensOut:           i.tokensOut,
		CostUSD:             i.costUSD,
	}
}
