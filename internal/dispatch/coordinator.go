// Package dispatch implements the multi-provider translation coordinator:
// a concurrent dispatcher fronting a pool of remote translation back-ends.
// Callers issue Translate without naming a provider; the coordinator picks
// an eligible instance, invokes it, classifies the result, and fails over
// to siblings until success or exhaustion.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/allaspectsdev/traduko/internal/provider"
	"github.com/allaspectsdev/traduko/internal/telemetry"
)

// DefaultMaxTextBytes caps the source segment size. Longer input fails
// synchronously; every pool adapter would reject it anyway.
const DefaultMaxTextBytes = 32 << 10

// DefaultPoolTimeout bounds a whole job when the caller sets no deadline.
const DefaultPoolTimeout = 15 * time.Minute

// Settings tune a Coordinator at construction.
type Settings struct {
	// MaxTextBytes caps input length; 0 means DefaultMaxTextBytes.
	MaxTextBytes int
	// PoolTimeout is the job deadline applied when the caller omits one;
	// 0 means DefaultPoolTimeout.
	PoolTimeout time.Duration
	// SecondSweep allows one clearing of the attempted set per job once
	// every instance has been tried, provided some instance has exited
	// cooldown and the attempt budget permits.
	SecondSweep bool
}

// Options adjust one Translate call.
type Options struct {
	// MaxAttempts caps retries; 0 means the pool size (2× pool size when
	// the second sweep is enabled).
	MaxAttempts int
	// Deadline is an absolute bound shared across all retries. Zero means
	// now + the coordinator's pool timeout.
	Deadline time.Time
	// ExcludeKinds omits provider families from this call.
	ExcludeKinds []provider.Kind
	// PreferKinds demotes all other families behind the listed ones in
	// selection order.
	PreferKinds []provider.Kind
	// Hint is an optional context hint carried into the translation prompt.
	Hint string
}

// Coordinator is the public entry point. It is re-entrant: any number of
// Translate calls may run concurrently against the same pool.
type Coordinator struct {
	pool        *Pool
	sink        telemetry.Sink
	logger      zerolog.Logger
	maxText     int
	poolTimeout time.Duration
	secondSweep bool
	now         func() time.Time
}

// New creates a Coordinator over the given pool.
func New(pool *Pool, sink telemetry.Sink, logger zerolog.Logger, settings Settings) *Coordinator {
	if sink == nil {
		sink = telemetry.Nop{}
	}
	c := &Coordinator{
		pool:        pool,
		sink:        sink,
		logger:      logger.With().Str("component", "dispatch").Logger(),
		maxText:     settings.MaxTextBytes,
		poolTimeout: settings.PoolTimeout,
		secondSweep: settings.SecondSweep,
		now:         time.Now,
	}
	if c.maxText <= 0 {
		c.maxText = DefaultMaxTextBytes
	}
	if c.poolTimeout <= 0 {
		c.poolTimeout = DefaultPoolTimeout
	}
	return c
}

// Translate dispatches one translation across the pool. Empty sourceLang
// means provider auto-detect. The error, when non-nil, is one of
// ErrInputTooLong, ErrNoEligibleInstance, ErrCancelled, or *ExhaustedError.
func (c *Coordinator) Translate(ctx context.Context, text, sourceLang, targetLang string, opts Options) (string, error) {
	if len(text) > c.maxText {
		return "", fmt.Errorf("%w: %d bytes (limit %d)", ErrInputTooLong, len(text), c.maxText)
	}
	if c.pool.Len() == 0 {
		return "", ErrNoEligibleInstance
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = c.pool.Len()
		if c.secondSweep {
			maxAttempts *= 2
		}
	}

	deadline := opts.Deadline
	if deadline.IsZero() {
		deadline = c.now().Add(c.poolTimeout)
	}

	req := &provider.Request{
		Text:       text,
		SourceLang: sourceLang,
		TargetLang: targetLang,
		Hint:       opts.Hint,
	}
	j := newJob(req, deadline, maxAttempts, opts)

	for j.attemptCount < j.maxAttempts {
		now := c.now()
		if !now.Before(j.deadline) {
			break
		}
		if err := ctx.Err(); err != nil {
			c.emit(telemetry.Event{
				Kind: telemetry.JobCancelled, Job: j.id, TS: now,
				Details: terminalDetails(j, map[string]any{"attempts": j.attemptCount}),
			})
			return "", fmt.Errorf("%w: %v", ErrCancelled, err)
		}

		inst, ok := c.pool.next(j, now)
		if !ok {
			if c.secondSweep && j.sweeps == 0 && j.attemptCount > 0 && c.pool.anyEligible(now) {
				j.attempted = make(map[string]struct{})
				j.sweeps++
				continue
			}
			break
		}

		if inst.observeRestored(now) {
			c.emit(telemetry.Event{Kind: telemetry.InstanceRestored, Instance: inst.ID(), Job: j.id, TS: now})
		}

		text, done, err := c.attempt(ctx, j, inst)
		if done {
			return text, err
		}
	}

	c.emit(telemetry.Event{
		Kind: telemetry.JobExhausted, Job: j.id, TS: c.now(),
		Details: terminalDetails(j, map[string]any{"attempts": j.attemptCount}),
	})

	if j.attemptCount == 0 {
		return "", ErrNoEligibleInstance
	}
	return "", &ExhaustedError{Attempts: j.attemptCount, Kinds: j.failureKinds, LastErr: j.lastErr}
}

// attempt runs one invocation against one instance. done means the job is
// finished (success, terminal failure, or cancellation); otherwise the
// caller keeps looping.
func (c *Coordinator) attempt(ctx context.Context, j *job, inst *Instance) (string, bool, error) {
	start := c.now()
	j.attemptCount++
	j.attempted[inst.ID()] = struct{}{}

	c.emit(telemetry.Event{
		Kind: telemetry.AttemptStarted, Instance: inst.ID(), Job: j.id, TS: start,
		Details: map[string]any{"attempt": j.attemptCount, "provider": inst.cfg.Provider},
	})

	// Per-attempt bound: the instance timeout, shortened by whatever is
	// left of the job deadline.
	attemptCtx, cancel := context.WithDeadline(ctx, earlierOf(start.Add(attemptTimeout(inst)), j.deadline))
	translated, cost, err := inst.adapter.Translate(attemptCtx, j.req)
	cancel()

	if err == nil {
		inst.MarkSuccess(cost)
		latency := c.now().Sub(start)
		c.emit(telemetry.Event{
			Kind: telemetry.AttemptSucceeded, Instance: inst.ID(), Job: j.id, TS: c.now(),
			Details: map[string]any{
				"latency_ms": latency.Milliseconds(),
				"tokens_in":  cost.TokensIn,
				"tokens_out": cost.TokensOut,
				"cost_usd":   cost.USD,
			},
		})
		c.emit(telemetry.Event{
			Kind: telemetry.JobSucceeded, Instance: inst.ID(), Job: j.id, TS: c.now(),
			Details: terminalDetails(j, nil),
		})
		return translated, true, nil
	}

	kind := provider.KindOf(err)
	now := c.now()
	cooldown, permanent := inst.MarkFailure(kind, now)
	j.recordFailure(kind, err)

	c.emit(telemetry.Event{
		Kind: telemetry.AttemptFailed, Instance: inst.ID(), Job: j.id, TS: now,
		Details: map[string]any{"error_kind": kind.String(), "error": err.Error()},
	})
	c.logger.Warn().Str("instance", inst.ID()).Str("job", j.id).
		Str("kind", kind.String()).Err(err).Msg("attempt failed")

	if cooldown > 0 || permanent {
		details := map[string]any{"error_kind": kind.String()}
		if permanent {
			details["until"] = "infinite"
		} else {
			details["until"] = now.Add(cooldown)
		}
		c.emit(telemetry.Event{Kind: telemetry.InstanceCooled, Instance: inst.ID(), Job: j.id, TS: now, Details: details})
	}

	// Caller cancellation ends the job regardless of retry budget.
	if ctx.Err() != nil {
		c.emit(telemetry.Event{
			Kind: telemetry.JobCancelled, Job: j.id, TS: c.now(),
			Details: terminalDetails(j, map[string]any{"attempts": j.attemptCount}),
		})
		return "", true, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	}

	// A malformed input fails the same way everywhere. Terminal.
	if kind == provider.ErrBadRequest {
		c.emit(telemetry.Event{
			Kind: telemetry.JobExhausted, Job: j.id, TS: c.now(),
			Details: terminalDetails(j, map[string]any{"attempts": j.attemptCount, "terminal": kind.String()}),
		})
		return "", true, &ExhaustedError{Attempts: j.attemptCount, Kinds: j.failureKinds, LastErr: err}
	}

	return "", false, nil
}

func (c *Coordinator) emit(ev telemetry.Event) { c.sink.Emit(ev) }

// terminalDetails tags a job-terminal event with the language pair so
// history consumers see the request shape without joining attempt rows.
func terminalDetails(j *job, extra map[string]any) map[string]any {
	d := map[string]any{
		"source_lang": j.req.SourceLang,
		"target_lang": j.req.TargetLang,
	}
	for k, v := range extra {
		d[k] = v
	}
	return d
}

// attemptTimeout applies the 180 s floor to the instance's configured
// per-attempt timeout.
func attemptTimeout(inst *Instance) time.Duration {
	d := inst.cfg.Timeout
	if d < provider.MinTimeout {
		return provider.MinTimeout
	}
	return d
}

func earlierOf(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

// PoolEntry is the read-only diagnostic view of one pool slot.
type PoolEntry struct {
	InstanceID    string    `json:"instance_id"`
	Provider      string    `json:"provider"`
	Kind          string    `json:"kind"`
	Capacity      string    `json:"capacity"`
	AvailableFrom time.Time `json:"available_from,omitzero"`
}

// PoolDescription returns a snapshot of the pool's composition in order.
func (c *Coordinator) PoolDescription() []PoolEntry {
	now := c.now()
	snaps := c.pool.Snapshot(now)
	out := make([]PoolEntry, len(snaps))
	for i, s := range snaps {
		out[i] = PoolEntry{
			InstanceID:    s.ID,
			Provider:      s.Provider,
			Kind:          s.Kind,
			Capacity:      s.Capacity,
			AvailableFrom: s.AvailableFrom,
		}
	}
	return out
}

// Statistics returns per-instance counters for dashboards and tests.
func (c *Coordinator) Statistics() []InstanceSnapshot {
	return c.pool.Snapshot(c.now())
}

// IsCancelled reports whether err is a caller-cancellation outcome.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
