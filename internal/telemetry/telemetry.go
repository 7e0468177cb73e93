// Package telemetry defines the structured events the dispatcher emits and
// the sinks that consume them. The contract for every sink: Emit must not
// block the dispatcher and must not fail it. Buffer or drop, never propagate.
package telemetry

import "time"

// EventKind names an observable occurrence in the dispatcher.
type EventKind string

const (
	AttemptStarted   EventKind = "attempt_started"
	AttemptSucceeded EventKind = "attempt_succeeded"
	AttemptFailed    EventKind = "attempt_failed"
	InstanceCooled   EventKind = "instance_cooled"
	InstanceRestored EventKind = "instance_restored"
	JobSucceeded     EventKind = "job_succeeded"
	JobExhausted     EventKind = "job_exhausted"
	JobCancelled     EventKind = "job_cancelled"
	PoolReady        EventKind = "pool_ready"
	ProviderSkipped  EventKind = "provider_skipped"
)

// Event is an immutable record of one observable occurrence. Instance is
// empty for pool-level events.
type Event struct {
	Kind     EventKind      `json:"kind"`
	Instance string         `json:"instance,omitempty"`
	Job      string         `json:"job,omitempty"`
	TS       time.Time      `json:"ts"`
	Details  map[string]any `json:"details,omitempty"`
}

// Sink consumes events. Implementations serialize internally if they need to.
type Sink interface {
	Emit(Event)
}

// Nop is a Sink that discards everything.
type Nop struct{}

// Emit discards the event.
func (Nop) Emit(Event) {}

// Multi fans one event out to several sinks in order.
type Multi []Sink

// Emit forwards the event to every sink.
func (m Multi) Emit(ev Event) {
	for _, s := range m {
		s.Emit(ev)
	}
}
