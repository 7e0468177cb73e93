package store

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/allaspectsdev/traduko/internal/telemetry"
)

const (
	sinkBuffer = 512

	// pendingStaleAfter bounds how long a half-folded job may wait for
	// its terminal event. A terminal event lost to buffer overflow would
	// otherwise pin the pending entry forever.
	pendingStaleAfter = time.Hour
	pendingSweepEvery = 10 * time.Minute
)

// Sink persists telemetry events to the history store without blocking the
// dispatcher. Events flow through a bounded channel to a single writer
// goroutine; when the buffer is full, events are dropped and counted.
//
// Alongside the raw event log the sink folds attempt-level events into a
// per-job summary row that is written when the job terminates.
type Sink struct {
	store   *Store
	ch      chan telemetry.Event
	dropped atomic.Uint64

	// pending accumulates per-job state between attempt events and the
	// terminal job event. firstSeen drives stale expiry. Both maps are
	// touched only by the writer goroutine.
	pending   map[string]*Job
	firstSeen map[string]time.Time

	closeOnce sync.Once
	done      chan struct{}
}

// NewSink starts a persistence sink writing to the given store.
func NewSink(s *Store) *Sink {
	k := &Sink{
		store:     s,
		ch:        make(chan telemetry.Event, sinkBuffer),
		pending:   make(map[string]*Job),
		firstSeen: make(map[string]time.Time),
		done:      make(chan struct{}),
	}
	go k.run()
	return k
}

// Emit queues the event for persistence. Never blocks; drops on overflow.
func (k *Sink) Emit(ev telemetry.Event) {
	select {
	case k.ch <- ev:
	default:
		k.dropped.Add(1)
	}
}

// Dropped returns the number of events lost to buffer overflow.
func (k *Sink) Dropped() uint64 {
	return k.dropped.Load()
}

// Close drains the queue and stops the writer goroutine. The underlying
// store is not closed.
func (k *Sink) Close() {
	k.closeOnce.Do(func() {
		close(k.ch)
		<-k.done
	})
}

func (k *Sink) run() {
	defer close(k.done)
	sweep := time.NewTicker(pendingSweepEvery)
	defer sweep.Stop()

	for {
		select {
		case ev, ok := <-k.ch:
			if !ok {
				return
			}
			// Persistence failures must not surface to the dispatcher.
			_ = k.store.InsertEvent(ev)
			k.fold(ev)
		case <-sweep.C:
			k.expire(time.Now())
		}
	}
}

// expire drops pending entries whose terminal event never arrived.
func (k *Sink) expire(now time.Time) {
	cutoff := now.Add(-pendingStaleAfter)
	for id, seen := range k.firstSeen {
		if seen.Before(cutoff) {
			delete(k.pending, id)
			delete(k.firstSeen, id)
		}
	}
}

// fold updates the per-job summary from one event and writes the summary
// row on job termination.
func (k *Sink) fold(ev telemetry.Event) {
	if ev.Job == "" {
		return
	}

	j := k.pending[ev.Job]
	if j == nil {
		j = &Job{ID: ev.Job}
		k.pending[ev.Job] = j
		k.firstSeen[ev.Job] = time.Now()
	}

	switch ev.Kind {
	case telemetry.AttemptStarted:
		j.Attempts++
		j.Instance = ev.Instance
		if p := detailString(ev.Details, "provider"); p != "" {
			j.Provider = p
		}

	case telemetry.AttemptSucceeded:
		j.Instance = ev.Instance
		j.TokensIn += detailInt(ev.Details, "tokens_in")
		j.TokensOut += detailInt(ev.Details, "tokens_out")
		j.CostUSD += detailFloat(ev.Details, "cost_usd")
		j.LatencyMs += detailInt(ev.Details, "latency_ms")

	case telemetry.AttemptFailed:
		j.Instance = ev.Instance
		if msg, ok := ev.Details["error"].(string); ok {
			j.ErrorMessage = msg
		}

	case telemetry.JobSucceeded:
		j.Outcome = "succeeded"
		j.ErrorMessage = ""
		k.finish(j, ev)

	case telemetry.JobExhausted:
		j.Outcome = "exhausted"
		k.finish(j, ev)

	case telemetry.JobCancelled:
		j.Outcome = "cancelled"
		k.finish(j, ev)
	}
}

// finish writes the completed summary row and drops the pending entry.
func (k *Sink) finish(j *Job, ev telemetry.Event) {
	j.SourceLang = detailString(ev.Details, "source_lang")
	j.TargetLang = detailString(ev.Details, "target_lang")
	j.FinishedAt = ev.TS.UTC().Format(time.RFC3339Nano)
	_ = k.store.InsertJob(j)
	delete(k.pending, ev.Job)
	delete(k.firstSeen, ev.Job)
}

func detailString(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func detailInt(m map[string]any, key string) int64 {
	switch v := m[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func detailFloat(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}
