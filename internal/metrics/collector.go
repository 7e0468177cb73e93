package metrics

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/allaspectsdev/traduko/internal/telemetry"
)

// Collector tracks live dispatcher metrics using atomic counters for
// lock-free, concurrent-safe updates. It consumes telemetry events
// directly, so wiring it in is just adding it to the sink fan-out.
type Collector struct {
	jobsSucceeded  int64
	jobsExhausted  int64
	jobsCancelled  int64
	attempts       int64
	attemptsFailed int64
	cooldowns      int64
	restores       int64

	totalTokensIn  int64
	totalTokensOut int64

	// Float64 counter stored as uint64 via math.Float64bits.
	totalCostUSD uint64

	cacheHits   int64
	cacheMisses int64

	activeJobs int64

	startTime time.Time
}

// Stats is a point-in-time snapshot of the collector's counters, suitable
// for JSON serialisation on the diagnostics API.
type Stats struct {
	Uptime           string  `json:"uptime"`
	JobsSucceeded    int64   `json:"jobs_succeeded"`
	JobsExhausted    int64   `json:"jobs_exhausted"`
	JobsCancelled    int64   `json:"jobs_cancelled"`
	Attempts         int64   `json:"attempts"`
	AttemptsFailed   int64   `json:"attempts_failed"`
	FailRate         float64 `json:"attempt_fail_rate"`
	Cooldowns        int64   `json:"cooldowns"`
	Restores         int64   `json:"restores"`
	TokensIn         int64   `json:"tokens_in"`
	TokensOut        int64   `json:"tokens_out"`
	CostUSD          float64 `json:"cost_usd"`
	CacheHitRate     float64 `json:"cache_hit_rate"`
	CacheHits        int64   `json:"cache_hits"`
	CacheMisses      int64   `json:"cache_misses"`
	ActiveJobs       int64   `json:"active_jobs"`
}

// NewCollector creates a Collector with all counters zeroed and the start
// time set to now.
func NewCollector() *Collector {
	return &Collector{
		startTime:    time.Now(),
		totalCostUSD: math.Float64bits(0),
	}
}

// Emit updates the counters from one telemetry event. Implements
// telemetry.Sink; it never blocks.
func (c *Collector) Emit(ev telemetry.Event) {
	switch ev.Kind {
	case telemetry.AttemptStarted:
		atomic.AddInt64(&c.attempts, 1)

	case telemetry.AttemptSucceeded:
		atomic.AddInt64(&c.totalTokensIn, eventInt(ev.Details, "tokens_in"))
		atomic.AddInt64(&c.totalTokensOut, eventInt(ev.Details, "tokens_out"))
		addFloat64(&c.totalCostUSD, eventFloat(ev.Details, "cost_usd"))

	case telemetry.AttemptFailed:
		atomic.AddInt64(&c.attemptsFailed, 1)

	case telemetry.InstanceCooled:
		atomic.AddInt64(&c.cooldowns, 1)

	case telemetry.InstanceRestored:
		atomic.AddInt64(&c.restores, 1)

	case telemetry.JobSucceeded:
		atomic.AddInt64(&c.jobsSucceeded, 1)

	case telemetry.JobExhausted:
		atomic.AddInt64(&c.jobsExhausted, 1)

	case telemetry.JobCancelled:
		atomic.AddInt64(&c.jobsCancelled, 1)
	}
}

// RecordCacheHit notes a translation served from the cache, bypassing the
// dispatcher entirely.
func (c *Collector) RecordCacheHit() {
	atomic.AddInt64(&c.cacheHits, 1)
}

// RecordCacheMiss notes a cache miss.
func (c *Collector) RecordCacheMiss() {
	atomic.AddInt64(&c.cacheMisses, 1)
}

// IncrementActive increments the in-flight job counter.
func (c *Collector) IncrementActive() {
	atomic.AddInt64(&c.activeJobs, 1)
}

// DecrementActive decrements the in-flight job counter.
func (c *Collector) DecrementActive() {
	atomic.AddInt64(&c.activeJobs, -1)
}

// Stats returns a point-in-time snapshot of all metrics.
func (c *Collector) Stats() *Stats {
	attempts := atomic.LoadInt64(&c.attempts)
	failed := atomic.LoadInt64(&c.attemptsFailed)
	hits := atomic.LoadInt64(&c.cacheHits)
	misses := atomic.LoadInt64(&c.cacheMisses)

	var failRate float64
	if attempts > 0 {
		failRate = float64(failed) / float64(attempts) * 100
	}

	var hitRate float64
	if hits+misses > 0 {
		hitRate = float64(hits) / float64(hits+misses) * 100
	}

	return &Stats{
		Uptime:         formatDuration(time.Since(c.startTime)),
		JobsSucceeded:  atomic.LoadInt64(&c.jobsSucceeded),
		JobsExhausted:  atomic.LoadInt64(&c.jobsExhausted),
		JobsCancelled:  atomic.LoadInt64(&c.jobsCancelled),
		Attempts:       attempts,
		AttemptsFailed: failed,
		FailRate:       failRate,
		Cooldowns:      atomic.LoadInt64(&c.cooldowns),
		Restores:       atomic.LoadInt64(&c.restores),
		TokensIn:       atomic.LoadInt64(&c.totalTokensIn),
		TokensOut:      atomic.LoadInt64(&c.totalTokensOut),
		CostUSD:        loadFloat64(&c.totalCostUSD),
		CacheHitRate:   hitRate,
		CacheHits:      hits,
		CacheMisses:    misses,
		ActiveJobs:     atomic.LoadInt64(&c.activeJobs),
	}
}

// addFloat64 atomically adds delta to the float64 stored in addr using a CAS loop.
func addFloat64(addr *uint64, delta float64) {
	for {
		old := atomic.LoadUint64(addr)
		newVal := math.Float64frombits(old) + delta
		if atomic.CompareAndSwapUint64(addr, old, math.Float64bits(newVal)) {
			return
		}
	}
}

// loadFloat64 atomically loads a float64 stored in addr.
func loadFloat64(addr *uint64) float64 {
	return math.Float64frombits(atomic.LoadUint64(addr))
}

func eventInt(m map[string]any, key string) int64 {
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

func eventFloat(m map[string]any, key string) float64 {
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

// formatDuration produces a human-readable duration string like "2d 5h 32m".
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return d.Round(time.Second).String()
	}

	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	s := ""
	if days > 0 {
		s = itoa(days) + "d"
	}
	if hours > 0 {
		if s != "" {
			s += " "
		}
		s += itoa(hours) + "h"
	}
	if minutes > 0 {
		if s != "" {
			s += " "
		}
		s += itoa(minutes) + "m"
	}
	if s == "" {
		return "0m"
	}
	return s
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := make([]byte, 0, 4)
	for n > 0 {
		digits = append(digits, byte('0'+n%10))
		n /= 10
	}
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	return string(digits)
}
