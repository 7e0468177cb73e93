package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/allaspectsdev/traduko/internal/telemetry"
)

func TestCollectorCountsEvents(t *testing.T) {
	c := NewCollector()
	now := time.Now()

	c.Emit(telemetry.Event{Kind: telemetry.AttemptStarted, TS: now})
	c.Emit(telemetry.Event{Kind: telemetry.AttemptFailed, TS: now})
	c.Emit(telemetry.Event{Kind: telemetry.InstanceCooled, TS: now})
	c.Emit(telemetry.Event{Kind: telemetry.AttemptStarted, TS: now})
	c.Emit(telemetry.Event{Kind: telemetry.AttemptSucceeded, TS: now,
		Details: map[string]any{"tokens_in": int64(100), "tokens_out": int64(80), "cost_usd": 0.0005, "latency_ms": int64(1200)}})
	c.Emit(telemetry.Event{Kind: telemetry.JobSucceeded, TS: now})
	c.Emit(telemetry.Event{Kind: telemetry.InstanceRestored, TS: now})
	c.Emit(telemetry.Event{Kind: telemetry.JobExhausted, TS: now})
	c.Emit(telemetry.Event{Kind: telemetry.JobCancelled, TS: now})

	st := c.Stats()
	if st.Attempts != 2 || st.AttemptsFailed != 1 {
		t.Errorf("attempts = %d/%d failed", st.Attempts, st.AttemptsFailed)
	}
	if st.FailRate != 50 {
		t.Errorf("fail rate = %f, want 50", st.FailRate)
	}
	if st.JobsSucceeded != 1 || st.JobsExhausted != 1 || st.JobsCancelled != 1 {
		t.Errorf("jobs = %d/%d/%d", st.JobsSucceeded, st.JobsExhausted, st.JobsCancelled)
	}
	if st.Cooldowns != 1 || st.Restores != 1 {
		t.Errorf("cooldowns = %d, restores = %d", st.Cooldowns, st.Restores)
	}
	if st.TokensIn != 100 || st.TokensOut != 80 {
		t.Errorf("tokens = %d/%d", st.TokensIn, st.TokensOut)
	}
	if st.CostUSD < 0.00049 || st.CostUSD > 0.00051 {
		t.Errorf("cost = %f", st.CostUSD)
	}
}

func TestCollectorCacheRates(t *testing.T) {
	c := NewCollector()

	c.RecordCacheHit()
	c.RecordCacheHit()
	c.RecordCacheHit()
	c.RecordCacheMiss()

	st := c.Stats()
	if st.CacheHits != 3 || st.CacheMisses != 1 {
		t.Errorf("cache = %d hits / %d misses", st.CacheHits, st.CacheMisses)
	}
	if st.CacheHitRate != 75 {
		t.Errorf("hit rate = %f, want 75", st.CacheHitRate)
	}
}

func TestCollectorZeroDivision(t *testing.T) {
	st := NewCollector().Stats()
	if st.FailRate != 0 || st.CacheHitRate != 0 {
		t.Errorf("empty collector rates = %f/%f", st.FailRate, st.CacheHitRate)
	}
}

func TestCollectorActiveJobs(t *testing.T) {
	c := NewCollector()
	c.IncrementActive()
	c.IncrementActive()
	c.DecrementActive()
	if got := c.Stats().ActiveJobs; got != 1 {
		t.Errorf("active = %d, want 1", got)
	}
}

func TestCollectorConcurrent(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Emit(telemetry.Event{Kind: telemetry.AttemptStarted})
				c.Emit(telemetry.Event{Kind: telemetry.AttemptSucceeded,
					Details: map[string]any{"cost_usd": 0.001}})
			}
		}()
	}
	wg.Wait()

	st := c.Stats()
	if st.Attempts != 2000 {
		t.Errorf("attempts = %d, want 2000", st.Attempts)
	}
	want := 2.0
	if st.CostUSD < want-0.0001 || st.CostUSD > want+0.0001 {
		t.Errorf("cost = %f, want %f", st.CostUSD, want)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{5 * time.Minute, "5m"},
		{3*time.Hour + 12*time.Minute, "3h 12m"},
		{50 * time.Hour, "2d 2h"},
		{60 * time.Second, "1m"},
	}
	for _, tc := range cases {
		if got := formatDuration(tc.d); got != tc.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}
