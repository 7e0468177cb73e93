package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/allaspectsdev/traduko/internal/config"
	"github.com/allaspectsdev/traduko/internal/dispatch"
	"github.com/allaspectsdev/traduko/internal/metrics"
)

// cmdPool shows the instance pool of a running serve process, falling back
// to the pool the local config would produce.
func cmdPool() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	var entries []dispatch.PoolEntry
	if err := fetchJSON(cfg, "/api/pool", &entries); err != nil {
		// Not running; describe the pool the config defines without
		// resolving credentials.
		fmt.Println("serve not running; pool from config:")
		for _, spec := range dispatch.SpecsFromConfig(cfg, dispatch.ResolverFunc(func(string) (string, error) {
			return "-", nil
		})) {
			fmt.Printf("  %-12s kind=%-14s model=%s\n", spec.Name, spec.Kind, spec.Model)
		}
		return
	}

	for _, e := range entries {
		state := "available"
		if !e.AvailableFrom.IsZero() {
			state = "cooling until " + e.AvailableFrom.Format(time.RFC3339)
		}
		fmt.Printf("  %-16s %-10s capacity=%-6s %s\n", e.InstanceID, e.Kind, e.Capacity, state)
	}
}

// cmdStats prints live dispatcher statistics from the diagnostics API.
func cmdStats() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	var stats metrics.Stats
	if err := fetchJSON(cfg, "/api/stats", &stats); err != nil {
		fmt.Println("traduko serve is not running")
		return
	}

	fmt.Printf("  Uptime:          %s\n", stats.Uptime)
	fmt.Printf("  Jobs Succeeded:  %d\n", stats.JobsSucceeded)
	fmt.Printf("  Jobs Exhausted:  %d\n", stats.JobsExhausted)
	fmt.Printf("  Attempts:        %d (%.1f%% failed)\n", stats.Attempts, stats.FailRate)
	fmt.Printf("  Cooldowns:       %d\n", stats.Cooldowns)
	fmt.Printf("  Tokens In:       %d\n", stats.TokensIn)
	fmt.Printf("  Tokens Out:      %d\n", stats.TokensOut)
	fmt.Printf("  Cost:            $%.4f\n", stats.CostUSD)
	fmt.Printf("  Cache Hit Rate:  %.1f%% (%d hits / %d misses)\n", stats.CacheHitRate, stats.CacheHits, stats.CacheMisses)
	fmt.Printf("  Active Jobs:     %d\n", stats.ActiveJobs)
}

func fetchJSON(cfg *config.Config, path string, out any) error {
	url := fmt.Sprintf("http://%s:%d%s", cfg.Server.DiagBind, cfg.Server.DiagPort, path)
	client := &http.Client{Timeout: 3 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}
