package app

import (
	"testing"

	"github.com/allaspectsdev/traduko/internal/config"
	"github.com/allaspectsdev/traduko/internal/testutil"
)

func TestBuildWithLocalProvider(t *testing.T) {
	cfg := testutil.NewTestConfig(t)
	cfg.Providers = map[string]config.ProviderConfig{
		"ollama": {
			Kind:    "ollama",
			APIBase: "http://127.0.0.1:11434",
			Model:   "qwen2.5:7b",
			Enabled: true,
		},
	}
	cfg.Telemetry.History = true

	rt, err := Build(cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer rt.Close()

	if rt.Coordinator == nil || rt.Translator == nil || rt.Collector == nil {
		t.Fatal("runtime missing components")
	}
	if rt.Store == nil {
		t.Fatal("history enabled but store is nil")
	}

	entries := rt.Coordinator.PoolDescription()
	if len(entries) != 1 || entries[0].InstanceID != "ollama-1" {
		t.Errorf("pool = %+v", entries)
	}
}

func TestBuildHistoryDisabled(t *testing.T) {
	cfg := testutil.NewTestConfig(t)
	cfg.Providers = map[string]config.ProviderConfig{
		"ollama": {Kind: "ollama", APIBase: "http://127.0.0.1:11434", Model: "qwen2.5:7b", Enabled: true},
	}
	cfg.Telemetry.History = false

	rt, err := Build(cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer rt.Close()

	if rt.Store != nil {
		t.Error("store opened with history disabled")
	}
}

func TestBuildEmptyPoolFails(t *testing.T) {
	cfg := testutil.NewTestConfig(t)
	cfg.Providers = map[string]config.ProviderConfig{
		"ollama": {Kind: "ollama", APIBase: "http://127.0.0.1:11434", Model: "qwen2.5:7b", Enabled: false},
	}

	if _, err := Build(cfg); err == nil {
		t.Fatal("expected error when no provider is enabled")
	}
}
