package config

import (
	"fmt"
	"strings"
)

// validate checks the Config for invalid or out-of-range values.
// It returns a combined error if any checks fail.
func validate(cfg *Config) error {
	var errs []string

	// Server validation
	if cfg.Server.DiagPort < 1 || cfg.Server.DiagPort > 65535 {
		errs = append(errs, fmt.Sprintf("server.diag_port must be between 1 and 65535, got %d", cfg.Server.DiagPort))
	}
	if !isValidEnum(cfg.Server.LogLevel, ValidLogLevels) {
		errs = append(errs, fmt.Sprintf("server.log_level must be one of %v, got %q", ValidLogLevels, cfg.Server.LogLevel))
	}
	if cfg.Server.DataDir == "" {
		errs = append(errs, "server.data_dir must not be empty")
	}

	// Provider validation
	for name, p := range cfg.Providers {
		if p.Kind == "" {
			errs = append(errs, fmt.Sprintf("providers.%s.kind must not be empty", name))
		}
		if !isValidEnum(p.Capacity, ValidCapacities) {
			errs = append(errs, fmt.Sprintf("providers.%s.capacity must be one of %v, got %q", name, ValidCapacities[1:], p.Capacity))
		}
		if p.Instances < 0 {
			errs = append(errs, fmt.Sprintf("providers.%s.instances must be non-negative, got %d", name, p.Instances))
		}
		if p.Timeout < 0 {
			errs = append(errs, fmt.Sprintf("providers.%s.timeout must be non-negative", name))
		}
		if p.KeyRef != "" && p.TokenRef != "" {
			errs = append(errs, fmt.Sprintf("providers.%s: key_ref and token_ref are mutually exclusive", name))
		}
	}

	// Dispatch validation
	if cfg.Dispatch.RateLimitCooldownSec < 0 {
		errs = append(errs, fmt.Sprintf("dispatch.rate_limit_cooldown_seconds must be non-negative, got %d", cfg.Dispatch.RateLimitCooldownSec))
	}
	if cfg.Dispatch.TransientCooldownMaxSec < 0 {
		errs = append(errs, fmt.Sprintf("dispatch.transient_cooldown_max_seconds must be non-negative, got %d", cfg.Dispatch.TransientCooldownMaxSec))
	}
	if cfg.Dispatch.RequestTimeoutSec < 0 {
		errs = append(errs, fmt.Sprintf("dispatch.request_timeout_seconds must be non-negative, got %d", cfg.Dispatch.RequestTimeoutSec))
	}
	if cfg.Dispatch.PoolTimeoutSec < 0 {
		errs = append(errs, fmt.Sprintf("dispatch.pool_timeout_seconds must be non-negative, got %d", cfg.Dispatch.PoolTimeoutSec))
	}
	if cfg.Dispatch.MaxTextBytes < 0 {
		errs = append(errs, fmt.Sprintf("dispatch.max_text_bytes must be non-negative, got %d", cfg.Dispatch.MaxTextBytes))
	}

	// Cache validation
	if cfg.Cache.MaxEntries < 0 {
		errs = append(errs, fmt.Sprintf("cache.max_entries must be non-negative, got %d", cfg.Cache.MaxEntries))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// isValidEnum reports whether value is one of the allowed values.
func isValidEnum(value string, allowed []string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}
